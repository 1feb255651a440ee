package conversation

import (
	"context"
	"strings"

	"github.com/BaSui01/turnkeeper/agent/decision"
	"github.com/BaSui01/turnkeeper/agent/structured"
	"github.com/BaSui01/turnkeeper/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// FallbackTerminationReason is reported when the oracle could not be consulted.
const FallbackTerminationReason = "continuing after decision failure"

// TerminationChoice is the oracle's answer to "should the group pause".
type TerminationChoice struct {
	ShouldTerminate bool   `json:"should_terminate" jsonschema:"required,description=true when the agents should pause and wait for the user"`
	Reason          string `json:"reason" jsonschema:"description=short explanation"`
}

var terminationChoiceSchema = structured.MustOutputSchema[TerminationChoice]("termination_choice")

// TerminationConfig configures the evaluator.
type TerminationConfig struct {
	Window      int     `yaml:"window" env:"WINDOW"`
	Temperature float32 `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens   int     `yaml:"max_tokens" env:"MAX_TOKENS"`
}

// DefaultTerminationConfig returns window 5, temperature 0.3, 200 tokens.
func DefaultTerminationConfig() TerminationConfig {
	return TerminationConfig{
		Window:      5,
		Temperature: 0.3,
		MaxTokens:   200,
	}
}

// TerminationEvaluator decides whether the conversation should pause.
// Failures resolve to "keep going".
type TerminationEvaluator struct {
	compressor ContextCompressor
	client     *decision.Client
	config     TerminationConfig
	recorder   Recorder
	tracer     trace.Tracer
	logger     *zap.Logger
}

// TerminationOption configures a TerminationEvaluator.
type TerminationOption func(*TerminationEvaluator)

// WithTerminationConfig overrides the defaults.
func WithTerminationConfig(cfg TerminationConfig) TerminationOption {
	return func(e *TerminationEvaluator) { e.config = cfg }
}

// WithTerminationRecorder attaches metrics.
func WithTerminationRecorder(r Recorder) TerminationOption {
	return func(e *TerminationEvaluator) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithTerminationTracer overrides the global tracer.
func WithTerminationTracer(t trace.Tracer) TerminationOption {
	return func(e *TerminationEvaluator) {
		if t != nil {
			e.tracer = t
		}
	}
}

// NewTerminationEvaluator creates an evaluator.
func NewTerminationEvaluator(compressor ContextCompressor, client *decision.Client, logger *zap.Logger, opts ...TerminationOption) *TerminationEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &TerminationEvaluator{
		compressor: compressor,
		client:     client,
		config:     DefaultTerminationConfig(),
		recorder:   nopRecorder{},
		tracer:     otel.Tracer(tracerName),
		logger:     logger.With(zap.String("component", "termination_evaluator")),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.config.Window <= 0 {
		e.config.Window = DefaultTerminationConfig().Window
	}
	return e
}

// ShouldTerminate judges the last few messages. The only error returned is
// ctx.Err(); every other failure yields ShouldTerminate=false.
func (e *TerminationEvaluator) ShouldTerminate(ctx context.Context, state types.ConversationState) (types.TerminationDecision, error) {
	if state.ConversationID != "" {
		ctx = types.WithConversationID(ctx, state.ConversationID)
	}
	ctx, span := e.tracer.Start(ctx, "turnkeeper.should_terminate", trace.WithAttributes(
		attribute.String("turnkeeper.conversation_id", state.ConversationID),
		attribute.Int("turnkeeper.messages", len(state.Messages)),
	))
	defer span.End()

	d, err := e.consult(ctx, state)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.TerminationDecision{}, ctxErr
		}
		e.logger.Warn("termination check fell back to continue",
			zap.String("conversation_id", state.ConversationID),
			zap.Error(err),
		)
		d = types.TerminationDecision{ShouldTerminate: false, Reason: FallbackTerminationReason, Fallback: true}
	}

	e.recorder.ObserveTermination(d)
	span.SetAttributes(
		attribute.Bool("turnkeeper.should_terminate", d.ShouldTerminate),
		attribute.Bool("turnkeeper.fallback", d.Fallback),
	)
	return d, nil
}

func (e *TerminationEvaluator) consult(ctx context.Context, state types.ConversationState) (types.TerminationDecision, error) {
	transcript, err := e.compressor.CompressWindow(ctx, state.Messages, e.config.Window)
	if err != nil {
		return types.TerminationDecision{}, err
	}

	choice, err := decision.Decide(ctx, e.client, terminationChoiceSchema, decision.Request{
		Prompt:       buildTerminationPrompt(transcript),
		SystemPrompt: terminationSystemPrompt,
		Temperature:  e.config.Temperature,
		MaxTokens:    e.config.MaxTokens,
	})
	if err != nil {
		return types.TerminationDecision{}, err
	}

	reason := strings.TrimSpace(choice.Reason)
	if reason == "" {
		reason = placeholderReasoning
	}
	return types.TerminationDecision{ShouldTerminate: choice.ShouldTerminate, Reason: reason}, nil
}
