package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/turnkeeper/agent/decision"
	"github.com/BaSui01/turnkeeper/agent/structured"
	"github.com/BaSui01/turnkeeper/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/BaSui01/turnkeeper/agent/conversation"

// placeholderReasoning 模型未给出理由时使用
const placeholderReasoning = "no reasoning provided"

// AgentChoice is the oracle's answer to "who speaks next".
type AgentChoice struct {
	AgentID   string `json:"agent_id" jsonschema:"required,minLength=1,description=id of the agent that should speak next"`
	Reasoning string `json:"reasoning" jsonschema:"description=why this agent should speak next"`
}

var agentChoiceSchema = structured.MustOutputSchema[AgentChoice]("agent_choice")

// ContextCompressor renders history as prompt context.
type ContextCompressor interface {
	Compress(ctx context.Context, messages []types.Message) (string, error)
	CompressWindow(ctx context.Context, messages []types.Message, n int) (string, error)
}

// Recorder receives selection and termination outcomes.
type Recorder interface {
	ObserveSelection(source types.SelectionSource)
	ObserveTermination(d types.TerminationDecision)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSelection(types.SelectionSource)       {}
func (nopRecorder) ObserveTermination(types.TerminationDecision) {}

// SelectorConfig configures speaker selection.
type SelectorConfig struct {
	RecencyWindow int     `yaml:"recency_window" env:"RECENCY_WINDOW"`
	Temperature   float32 `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens     int     `yaml:"max_tokens" env:"MAX_TOKENS"`
}

// DefaultSelectorConfig returns window 3, temperature 0.3, 200 tokens.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		RecencyWindow: DefaultRecencyWindow,
		Temperature:   0.3,
		MaxTokens:     200,
	}
}

// SpeakerSelector picks the next agent to speak. It never returns an agent
// outside the roster and never fails except on caller cancellation.
type SpeakerSelector struct {
	compressor ContextCompressor
	client     *decision.Client
	config     SelectorConfig
	recorder   Recorder
	tracer     trace.Tracer
	logger     *zap.Logger
}

// SelectorOption configures a SpeakerSelector.
type SelectorOption func(*SpeakerSelector)

// WithSelectorConfig overrides the defaults.
func WithSelectorConfig(cfg SelectorConfig) SelectorOption {
	return func(s *SpeakerSelector) { s.config = cfg }
}

// WithSelectorRecorder attaches metrics.
func WithSelectorRecorder(r Recorder) SelectorOption {
	return func(s *SpeakerSelector) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithSelectorTracer overrides the global tracer.
func WithSelectorTracer(t trace.Tracer) SelectorOption {
	return func(s *SpeakerSelector) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewSpeakerSelector creates a selector.
func NewSpeakerSelector(compressor ContextCompressor, client *decision.Client, logger *zap.Logger, opts ...SelectorOption) *SpeakerSelector {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SpeakerSelector{
		compressor: compressor,
		client:     client,
		config:     DefaultSelectorConfig(),
		recorder:   nopRecorder{},
		tracer:     otel.Tracer(tracerName),
		logger:     logger.With(zap.String("component", "speaker_selector")),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.config.RecencyWindow < 0 {
		s.config.RecencyWindow = 0
	}
	return s
}

// SelectNext decides which agent speaks next. An empty roster yields nil.
// The only error returned is ctx.Err().
func (s *SpeakerSelector) SelectNext(ctx context.Context, state types.ConversationState) (*types.AgentSelection, error) {
	if len(state.Agents) == 0 {
		s.logger.Debug("empty roster, nothing to select", zap.String("conversation_id", state.ConversationID))
		return nil, nil
	}
	if state.ConversationID != "" {
		ctx = types.WithConversationID(ctx, state.ConversationID)
	}

	ctx, span := s.tracer.Start(ctx, "turnkeeper.select_next", trace.WithAttributes(
		attribute.String("turnkeeper.conversation_id", state.ConversationID),
		attribute.Int("turnkeeper.roster_size", len(state.Agents)),
		attribute.Int("turnkeeper.messages", len(state.Messages)),
	))
	defer span.End()

	logger := s.logger.With(zap.String("conversation_id", state.ConversationID))
	recent := LastSpeakers(state.Messages, s.config.RecencyWindow)

	sel, err := s.consult(ctx, state, recent)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		sel = fallbackSelection(state.Agents, recent, err)
		logger.Warn("speaker selection fell back",
			zap.String("agent_id", sel.AgentID),
			zap.Strings("recent", recent),
			zap.Error(err),
		)
	} else if sel.Source == types.SourceOverride {
		logger.Info("oracle choice overridden to avoid repetition",
			zap.String("agent_id", sel.AgentID),
			zap.Strings("recent", recent),
		)
	}

	s.recorder.ObserveSelection(sel.Source)
	span.SetAttributes(
		attribute.String("turnkeeper.agent_id", sel.AgentID),
		attribute.String("turnkeeper.source", string(sel.Source)),
	)
	return sel, nil
}

// consult asks the oracle and applies the anti-repetition override. Any
// error returned means the caller must fall back.
func (s *SpeakerSelector) consult(ctx context.Context, state types.ConversationState, recent []string) (*types.AgentSelection, error) {
	transcript, err := s.compressor.Compress(ctx, state.Messages)
	if err != nil {
		return nil, fmt.Errorf("compress context: %w", err)
	}

	choice, err := decision.Decide(ctx, s.client, agentChoiceSchema, decision.Request{
		Prompt:       buildSelectionPrompt(state.Agents, transcript, recent),
		SystemPrompt: selectionSystemPrompt,
		Temperature:  s.config.Temperature,
		MaxTokens:    s.config.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	chosen := strings.TrimSpace(choice.AgentID)
	if _, ok := state.AgentByID(chosen); !ok {
		return nil, types.NewError(types.ErrUnknownAgent, fmt.Sprintf("oracle chose unknown agent %q", chosen))
	}

	reasoning := strings.TrimSpace(choice.Reasoning)
	if reasoning == "" {
		reasoning = placeholderReasoning
	}

	if contains(recent, chosen) {
		if alt, ok := firstNotIn(state.Agents, recent); ok {
			return &types.AgentSelection{
				AgentID: alt.ID,
				Reasoning: fmt.Sprintf("override: oracle chose %s, who spoke recently (%s); selected %s instead. Original reasoning: %s",
					chosen, strings.Join(recent, ", "), alt.ID, reasoning),
				Source: types.SourceOverride,
			}, nil
		}
	}

	return &types.AgentSelection{AgentID: chosen, Reasoning: reasoning, Source: types.SourceOracle}, nil
}

// fallbackSelection 确定性兜底：名册中第一个不在 recent 的 Agent，否则 agents[0]
func fallbackSelection(agents []types.Agent, recent []string, cause error) *types.AgentSelection {
	pick, ok := firstNotIn(agents, recent)
	if !ok {
		pick = agents[0]
	}
	return &types.AgentSelection{
		AgentID:   pick.ID,
		Reasoning: fmt.Sprintf("fallback selection after decision failure: %v", cause),
		Source:    types.SourceFallback,
	}
}
