package decision

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/turnkeeper/agent/structured"
	"github.com/BaSui01/turnkeeper/llm"
	"github.com/BaSui01/turnkeeper/llm/retry"
	"github.com/BaSui01/turnkeeper/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/BaSui01/turnkeeper/agent/decision"

// Outcome 决策的最终结果
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeCanceled  Outcome = "canceled"
	OutcomePermanent Outcome = "permanent"
)

// Recorder receives per-call and per-decision measurements.
type Recorder interface {
	ObserveOracleCall(schema string, latency time.Duration, err error)
	ObserveDecision(schema string, outcome Outcome, attempts int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOracleCall(string, time.Duration, error) {}
func (nopRecorder) ObserveDecision(string, Outcome, int)           {}

// Request is one structured decision request.
type Request struct {
	Prompt       string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
}

// Client obtains validated structured decisions from a ModelProvider.
// It holds no per-conversation state and is safe for concurrent use.
type Client struct {
	model    llm.ModelProvider
	policy   retry.RetryPolicy
	observer retry.Observer
	sleep    retry.SleepFunc
	recorder Recorder
	tracer   trace.Tracer
	logger   *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p retry.RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithObserver registers an observer notified on every failed attempt.
func WithObserver(o retry.Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithSleep replaces the backoff sleep, mainly for tests.
func WithSleep(fn retry.SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithRecorder attaches metrics.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a decision client over model.
func NewClient(model llm.ModelProvider, opts ...Option) *Client {
	c := &Client{
		model:    model,
		policy:   retry.DefaultRetryPolicy(),
		recorder: nopRecorder{},
		tracer:   otel.Tracer(tracerName),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "decision_client"))
	return c
}

// Policy returns the retry policy in effect.
func (c *Client) Policy() retry.RetryPolicy { return c.policy }

func (c *Client) retryer() retry.Retryer {
	opts := []retry.Option{}
	if c.observer != nil {
		opts = append(opts, retry.WithObserver(c.observer))
	}
	if c.sleep != nil {
		opts = append(opts, retry.WithSleep(c.sleep))
	}
	return retry.NewBackoffRetryer(c.policy, c.logger, opts...)
}

// Decide asks the oracle for a T conforming to schema.
//
// Errors: the caller's ctx.Err() on cancellation; a permanent error such as
// *types.UnsupportedProviderError unchanged; *types.DecisionExhaustedError when
// every attempt failed.
func Decide[T any](ctx context.Context, c *Client, schema *structured.OutputSchema[T], req Request) (T, error) {
	var zero T

	decisionID := uuid.NewString()
	ctx = types.WithDecisionID(ctx, decisionID)
	ctx, span := c.tracer.Start(ctx, "turnkeeper.decide", trace.WithAttributes(
		attribute.String("turnkeeper.schema", schema.Name()),
		attribute.String("turnkeeper.decision_id", decisionID),
	))
	defer span.End()

	logger := c.logger.With(
		zap.String("schema", schema.Name()),
		zap.String("decision_id", decisionID),
	)
	if convID, ok := types.ConversationID(ctx); ok {
		logger = logger.With(zap.String("conversation_id", convID))
	}

	attempts := 0
	out, err := retry.DoWithResultTyped(c.retryer(), ctx, func(ctx context.Context) (T, error) {
		attempts++
		start := time.Now()
		v, err := attempt(ctx, c.model, schema, req)
		c.recorder.ObserveOracleCall(schema.Name(), time.Since(start), err)
		if err != nil {
			logger.Debug("decision attempt failed", zap.Int("attempt", attempts), zap.Error(err))
		}
		return v, err
	})
	span.SetAttributes(attribute.Int("turnkeeper.attempts", attempts))

	if err == nil {
		c.recorder.ObserveDecision(schema.Name(), OutcomeSuccess, attempts)
		return out, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		c.recorder.ObserveDecision(schema.Name(), OutcomeCanceled, attempts)
		span.SetStatus(codes.Error, "canceled")
		return zero, ctxErr
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		c.recorder.ObserveDecision(schema.Name(), OutcomeExhausted, attempts)
		span.RecordError(exhausted.Last)
		span.SetStatus(codes.Error, "exhausted")
		logger.Warn("decision exhausted", zap.Int("attempts", exhausted.Attempts), zap.Error(exhausted.Last))
		return zero, &types.DecisionExhaustedError{Attempts: exhausted.Attempts, Last: exhausted.Last}
	}

	c.recorder.ObserveDecision(schema.Name(), OutcomePermanent, attempts)
	span.RecordError(err)
	span.SetStatus(codes.Error, "permanent")
	logger.Warn("decision failed permanently", zap.Error(err))
	return zero, err
}

// attempt performs one oracle call and validates the reply.
func attempt[T any](ctx context.Context, model llm.ModelProvider, schema *structured.OutputSchema[T], req Request) (T, error) {
	var zero T
	raw, err := model.GenerateStructured(ctx, llm.StructuredRequest{
		SchemaName:   schema.Name(),
		Schema:       schema.Raw(),
		Prompt:       req.Prompt,
		SystemPrompt: req.SystemPrompt,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	})
	if err != nil {
		return zero, err
	}

	v, err := schema.Parse([]byte(llm.ExtractJSON(string(raw))))
	if err != nil {
		return zero, types.NewError(types.ErrSchemaViolation, "oracle reply does not match "+schema.Name()).
			WithCause(err).
			WithRetryable(true)
	}
	return v, nil
}
