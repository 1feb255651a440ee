// Package turnkeeper assembles a group-chat turn scheduler around a single
// LLM oracle with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/turnkeeper"
//
//	eng := turnkeeper.New(model, turnkeeper.WithLogger(logger))
//	sel, err := eng.Scheduler.SelectNext(ctx, state)
//	done, err := eng.Scheduler.ShouldTerminate(ctx, state)
//
// model is any llm.ModelProvider, typically a pooled client obtained from
// llm.ClientPool. Use the agent/* packages directly for finer control.
package turnkeeper

import (
	agentctx "github.com/BaSui01/turnkeeper/agent/context"
	"github.com/BaSui01/turnkeeper/agent/conversation"
	"github.com/BaSui01/turnkeeper/agent/decision"
	"github.com/BaSui01/turnkeeper/llm"
	"github.com/BaSui01/turnkeeper/llm/retry"
	"github.com/BaSui01/turnkeeper/llm/tokenizer"
	"go.uber.org/zap"
)

// Metrics receives every observation the engine produces. The Prometheus
// collector in internal/metrics satisfies it.
type Metrics interface {
	retry.Observer
	decision.Recorder
	conversation.Recorder
}

type options struct {
	logger      *zap.Logger
	retry       retry.RetryPolicy
	compressor  agentctx.CompressorConfig
	selector    conversation.SelectorConfig
	termination conversation.TerminationConfig
	loop        conversation.LoopConfig
	cache       agentctx.SummaryCache
	tokenizer   tokenizer.Tokenizer
	metrics     Metrics
	replies     conversation.ReplyGenerator
}

// Option configures the engine built by New.
type Option func(*options)

// WithLogger sets the zap logger shared by all components.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithRetryPolicy overrides the decision retry policy.
func WithRetryPolicy(p retry.RetryPolicy) Option { return func(o *options) { o.retry = p } }

// WithCompressorConfig overrides the context compression bounds.
func WithCompressorConfig(c agentctx.CompressorConfig) Option {
	return func(o *options) { o.compressor = c }
}

// WithSelectorConfig overrides speaker selection parameters.
func WithSelectorConfig(c conversation.SelectorConfig) Option {
	return func(o *options) { o.selector = c }
}

// WithTerminationConfig overrides termination check parameters.
func WithTerminationConfig(c conversation.TerminationConfig) Option {
	return func(o *options) { o.termination = c }
}

// WithLoopConfig overrides the reference chat loop limits.
func WithLoopConfig(c conversation.LoopConfig) Option { return func(o *options) { o.loop = c } }

// WithSummaryCache caches summaries of older history.
func WithSummaryCache(c agentctx.SummaryCache) Option { return func(o *options) { o.cache = c } }

// WithTokenizer bounds summariser input with the given tokenizer.
func WithTokenizer(t tokenizer.Tokenizer) Option { return func(o *options) { o.tokenizer = t } }

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option { return func(o *options) { o.metrics = m } }

// WithReplies sets the reply generator driving Engine.Loop. Without it the
// oracle model role-plays the agents.
func WithReplies(r conversation.ReplyGenerator) Option { return func(o *options) { o.replies = r } }

// Engine bundles the wired components.
type Engine struct {
	Compressor *agentctx.Compressor
	Client     *decision.Client
	Selector   *conversation.SpeakerSelector
	Evaluator  *conversation.TerminationEvaluator
	Scheduler  *conversation.Scheduler
	Loop       *conversation.Loop
}

// New wires compressor, decision client, selector, evaluator, scheduler and
// reference loop around model.
func New(model llm.ModelProvider, opts ...Option) *Engine {
	o := options{
		logger:      zap.NewNop(),
		retry:       retry.DefaultRetryPolicy(),
		compressor:  agentctx.DefaultCompressorConfig(),
		selector:    conversation.DefaultSelectorConfig(),
		termination: conversation.DefaultTerminationConfig(),
		loop:        conversation.DefaultLoopConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	compOpts := []agentctx.Option{agentctx.WithLogger(o.logger)}
	if o.cache != nil {
		compOpts = append(compOpts, agentctx.WithSummaryCache(o.cache))
	}
	if o.tokenizer != nil {
		compOpts = append(compOpts, agentctx.WithTokenizer(o.tokenizer))
	}
	compressor := agentctx.NewCompressor(model, o.compressor, compOpts...)

	clientOpts := []decision.Option{decision.WithRetryPolicy(o.retry), decision.WithLogger(o.logger)}
	selOpts := []conversation.SelectorOption{conversation.WithSelectorConfig(o.selector)}
	termOpts := []conversation.TerminationOption{conversation.WithTerminationConfig(o.termination)}
	if o.metrics != nil {
		clientOpts = append(clientOpts, decision.WithObserver(o.metrics), decision.WithRecorder(o.metrics))
		selOpts = append(selOpts, conversation.WithSelectorRecorder(o.metrics))
		termOpts = append(termOpts, conversation.WithTerminationRecorder(o.metrics))
	}
	client := decision.NewClient(model, clientOpts...)

	eng := &Engine{
		Compressor: compressor,
		Client:     client,
		Selector:   conversation.NewSpeakerSelector(compressor, client, o.logger, selOpts...),
		Evaluator:  conversation.NewTerminationEvaluator(compressor, client, o.logger, termOpts...),
	}
	eng.Scheduler = conversation.NewScheduler(eng.Selector, eng.Evaluator, o.logger)

	replies := o.replies
	if replies == nil {
		replies = conversation.NewModelReplies(model, compressor, 0)
	}
	eng.Loop = conversation.NewLoop(eng.Scheduler, replies, o.loop, o.logger)
	return eng
}
