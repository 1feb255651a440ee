package conversation

import (
	"context"
	"time"

	agentctx "github.com/BaSui01/turnkeeper/agent/context"
	"github.com/BaSui01/turnkeeper/agent/decision"
	"github.com/BaSui01/turnkeeper/testutil/mocks"
)

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func newTestClient(model *mocks.MockModel, opts ...decision.Option) *decision.Client {
	return decision.NewClient(model, append([]decision.Option{decision.WithSleep(noSleep)}, opts...)...)
}

func newTestSelector(model *mocks.MockModel, opts ...SelectorOption) *SpeakerSelector {
	comp := agentctx.NewCompressor(model, agentctx.DefaultCompressorConfig())
	return NewSpeakerSelector(comp, newTestClient(model), nil, opts...)
}

func newTestEvaluator(model *mocks.MockModel, opts ...TerminationOption) *TerminationEvaluator {
	comp := agentctx.NewCompressor(model, agentctx.DefaultCompressorConfig())
	return NewTerminationEvaluator(comp, newTestClient(model), nil, opts...)
}
