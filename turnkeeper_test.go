package turnkeeper

import (
	"context"
	"sync"
	"testing"
	"time"

	agentctx "github.com/BaSui01/turnkeeper/agent/context"
	"github.com/BaSui01/turnkeeper/agent/conversation"
	"github.com/BaSui01/turnkeeper/agent/decision"
	"github.com/BaSui01/turnkeeper/llm/retry"
	"github.com/BaSui01/turnkeeper/testutil/fixtures"
	"github.com/BaSui01/turnkeeper/testutil/mocks"
	"github.com/BaSui01/turnkeeper/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMetrics struct {
	mu         sync.Mutex
	failed     []int
	outcomes   []decision.Outcome
	selections []types.SelectionSource
	checks     []types.TerminationDecision
}

func (r *recordingMetrics) OnAttemptFailed(_ error, attempt int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, attempt)
}

func (r *recordingMetrics) ObserveOracleCall(string, time.Duration, error) {}

func (r *recordingMetrics) ObserveDecision(_ string, outcome decision.Outcome, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingMetrics) ObserveSelection(source types.SelectionSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selections = append(r.selections, source)
}

func (r *recordingMetrics) ObserveTermination(d types.TerminationDecision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks = append(r.checks, d)
}

func TestNew_Defaults(t *testing.T) {
	eng := New(mocks.NewMockModel())
	require.NotNil(t, eng.Scheduler)
	require.NotNil(t, eng.Loop)
	assert.Equal(t, retry.DefaultRetryPolicy(), eng.Client.Policy())
	assert.Equal(t, agentctx.DefaultCompressorConfig(), eng.Compressor.Config())
}

func TestNew_WiresMetricsAndConfig(t *testing.T) {
	model := mocks.NewMockModel().WithStructuredReplies(
		mocks.Reply{Content: fixtures.MalformedSelection},
		mocks.Reply{Content: fixtures.SelectionJSON("A", "A spoke recently but fits")},
		mocks.Reply{Content: fixtures.TerminationJSON(false, "still discussing")},
	)
	m := &recordingMetrics{}
	policy := retry.RetryPolicy{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	eng := New(model,
		WithMetrics(m),
		WithRetryPolicy(policy),
		WithSummaryCache(agentctx.NewMemoryCache(8)),
		WithSelectorConfig(conversation.SelectorConfig{RecencyWindow: 1, Temperature: 0.1, MaxTokens: 50}),
	)

	state := fixtures.State("conv-1", fixtures.ThreeAgents(), "user", "B", "A")
	sel, err := eng.Scheduler.SelectNext(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, sel)
	// 窗口为 1：只有 A 被视为最近发言者
	assert.Equal(t, "B", sel.AgentID)
	assert.Equal(t, types.SourceOverride, sel.Source)

	d, err := eng.Scheduler.ShouldTerminate(context.Background(), state)
	require.NoError(t, err)
	assert.False(t, d.ShouldTerminate)

	assert.Equal(t, []int{1}, m.failed)
	assert.Equal(t, []decision.Outcome{decision.OutcomeSuccess, decision.OutcomeSuccess}, m.outcomes)
	assert.Equal(t, []types.SelectionSource{types.SourceOverride}, m.selections)
	require.Len(t, m.checks, 1)
	assert.Equal(t, "still discussing", m.checks[0].Reason)
}

func TestNew_CustomReplies(t *testing.T) {
	model := mocks.NewMockModel().WithStructuredJSON(
		fixtures.SelectionJSON("C", "fresh voice"),
		fixtures.TerminationJSON(true, "done"),
	)
	replies := conversation.ReplyFunc(func(_ context.Context, agent types.Agent, _ types.ConversationState) (string, error) {
		return "reply from " + agent.ID, nil
	})
	eng := New(model, WithReplies(replies), WithLoopConfig(conversation.LoopConfig{MaxRounds: 3}))

	res, err := eng.Loop.Resume(context.Background(), types.ConversationState{ConversationID: "c", Agents: fixtures.ThreeAgents()}, "hi")
	require.NoError(t, err)
	assert.Equal(t, conversation.StopPaused, res.StopReason)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "reply from C", res.Messages[1].Content)
	assert.Zero(t, model.TextCalls())
}
