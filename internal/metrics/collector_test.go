package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/turnkeeper/agent/decision"
	"github.com/BaSui01/turnkeeper/llm"
	"github.com/BaSui01/turnkeeper/llm/circuitbreaker"
	"github.com/BaSui01/turnkeeper/llm/retry"
	"github.com/BaSui01/turnkeeper/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	return NewCollector("test", prometheus.NewRegistry(), zap.NewNop())
}

func TestCollector_AttemptFailures(t *testing.T) {
	c := newTestCollector(t)
	var obs retry.Observer = c

	obs.OnAttemptFailed(types.NewError(types.ErrSchemaViolation, "bad"), 1)
	obs.OnAttemptFailed(types.NewError(types.ErrSchemaViolation, "bad"), 2)
	obs.OnAttemptFailed(&llm.Error{Code: llm.ErrRateLimited, Message: "slow down"}, 3)
	obs.OnAttemptFailed(&types.UnsupportedProviderError{Provider: "x"}, 1)
	obs.OnAttemptFailed(errors.New("???"), 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.attemptFailures.WithLabelValues("SCHEMA_VIOLATION")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.attemptFailures.WithLabelValues("LLM_RATE_LIMITED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.attemptFailures.WithLabelValues("UNSUPPORTED_PROVIDER")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.attemptFailures.WithLabelValues("unknown")))
}

func TestCollector_Decisions(t *testing.T) {
	c := newTestCollector(t)
	var rec decision.Recorder = c

	rec.ObserveOracleCall("agent_choice", 120*time.Millisecond, nil)
	rec.ObserveOracleCall("agent_choice", 80*time.Millisecond, errors.New("x"))
	rec.ObserveDecision("agent_choice", decision.OutcomeSuccess, 2)
	rec.ObserveDecision("agent_choice", decision.OutcomeExhausted, 4)
	rec.ObserveDecision("termination_choice", decision.OutcomeCanceled, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.oracleCallsTotal.WithLabelValues("agent_choice", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.oracleCallsTotal.WithLabelValues("agent_choice", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.decisionsTotal.WithLabelValues("agent_choice", "exhausted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.decisionsTotal.WithLabelValues("termination_choice", "canceled")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.oracleCallDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(c.decisionAttempts))
}

func TestCollector_SelectionsAndTerminations(t *testing.T) {
	c := newTestCollector(t)

	c.ObserveSelection(types.SourceOracle)
	c.ObserveSelection(types.SourceOverride)
	c.ObserveSelection(types.SourceOverride)
	c.ObserveTermination(types.TerminationDecision{ShouldTerminate: true})
	c.ObserveTermination(types.TerminationDecision{})
	c.ObserveTermination(types.TerminationDecision{Fallback: true})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.selectionsTotal.WithLabelValues("override")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.terminationsTotal.WithLabelValues("terminate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.terminationsTotal.WithLabelValues("continue")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.terminationsTotal.WithLabelValues("fallback")))
}

func TestCollector_BreakerState(t *testing.T) {
	c := newTestCollector(t)
	c.ObserveBreakerState("llm:openai/gpt-4o-mini", circuitbreaker.StateClosed, circuitbreaker.StateOpen)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.breakerState.WithLabelValues("llm:openai/gpt-4o-mini")))
}

func TestCollector_Handler(t *testing.T) {
	c := newTestCollector(t)
	c.ObserveSelection(types.SourceFallback)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `test_speaker_selections_total{source="fallback"} 1`))
}

func TestNewCollector_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector("dup", prometheus.NewRegistry(), nil)
		NewCollector("dup", prometheus.NewRegistry(), nil)
	})
}
