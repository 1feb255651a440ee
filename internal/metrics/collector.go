package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/BaSui01/turnkeeper/agent/decision"
	"github.com/BaSui01/turnkeeper/llm"
	"github.com/BaSui01/turnkeeper/llm/circuitbreaker"
	"github.com/BaSui01/turnkeeper/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 调度决策指标收集器
// =============================================================================

// Collector 调度决策指标收集器。
// 同时实现 retry.Observer、decision.Recorder 与 conversation.Recorder。
type Collector struct {
	// 预言机调用
	oracleCallsTotal   *prometheus.CounterVec
	oracleCallDuration *prometheus.HistogramVec

	// 决策
	attemptFailures  *prometheus.CounterVec
	decisionsTotal   *prometheus.CounterVec
	decisionAttempts *prometheus.HistogramVec

	// 调度结果
	selectionsTotal   *prometheus.CounterVec
	terminationsTotal *prometheus.CounterVec

	// 熔断器
	breakerState *prometheus.GaugeVec

	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// NewCollector 在 reg 上注册指标；reg 为 nil 时使用默认注册表
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	factory := promauto.With(reg)

	c := &Collector{
		gatherer: gatherer,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	c.oracleCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Total number of structured oracle calls",
		},
		[]string{"schema", "status"},
	)

	c.oracleCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_call_duration_seconds",
			Help:      "Oracle call latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"schema"},
	)

	c.attemptFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decision_attempt_failures_total",
			Help:      "Failed decision attempts by error code",
		},
		[]string{"code"},
	)

	c.decisionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Decisions by schema and outcome",
		},
		[]string{"schema", "outcome"},
	)

	c.decisionAttempts = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decision_attempts",
			Help:      "Attempts used per decision",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
		[]string{"schema"},
	)

	c.selectionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speaker_selections_total",
			Help:      "Speaker selections by source (oracle, override, fallback)",
		},
		[]string{"source"},
	)

	c.terminationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "termination_checks_total",
			Help:      "Termination checks by result",
		},
		[]string{"result"},
	)

	c.breakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// =============================================================================
// 🎯 决策指标
// =============================================================================

// OnAttemptFailed 实现 retry.Observer
func (c *Collector) OnAttemptFailed(err error, attempt int) {
	c.attemptFailures.WithLabelValues(errorCode(err)).Inc()
}

// ObserveOracleCall 实现 decision.Recorder
func (c *Collector) ObserveOracleCall(schema string, latency time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.oracleCallsTotal.WithLabelValues(schema, status).Inc()
	c.oracleCallDuration.WithLabelValues(schema).Observe(latency.Seconds())
}

// ObserveDecision 实现 decision.Recorder
func (c *Collector) ObserveDecision(schema string, outcome decision.Outcome, attempts int) {
	c.decisionsTotal.WithLabelValues(schema, string(outcome)).Inc()
	if attempts > 0 {
		c.decisionAttempts.WithLabelValues(schema).Observe(float64(attempts))
	}
}

// =============================================================================
// 🗣️ 调度指标
// =============================================================================

// ObserveSelection 实现 conversation.Recorder
func (c *Collector) ObserveSelection(source types.SelectionSource) {
	c.selectionsTotal.WithLabelValues(string(source)).Inc()
}

// ObserveTermination 实现 conversation.Recorder
func (c *Collector) ObserveTermination(d types.TerminationDecision) {
	c.terminationsTotal.WithLabelValues(terminationResult(d)).Inc()
}

// ObserveBreakerState 可直接作为 circuitbreaker.Config.OnStateChange
func (c *Collector) ObserveBreakerState(name string, _, to circuitbreaker.State) {
	c.breakerState.WithLabelValues(name).Set(float64(to))
}

// Handler 返回暴露本收集器注册表的 /metrics 处理器
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// errorCode 依次识别 types.Error、llm.Error 与 UnsupportedProviderError
func errorCode(err error) string {
	if code := types.GetErrorCode(err); code != "" {
		return string(code)
	}
	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		return string(llmErr.Code)
	}
	var unsupported *types.UnsupportedProviderError
	if errors.As(err, &unsupported) {
		return string(types.ErrUnsupportedProvider)
	}
	return "unknown"
}

func terminationResult(d types.TerminationDecision) string {
	switch {
	case d.Fallback:
		return "fallback"
	case d.ShouldTerminate:
		return "terminate"
	default:
		return "continue"
	}
}
