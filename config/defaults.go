// =============================================================================
// 📦 TurnKeeper 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	agentctx "github.com/BaSui01/turnkeeper/agent/context"
	"github.com/BaSui01/turnkeeper/agent/conversation"
	"github.com/BaSui01/turnkeeper/internal/cache"
	"github.com/BaSui01/turnkeeper/internal/tlsutil"
	"github.com/BaSui01/turnkeeper/llm"
	"github.com/BaSui01/turnkeeper/llm/retry"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		LLM:       DefaultLLMConfig(),
		Scheduler: DefaultSchedulerConfig(),
		Retry:     retry.DefaultRetryPolicy(),
		Cache:     cache.DefaultConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider: "openai",
		Timeout:  60 * time.Second,
		HTTP:     tlsutil.DefaultPoolConfig(),
		Guard:    llm.DefaultPoolConfig(),
	}
}

// DefaultSchedulerConfig 返回默认调度配置
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Compressor:       agentctx.DefaultCompressorConfig(),
		Selector:         conversation.DefaultSelectorConfig(),
		Termination:      conversation.DefaultTerminationConfig(),
		Loop:             conversation.DefaultLoopConfig(),
		SummaryCacheSize: 256,
	}
}

// DefaultLogConfig 返回默认日志配置。
// 日志默认写 stderr，stdout 留给命令输出。
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "turnkeeper",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Addr:      ":9091",
		Namespace: "turnkeeper",
	}
}
