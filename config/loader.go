// =============================================================================
// 📦 TurnKeeper 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("turnkeeper.yaml").
//	    WithEnvPrefix("TURNKEEPER").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量 → 验证器
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	agentctx "github.com/BaSui01/turnkeeper/agent/context"
	"github.com/BaSui01/turnkeeper/agent/conversation"
	"github.com/BaSui01/turnkeeper/internal/cache"
	"github.com/BaSui01/turnkeeper/internal/tlsutil"
	"github.com/BaSui01/turnkeeper/llm"
	"github.com/BaSui01/turnkeeper/llm/factory"
	"github.com/BaSui01/turnkeeper/llm/retry"
	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix 环境变量前缀
const DefaultEnvPrefix = "TURNKEEPER"

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 TurnKeeper 的完整配置结构
type Config struct {
	// LLM 决策模型（oracle）配置
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Scheduler 发言调度配置
	Scheduler SchedulerConfig `yaml:"scheduler" env:"SCHEDULER"`

	// Retry 决策调用重试策略
	Retry retry.RetryPolicy `yaml:"retry" env:"RETRY"`

	// Cache Redis 摘要缓存
	Cache cache.Config `yaml:"cache" env:"CACHE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics Prometheus 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// LLMConfig 决策模型配置
type LLMConfig struct {
	// Provider 服务商名称，内置名称之外按 OpenAI 兼容处理
	Provider string `yaml:"provider" env:"PROVIDER"`
	// Model 模型名称，空则使用服务商兜底模型
	Model string `yaml:"model" env:"MODEL"`
	// API Key
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL（可选）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// HTTP 连接池
	HTTP tlsutil.PoolConfig `yaml:"http" env:"HTTP"`
	// Guard 限流与熔断
	Guard llm.PoolConfig `yaml:"guard" env:"GUARD"`
	// Extra 服务商特定参数（endpoint_path 等），仅支持 YAML
	Extra map[string]any `yaml:"extra"`
}

// ProviderConfigs 转换为 factory.PoolFactory 所需的按服务商配置
func (c LLMConfig) ProviderConfigs() map[string]factory.ProviderConfig {
	name := strings.ToLower(strings.TrimSpace(c.Provider))
	return map[string]factory.ProviderConfig{
		name: {
			APIKey:  c.APIKey,
			BaseURL: c.BaseURL,
			Model:   c.Model,
			Timeout: c.Timeout,
			Pool:    c.HTTP,
			Extra:   c.Extra,
		},
	}
}

// PoolKey 返回配置对应的客户端池键
func (c LLMConfig) PoolKey() llm.PoolKey {
	return llm.PoolKey{Provider: strings.ToLower(strings.TrimSpace(c.Provider)), Model: c.Model}
}

// SchedulerConfig 发言选择、终止判断与上下文压缩参数
type SchedulerConfig struct {
	// Compressor 上下文压缩
	Compressor agentctx.CompressorConfig `yaml:"compressor" env:"COMPRESSOR"`
	// Selector 发言人选择
	Selector conversation.SelectorConfig `yaml:"selector" env:"SELECTOR"`
	// Termination 终止判断
	Termination conversation.TerminationConfig `yaml:"termination" env:"TERMINATION"`
	// Loop 参考对话循环
	Loop conversation.LoopConfig `yaml:"loop" env:"LOOP"`
	// SummaryCacheSize 进程内摘要缓存条目数，Redis 缓存关闭时使用；0 表示不缓存
	SummaryCacheSize int `yaml:"summary_cache_size" env:"SUMMARY_CACHE_SIZE"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 不使用 TLS 连接 collector
	Insecure bool `yaml:"insecure" env:"INSECURE"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// /metrics 监听地址，空则只注册不暴露
	Addr string `yaml:"addr" env:"ADDR"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  DefaultEnvPrefix,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 结构体递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue, ok := os.LookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, field.Type().Bits())
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.LLM.Provider) == "" {
		errs = append(errs, "llm.provider is required")
	}
	if c.LLM.Timeout < 0 {
		errs = append(errs, "llm.timeout must not be negative")
	}
	if c.LLM.Guard.RateLimit > 0 && c.LLM.Guard.Burst <= 0 {
		errs = append(errs, "llm.guard.burst must be positive when rate_limit is set")
	}

	s := c.Scheduler
	if s.Selector.RecencyWindow < 0 {
		errs = append(errs, "scheduler.selector.recency_window must not be negative")
	}
	if s.Selector.Temperature < 0 || s.Selector.Temperature > 2 {
		errs = append(errs, "scheduler.selector.temperature must be between 0 and 2")
	}
	if s.Termination.Temperature < 0 || s.Termination.Temperature > 2 {
		errs = append(errs, "scheduler.termination.temperature must be between 0 and 2")
	}
	if s.Selector.MaxTokens <= 0 || s.Termination.MaxTokens <= 0 {
		errs = append(errs, "scheduler max_tokens must be positive")
	}
	if s.Compressor.MaxVerbatim < 0 {
		errs = append(errs, "scheduler.compressor.max_verbatim must not be negative")
	}
	if s.Loop.MaxRounds <= 0 {
		errs = append(errs, "scheduler.loop.max_rounds must be positive")
	}

	if c.Retry.MaxRetries < 0 {
		errs = append(errs, "retry.max_retries must not be negative")
	}
	if c.Retry.Multiplier != 0 && c.Retry.Multiplier < 1 {
		errs = append(errs, "retry.multiplier must be at least 1")
	}

	if c.Cache.Enabled && c.Cache.Addr == "" {
		errs = append(errs, "cache.addr is required when cache is enabled")
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("invalid log level %q", c.Log.Level))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
