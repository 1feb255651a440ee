package factory

import (
	"sort"
	"strings"
	"time"

	"github.com/BaSui01/turnkeeper/internal/tlsutil"
	"github.com/BaSui01/turnkeeper/llm"
	"github.com/BaSui01/turnkeeper/llm/providers"
	"github.com/BaSui01/turnkeeper/llm/providers/openaicompat"
	"github.com/BaSui01/turnkeeper/types"
	"go.uber.org/zap"
)

// ProviderConfig is the generic configuration accepted by the factory function.
type ProviderConfig struct {
	APIKey  string             `json:"api_key" yaml:"api_key" env:"API_KEY"`
	BaseURL string             `json:"base_url" yaml:"base_url" env:"BASE_URL"`
	Model   string             `json:"model,omitempty" yaml:"model,omitempty" env:"MODEL"`
	Timeout time.Duration      `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
	Pool    tlsutil.PoolConfig `json:"pool,omitempty" yaml:"pool,omitempty" env:"POOL"`
	Extra   map[string]any     `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// builtin 内置的 OpenAI 兼容服务商：默认 BaseURL 与兜底模型
var builtin = map[string]struct {
	baseURL       string
	endpointPath  string
	fallbackModel string
}{
	"openai":   {"https://api.openai.com", "", "gpt-4o-mini"},
	"deepseek": {"https://api.deepseek.com", "", "deepseek-chat"},
	"qwen":     {"https://dashscope.aliyuncs.com/compatible-mode", "/v1/chat/completions", "qwen-plus"},
	"glm":      {"https://open.bigmodel.cn/api/paas", "/v4/chat/completions", "glm-4-flash"},
	"grok":     {"https://api.x.ai", "", "grok-3-mini"},
	"kimi":     {"https://api.moonshot.cn", "", "moonshot-v1-8k"},
	"mistral":  {"https://api.mistral.ai", "", "mistral-small-latest"},
	"ollama":   {"http://localhost:11434", "", "llama3.1"},
}

// unsupported 有独立协议、当前未接入的服务商
var unsupported = map[string]string{
	"anthropic":     "native Messages API is not implemented",
	"claude":        "native Messages API is not implemented",
	"gemini":        "native generateContent API is not implemented",
	"gemini-vertex": "native generateContent API is not implemented",
}

// NewProviderFromConfig creates a Provider based on the provider name.
// Built-in names get their default base URL; any other name is treated as a
// generic OpenAI-compatible backend and requires base_url. Providers with a
// native wire protocol return *types.UnsupportedProviderError.
func NewProviderFromConfig(name string, cfg ProviderConfig, logger *zap.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	name = strings.ToLower(strings.TrimSpace(name))

	if reason, ok := unsupported[name]; ok {
		return nil, &types.UnsupportedProviderError{Provider: name, Model: cfg.Model, Reason: reason}
	}

	oc := openaicompat.Config{
		BaseProviderConfig: providers.BaseProviderConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
			Pool:    cfg.Pool,
		},
		ProviderName: name,
	}

	if b, ok := builtin[name]; ok {
		if oc.BaseURL == "" {
			oc.BaseURL = b.baseURL
		}
		oc.EndpointPath = b.endpointPath
		oc.FallbackModel = b.fallbackModel
	} else {
		// 通用 OpenAI 兼容提供商：任意名称 + base_url 即可接入
		if cfg.BaseURL == "" {
			return nil, &types.UnsupportedProviderError{
				Provider: name,
				Model:    cfg.Model,
				Reason:   "unknown provider: not built in and no base_url configured",
			}
		}
		logger.Info("creating generic OpenAI-compatible provider",
			zap.String("provider", name),
			zap.String("base_url", cfg.BaseURL))
	}

	if cfg.Extra != nil {
		if v, ok := cfg.Extra["endpoint_path"].(string); ok {
			oc.EndpointPath = v
		}
		if v, ok := cfg.Extra["models_endpoint"].(string); ok {
			oc.ModelsEndpoint = v
		}
		if v, ok := cfg.Extra["disable_response_format"].(bool); ok {
			oc.DisableResponseFormat = v
		}
	}
	return openaicompat.New(oc, logger), nil
}

// SupportedProviders returns the built-in provider names, sorted.
// Any other name is treated as a generic OpenAI-compatible provider and
// requires base_url.
func SupportedProviders() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PoolFactory returns an llm.ProviderFactory backed by per-provider configs.
// A provider missing from configs is built from an empty config, so built-in
// names still work with credentials supplied elsewhere (e.g. a gateway).
func PoolFactory(configs map[string]ProviderConfig, logger *zap.Logger) llm.ProviderFactory {
	return func(key llm.PoolKey) (llm.Provider, error) {
		cfg := configs[key.Provider]
		if key.Model != "" {
			cfg.Model = key.Model
		}
		return NewProviderFromConfig(key.Provider, cfg, logger)
	}
}
