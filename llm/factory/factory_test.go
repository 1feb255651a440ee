package factory

import (
	"errors"
	"testing"

	"github.com/BaSui01/turnkeeper/llm"
	"github.com/BaSui01/turnkeeper/llm/providers/openaicompat"
	"github.com/BaSui01/turnkeeper/llm/retry"
	"github.com/BaSui01/turnkeeper/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// Factory Tests
// =============================================================================

func TestNewProviderFromConfig_Builtin(t *testing.T) {
	tests := []struct {
		name        string
		provider    string
		cfg         ProviderConfig
		wantBaseURL string
		wantModel   string
	}{
		{"openai default url", "openai", ProviderConfig{APIKey: "sk-test"}, "https://api.openai.com", ""},
		{"deepseek", "deepseek", ProviderConfig{APIKey: "sk-test", Model: "deepseek-reasoner"}, "https://api.deepseek.com", "deepseek-reasoner"},
		{"base url override", "openai", ProviderConfig{BaseURL: "http://gateway:8080"}, "http://gateway:8080", ""},
		{"case insensitive", " OpenAI ", ProviderConfig{}, "https://api.openai.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProviderFromConfig(tt.provider, tt.cfg, zap.NewNop())
			require.NoError(t, err)
			oc, ok := p.(*openaicompat.Provider)
			require.True(t, ok)
			assert.Equal(t, tt.wantBaseURL, oc.Cfg.BaseURL)
			assert.Equal(t, tt.wantModel, oc.Cfg.Model)
			assert.NotEmpty(t, oc.Cfg.FallbackModel)
		})
	}
}

func TestNewProviderFromConfig_GenericCompat(t *testing.T) {
	p, err := NewProviderFromConfig("vllm", ProviderConfig{
		BaseURL: "http://vllm:8000",
		Model:   "qwen2.5-7b",
		Extra: map[string]any{
			"endpoint_path":           "/chat",
			"disable_response_format": true,
		},
	}, nil)
	require.NoError(t, err)
	oc := p.(*openaicompat.Provider)
	assert.Equal(t, "vllm", oc.Name())
	assert.Equal(t, "/chat", oc.Cfg.EndpointPath)
	assert.True(t, oc.Cfg.DisableResponseFormat)
}

func TestNewProviderFromConfig_Unsupported(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		cfg      ProviderConfig
	}{
		{"anthropic native", "anthropic", ProviderConfig{APIKey: "sk", Model: "claude-sonnet"}},
		{"gemini native", "gemini", ProviderConfig{}},
		{"unknown without base url", "nonexistent", ProviderConfig{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProviderFromConfig(tt.provider, tt.cfg, nil)
			assert.Nil(t, p)

			var upErr *types.UnsupportedProviderError
			require.True(t, errors.As(err, &upErr))
			assert.Equal(t, tt.provider, upErr.Provider)
			assert.True(t, retry.IsPermanent(err), "unsupported provider must never be retried")
		})
	}
}

func TestSupportedProviders(t *testing.T) {
	names := SupportedProviders()
	assert.Contains(t, names, "openai")
	assert.Contains(t, names, "deepseek")
	assert.NotContains(t, names, "anthropic")
	assert.IsIncreasing(t, names)
}

// =============================================================================
// Pool Factory Tests
// =============================================================================

func TestPoolFactory(t *testing.T) {
	f := PoolFactory(map[string]ProviderConfig{
		"deepseek": {APIKey: "sk-ds"},
	}, nil)

	p, err := f(llm.PoolKey{Provider: "deepseek", Model: "deepseek-chat"})
	require.NoError(t, err)
	oc := p.(*openaicompat.Provider)
	assert.Equal(t, "sk-ds", oc.Cfg.APIKey)
	assert.Equal(t, "deepseek-chat", oc.Cfg.Model)

	_, err = f(llm.PoolKey{Provider: "claude", Model: "x"})
	var upErr *types.UnsupportedProviderError
	assert.ErrorAs(t, err, &upErr)
}

func TestPoolFactory_WithClientPool(t *testing.T) {
	pool := llm.NewClientPool(PoolFactory(nil, nil), llm.DefaultPoolConfig(), nil)

	_, err := pool.Get(llm.PoolKey{Provider: "gemini", Model: "gemini-2.0"})
	var upErr *types.UnsupportedProviderError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "gemini-2.0", upErr.Model)
	assert.Equal(t, 0, pool.Len())

	c, err := pool.Get(llm.PoolKey{Provider: "openai", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}
