package providers

import (
	"time"

	"github.com/BaSui01/turnkeeper/internal/tlsutil"
)

// BaseProviderConfig 所有 Provider 共享的基础配置字段。
type BaseProviderConfig struct {
	APIKey  string             `json:"api_key" yaml:"api_key" env:"API_KEY"`
	BaseURL string             `json:"base_url" yaml:"base_url" env:"BASE_URL"`
	Model   string             `json:"model,omitempty" yaml:"model,omitempty" env:"MODEL"`
	Timeout time.Duration      `json:"timeout,omitempty" yaml:"timeout,omitempty" env:"TIMEOUT"`
	Pool    tlsutil.PoolConfig `json:"-" yaml:"pool" env:"POOL"`
}
