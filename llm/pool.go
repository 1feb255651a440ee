package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/BaSui01/turnkeeper/llm/circuitbreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// PoolKey identifies one pooled model client.
type PoolKey struct {
	Provider string
	Model    string
}

func (k PoolKey) String() string { return k.Provider + "/" + k.Model }

// ProviderFactory builds the Provider backing a pool key.
type ProviderFactory func(key PoolKey) (Provider, error)

// PoolConfig 连接池中每个模型客户端的保护策略。
type PoolConfig struct {
	// RateLimit 每秒请求数，<=0 表示不限流
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	Burst     int     `yaml:"burst" env:"BURST"`

	Breaker circuitbreaker.Config `yaml:"breaker" env:"BREAKER"`
}

// DefaultPoolConfig 返回默认池配置
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		RateLimit: 0,
		Burst:     1,
		Breaker:   circuitbreaker.DefaultConfig(),
	}
}

// ClientPool hands out one shared, guarded ModelProvider per (provider, model).
// Concurrent first requests for the same key build the client once.
type ClientPool struct {
	factory ProviderFactory
	config  PoolConfig
	logger  *zap.Logger

	mu      sync.RWMutex
	clients map[PoolKey]*GuardedModel
	group   singleflight.Group
}

// NewClientPool creates an empty pool.
func NewClientPool(factory ProviderFactory, config PoolConfig, logger *zap.Logger) *ClientPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Breaker.IsFailure == nil {
		config.Breaker.IsFailure = IsBreakerFailure
	}
	return &ClientPool{
		factory: factory,
		config:  config,
		logger:  logger.With(zap.String("component", "client_pool")),
		clients: make(map[PoolKey]*GuardedModel),
	}
}

// Get returns the pooled client for key, creating it on first use.
func (p *ClientPool) Get(key PoolKey) (*GuardedModel, error) {
	p.mu.RLock()
	if c, ok := p.clients[key]; ok {
		p.mu.RUnlock()
		return c, nil
	}
	p.mu.RUnlock()

	res, err, _ := p.group.Do(key.String(), func() (any, error) {
		p.mu.RLock()
		c, ok := p.clients[key]
		p.mu.RUnlock()
		if ok {
			return c, nil
		}

		provider, err := p.factory(key)
		if err != nil {
			return nil, err
		}
		c = NewGuardedModel(NewChatModel(provider, key.Model, p.logger), key.String(), p.config, p.logger)

		p.mu.Lock()
		p.clients[key] = c
		p.mu.Unlock()

		p.logger.Info("model client created", zap.String("key", key.String()))
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*GuardedModel), nil
}

// Len returns the number of pooled clients.
func (p *ClientPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}

// GuardedModel wraps a ModelProvider with a rate limiter and a circuit breaker.
type GuardedModel struct {
	inner   ModelProvider
	name    string
	limiter *rate.Limiter
	breaker *circuitbreaker.Breaker
}

// NewGuardedModel wraps inner. A non-positive RateLimit disables limiting.
func NewGuardedModel(inner ModelProvider, name string, config PoolConfig, logger *zap.Logger) *GuardedModel {
	g := &GuardedModel{
		inner:   inner,
		name:    name,
		breaker: circuitbreaker.New("llm:"+name, config.Breaker, logger),
	}
	if config.RateLimit > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}
	return g
}

// Breaker exposes the breaker for monitoring.
func (g *GuardedModel) Breaker() *circuitbreaker.Breaker { return g.breaker }

// GenerateText implements ModelProvider.
func (g *GuardedModel) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	if err := g.wait(ctx); err != nil {
		return "", err
	}
	out, err := circuitbreaker.CallWithResultTyped(g.breaker, ctx, func(ctx context.Context) (string, error) {
		return g.inner.GenerateText(ctx, req)
	})
	return out, g.mapErr(err)
}

// GenerateStructured implements ModelProvider.
func (g *GuardedModel) GenerateStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	out, err := circuitbreaker.CallWithResultTyped(g.breaker, ctx, func(ctx context.Context) (json.RawMessage, error) {
		return g.inner.GenerateStructured(ctx, req)
	})
	return out, g.mapErr(err)
}

func (g *GuardedModel) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &Error{
			Code:       ErrRateLimited,
			Message:    fmt.Sprintf("%s: %v", g.name, err),
			HTTPStatus: http.StatusTooManyRequests,
			Retryable:  true,
			Provider:   g.name,
		}
	}
	return nil
}

func (g *GuardedModel) mapErr(err error) error {
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return &Error{
			Code:       ErrProviderUnavailable,
			Message:    err.Error(),
			HTTPStatus: http.StatusServiceUnavailable,
			Retryable:  true,
			Provider:   g.name,
		}
	}
	return err
}

// IsBreakerFailure counts upstream faults only. Client-side errors such as
// bad requests or bad credentials and caller cancellation leave the breaker alone.
func IsBreakerFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		switch llmErr.Code {
		case ErrInvalidRequest, ErrUnauthorized, ErrForbidden, ErrQuotaExceeded:
			return false
		}
	}
	return true
}

var _ ModelProvider = (*GuardedModel)(nil)
