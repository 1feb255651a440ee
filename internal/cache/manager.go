package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/turnkeeper/internal/tlsutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// =============================================================================
// 💾 摘要缓存
// =============================================================================

// ErrClosed 缓存已关闭
var ErrClosed = errors.New("summary cache is closed")

// Config 缓存配置
type Config struct {
	// 是否启用 Redis 摘要缓存；关闭时使用进程内缓存
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// Redis 地址
	Addr string `yaml:"addr" env:"ADDR"`

	// 密码
	Password string `yaml:"password" env:"PASSWORD"`

	// 数据库编号
	DB int `yaml:"db" env:"DB"`

	// 使用 TLS 连接（托管 Redis）
	TLS bool `yaml:"tls" env:"TLS"`

	// 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`

	// 摘要过期时间
	TTL time.Duration `yaml:"ttl" env:"TTL"`

	// 最大重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`

	// 最小空闲连接数
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`

	// 健康检查间隔，0 表示不检查
	HealthCheckInterval time.Duration `yaml:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"`
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		Enabled:             false,
		Addr:                "localhost:6379",
		DB:                  0,
		KeyPrefix:           "turnkeeper:summary:",
		TTL:                 24 * time.Hour,
		MaxRetries:          3,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
	}
}

// RedisSummaryCache 基于 Redis 的摘要缓存，实现 agent/context.SummaryCache
type RedisSummaryCache struct {
	redis  *redis.Client
	config Config
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewRedisSummaryCache 创建摘要缓存并检查连接
func NewRedisSummaryCache(config Config, logger *zap.Logger) (*RedisSummaryCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := &redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
	}
	if config.TLS {
		opts.TLSConfig = tlsutil.DefaultTLSConfig()
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	c := &RedisSummaryCache{
		redis:  client,
		config: config,
		logger: logger.With(zap.String("component", "summary_cache")),
		done:   make(chan struct{}),
	}

	if config.HealthCheckInterval > 0 {
		go c.healthCheckLoop()
	}

	c.logger.Info("summary cache initialized",
		zap.String("addr", config.Addr),
		zap.Duration("ttl", config.TTL),
	)
	return c, nil
}

// =============================================================================
// 🎯 核心方法
// =============================================================================

// Get 读取摘要；未命中返回 ok=false
func (c *RedisSummaryCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return "", false, ErrClosed
	}

	val, err := c.redis.Get(ctx, c.config.KeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("summary cache get: %w", err)
	}
	return val, true, nil
}

// Set 写入摘要
func (c *RedisSummaryCache) Set(ctx context.Context, key, summary string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClosed
	}

	if err := c.redis.Set(ctx, c.config.KeyPrefix+key, summary, c.config.TTL).Err(); err != nil {
		return fmt.Errorf("summary cache set: %w", err)
	}
	return nil
}

// Ping 检查 Redis 连接
func (c *RedisSummaryCache) Ping(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClosed
	}
	return c.redis.Ping(ctx).Err()
}

// Close 关闭缓存
func (c *RedisSummaryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	c.logger.Info("closing summary cache")
	return c.redis.Close()
}

// =============================================================================
// 🏥 健康检查
// =============================================================================

func (c *RedisSummaryCache) healthCheckLoop() {
	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := c.Ping(ctx); err != nil && !errors.Is(err, ErrClosed) {
				c.logger.Error("summary cache health check failed", zap.Error(err))
			} else {
				c.logger.Debug("summary cache health check passed")
			}
			cancel()
		}
	}
}
