package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// State 熔断器状态
type State = gobreaker.State

const (
	StateClosed   = gobreaker.StateClosed
	StateOpen     = gobreaker.StateOpen
	StateHalfOpen = gobreaker.StateHalfOpen
)

// ErrOpen 熔断打开或半开探测名额已满时返回，调用未到达下游。
var ErrOpen = errors.New("circuit breaker open")

// Config 熔断器配置
type Config struct {
	// Threshold 连续失败次数阈值（触发熔断）
	Threshold uint32 `yaml:"threshold" env:"THRESHOLD"`

	// ResetTimeout 熔断恢复等待时间（从 Open -> HalfOpen）
	ResetTimeout time.Duration `yaml:"reset_timeout" env:"RESET_TIMEOUT"`

	// Interval 关闭状态下清零计数的周期，0 表示不清零
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`

	// HalfOpenMaxCalls 半开状态下允许的最大请求数
	HalfOpenMaxCalls uint32 `yaml:"half_open_max_calls" env:"HALF_OPEN_MAX_CALLS"`

	// IsFailure 判断错误是否计入熔断失败，nil 时使用 DefaultIsFailure
	IsFailure func(err error) bool `yaml:"-"`

	// OnStateChange 状态变更回调
	OnStateChange func(name string, from, to State) `yaml:"-"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Threshold:        5,
		ResetTimeout:     60 * time.Second,
		Interval:         60 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// DefaultIsFailure 调用方取消不计入失败，其余错误均计入。
func DefaultIsFailure(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

// Breaker 基于 gobreaker 的熔断器，按名称区分下游。
type Breaker struct {
	name   string
	cb     *gobreaker.CircuitBreaker[any]
	logger *zap.Logger
}

// New 创建熔断器，零值字段使用默认值。
func New(name string, cfg Config, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.Threshold == 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.HalfOpenMaxCalls == 0 {
		cfg.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	isFailure := cfg.IsFailure
	if isFailure == nil {
		isFailure = DefaultIsFailure
	}

	b := &Breaker{name: name, logger: logger.With(zap.String("breaker", name))}
	threshold := cfg.Threshold
	onChange := cfg.OnStateChange
	b.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxCalls,
		Interval:    cfg.Interval,
		Timeout:     cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return !isFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("熔断器状态变更",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if onChange != nil {
				onChange(name, from, to)
			}
		},
	})
	return b
}

// Name 返回熔断器名称
func (b *Breaker) Name() string { return b.name }

// State 获取当前状态
func (b *Breaker) State() State { return b.cb.State() }

// Counts 返回当前计数
func (b *Breaker) Counts() gobreaker.Counts { return b.cb.Counts() }

// Call 执行调用，如果熔断器打开则返回 ErrOpen
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := b.CallWithResult(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// CallWithResult 执行调用并返回结果
func (b *Breaker) CallWithResult(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := b.cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, b.name, err)
	}
	return result, err
}

// CallWithResultTyped is a type-safe wrapper around Breaker.CallWithResult.
func CallWithResultTyped[T any](b *Breaker, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	result, err := b.CallWithResult(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	v, ok := result.(T)
	if !ok {
		return zero, nil
	}
	return v, nil
}
