package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/BaSui01/turnkeeper/types"
	"go.uber.org/zap"
)

// RetryPolicy 定义重试策略配置
// MaxRetries 为重试次数，总尝试次数为 MaxRetries+1
type RetryPolicy struct {
	MaxRetries   int           `yaml:"max_retries" env:"MAX_RETRIES"`     // 最大重试次数（0 表示不重试）
	InitialDelay time.Duration `yaml:"initial_delay" env:"INITIAL_DELAY"` // 初始延迟时间
	MaxDelay     time.Duration `yaml:"max_delay" env:"MAX_DELAY"`         // 最大延迟时间
	Multiplier   float64       `yaml:"multiplier" env:"MULTIPLIER"`       // 延迟时间倍增因子（指数退避）
	Jitter       bool          `yaml:"jitter" env:"JITTER"`               // 是否添加随机抖动
}

// DefaultRetryPolicy 返回调度决策使用的默认重试策略：
// 3 次重试，1s 起始，指数倍增 2，无抖动（1s, 2s, 4s）。
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       false,
	}
}

// normalized fills in invalid fields with defaults.
func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 1 * time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = 2.0
	}
	return p
}

// Attempts returns the total number of attempts the policy allows.
func (p RetryPolicy) Attempts() int {
	return p.normalized().MaxRetries + 1
}

// Delay returns the wait before the retry that follows the given failed
// attempt (1-based): InitialDelay * Multiplier^(attempt-1), capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	p = p.normalized()
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	// 添加随机抖动（±25%）
	if p.Jitter {
		jitter := delay * 0.25
		delay = delay + (rand.Float64()*2-1)*jitter
		if delay < float64(p.InitialDelay) {
			delay = float64(p.InitialDelay)
		}
	}
	return time.Duration(delay)
}

// Observer is notified of every failed attempt, including the last one before
// the retryer gives up, so MaxRetries=3 can yield four notifications. Attempts
// aborted by context cancellation are not reported. It must not affect control
// flow; a panicking observer is recovered and logged.
type Observer interface {
	OnAttemptFailed(err error, attempt int)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(err error, attempt int)

// OnAttemptFailed implements Observer.
func (f ObserverFunc) OnAttemptFailed(err error, attempt int) { f(err, attempt) }

// Observers fans a notification out to several observers.
type Observers []Observer

// OnAttemptFailed implements Observer.
func (o Observers) OnAttemptFailed(err error, attempt int) {
	for _, obs := range o {
		if obs != nil {
			obs.OnAttemptFailed(err, attempt)
		}
	}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retryer 重试器接口
type Retryer interface {
	// Do 执行函数，失败时根据策略重试
	Do(ctx context.Context, fn func(ctx context.Context) error) error

	// DoWithResult 执行函数并返回结果，失败时根据策略重试
	DoWithResult(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error)
}

// Option configures a backoff retryer.
type Option func(*backoffRetryer)

// WithObserver registers the observer notified on every failed attempt.
func WithObserver(o Observer) Option {
	return func(r *backoffRetryer) { r.observer = o }
}

// WithSleep replaces the wait between attempts. Tests use it to avoid real delays.
func WithSleep(fn SleepFunc) Option {
	return func(r *backoffRetryer) {
		if fn != nil {
			r.sleep = fn
		}
	}
}

// backoffRetryer 基于指数退避的重试器实现
type backoffRetryer struct {
	policy   RetryPolicy
	observer Observer
	sleep    SleepFunc
	logger   *zap.Logger
}

// NewBackoffRetryer 创建指数退避重试器
func NewBackoffRetryer(policy RetryPolicy, logger *zap.Logger, opts ...Option) Retryer {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &backoffRetryer{
		policy: policy.normalized(),
		sleep:  sleepContext,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do 实现 Retryer.Do
func (r *backoffRetryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := r.DoWithResult(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// DoWithResult 实现 Retryer.DoWithResult
// 取消与永久错误立即返回；其余错误按策略退避重试，耗尽后返回 *ExhaustedError。
func (r *backoffRetryer) DoWithResult(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	attempts := r.policy.MaxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				r.logger.Info("重试成功", zap.Int("attempt", attempt))
			}
			return result, nil
		}

		// 调用方放弃请求：不是可重试失败，也不通知观察者
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		lastErr = err
		r.notify(err, attempt)

		if IsPermanent(err) {
			r.logger.Debug("错误不可重试", zap.Error(err))
			return nil, err
		}
		if attempt == attempts {
			break
		}

		delay := r.policy.Delay(attempt)
		r.logger.Debug("重试中",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", r.policy.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := r.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	r.logger.Warn("重试次数耗尽",
		zap.Int("attempts", attempts),
		zap.Error(lastErr),
	)
	return nil, &ExhaustedError{Attempts: attempts, Last: lastErr}
}

func (r *backoffRetryer) notify(err error, attempt int) {
	if r.observer == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("retry observer panicked",
				zap.Int("attempt", attempt),
				zap.Any("panic", p),
			)
		}
	}()
	r.observer.OnAttemptFailed(err, attempt)
}

// DoWithResultTyped is a type-safe generic wrapper around Retryer.DoWithResult.
func DoWithResultTyped[T any](r Retryer, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	result, err := r.DoWithResult(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, _ := result.(T)
	return v, nil
}

// ExhaustedError reports that every attempt failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("重试 %d 次后仍失败: %v", e.Attempts-1, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// PermanentError marks an error that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so that the retryer gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is a configuration-class error that
// retrying cannot fix.
func IsPermanent(err error) bool {
	var permanent *PermanentError
	if errors.As(err, &permanent) {
		return true
	}
	var unsupported *types.UnsupportedProviderError
	if errors.As(err, &unsupported) {
		return true
	}
	return types.GetErrorCode(err) == types.ErrUnsupportedProvider
}
