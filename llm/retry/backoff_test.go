package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/turnkeeper/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingSleep records requested delays without waiting.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

type failure struct {
	err     error
	attempt int
}

type recordingObserver struct {
	failures []failure
}

func (o *recordingObserver) OnAttemptFailed(err error, attempt int) {
	o.failures = append(o.failures, failure{err: err, attempt: attempt})
}

func newTestRetryer(obs Observer, s *recordingSleep) Retryer {
	return NewBackoffRetryer(DefaultRetryPolicy(), zap.NewNop(), WithObserver(obs), WithSleep(s.sleep))
}

func TestBackoffRetryer_Success(t *testing.T) {
	s := &recordingSleep{}
	obs := &recordingObserver{}
	retryer := newTestRetryer(obs, s)

	callCount := 0
	err := retryer.Do(context.Background(), func(ctx context.Context) error {
		callCount++
		return nil // 第一次就成功
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, callCount, "应该只调用一次")
	assert.Empty(t, obs.failures)
	assert.Empty(t, s.delays)
}

func TestBackoffRetryer_RetryThenSucceed(t *testing.T) {
	s := &recordingSleep{}
	obs := &recordingObserver{}
	retryer := newTestRetryer(obs, s)

	testErr := errors.New("temporary error")
	callCount := 0
	got, err := DoWithResultTyped(retryer, context.Background(), func(ctx context.Context) (string, error) {
		callCount++
		if callCount < 3 {
			return "", testErr // 前两次失败
		}
		return "third", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "third", got)
	assert.Equal(t, 3, callCount)
	require.Len(t, obs.failures, 2, "observer fires once per failed attempt")
	assert.Equal(t, 1, obs.failures[0].attempt)
	assert.Equal(t, 2, obs.failures[1].attempt)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, s.delays)
}

func TestBackoffRetryer_Exhausted(t *testing.T) {
	s := &recordingSleep{}
	obs := &recordingObserver{}
	retryer := newTestRetryer(obs, s)

	testErr := errors.New("persistent error")
	callCount := 0
	err := retryer.Do(context.Background(), func(ctx context.Context) error {
		callCount++
		return testErr // 始终失败
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 4, exhausted.Attempts)
	assert.ErrorIs(t, err, testErr)
	assert.Contains(t, err.Error(), "重试 3 次后仍失败")
	assert.Equal(t, 4, callCount, "初始+3次重试")
	require.Len(t, obs.failures, 4, "the final failed attempt is reported as well")
	assert.Equal(t, 4, obs.failures[3].attempt)
	assert.ErrorIs(t, obs.failures[3].err, testErr)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, s.delays)
}

func TestBackoffRetryer_CancellationStopsImmediately(t *testing.T) {
	obs := &recordingObserver{}
	ctx, cancel := context.WithCancel(context.Background())

	callCount := 0
	retryer := NewBackoffRetryer(DefaultRetryPolicy(), zap.NewNop(), WithObserver(obs))
	err := retryer.Do(ctx, func(ctx context.Context) error {
		callCount++
		cancel()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted))
	assert.Equal(t, 1, callCount)
	assert.Empty(t, obs.failures, "cancellation is not a failed attempt")
}

func TestBackoffRetryer_CancelledDuringBackoff(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 5, InitialDelay: time.Hour, Multiplier: 2}
	retryer := NewBackoffRetryer(policy, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	callCount := 0
	err := retryer.Do(ctx, func(ctx context.Context) error {
		callCount++
		return errors.New("boom")
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, callCount)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestBackoffRetryer_PermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "wrapped permanent", err: Permanent(errors.New("config"))},
		{name: "unsupported provider", err: &types.UnsupportedProviderError{Provider: "x"}},
		{name: "unsupported code", err: types.NewError(types.ErrUnsupportedProvider, "nope")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &recordingSleep{}
			obs := &recordingObserver{}
			retryer := newTestRetryer(obs, s)

			callCount := 0
			err := retryer.Do(context.Background(), func(ctx context.Context) error {
				callCount++
				return tt.err
			})

			assert.Equal(t, tt.err, err)
			assert.Equal(t, 1, callCount)
			assert.Len(t, obs.failures, 1)
			assert.Empty(t, s.delays)
		})
	}
}

func TestBackoffRetryer_PanickingObserverIgnored(t *testing.T) {
	s := &recordingSleep{}
	obs := ObserverFunc(func(err error, attempt int) { panic("observer bug") })
	retryer := newTestRetryer(obs, s)

	callCount := 0
	err := retryer.Do(context.Background(), func(ctx context.Context) error {
		callCount++
		if callCount == 1 {
			return errors.New("once")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, callCount)
}

func TestObservers_FanOut(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	Observers{a, nil, b}.OnAttemptFailed(errors.New("x"), 2)
	assert.Len(t, a.failures, 1)
	assert.Len(t, b.failures, 1)
	assert.Equal(t, 2, b.failures[0].attempt)
}

func TestRetryPolicy_Delay(t *testing.T) {
	tests := []struct {
		name    string
		policy  RetryPolicy
		attempt int
		want    time.Duration
	}{
		{"first retry uses initial delay", DefaultRetryPolicy(), 1, time.Second},
		{"exponential growth", DefaultRetryPolicy(), 3, 4 * time.Second},
		{"capped at max delay", RetryPolicy{InitialDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2}, 5, 3 * time.Second},
		{"invalid multiplier falls back to 2", RetryPolicy{InitialDelay: time.Second, Multiplier: 0.5}, 2, 2 * time.Second},
		{"attempt below one treated as one", DefaultRetryPolicy(), 0, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Delay(tt.attempt))
		})
	}
}

func TestRetryPolicy_JitterStaysInRange(t *testing.T) {
	policy := RetryPolicy{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2, Jitter: true}
	for i := 0; i < 50; i++ {
		d := policy.Delay(3)
		assert.GreaterOrEqual(t, d, 300*time.Millisecond)
		assert.LessOrEqual(t, d, 500*time.Millisecond)
	}
}

func TestRetryPolicy_Attempts(t *testing.T) {
	assert.Equal(t, 4, DefaultRetryPolicy().Attempts())
	assert.Equal(t, 1, RetryPolicy{MaxRetries: -2}.Attempts())
}
