package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errBoom = errors.New("boom")

func failing(context.Context) error { return errBoom }

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNew_Defaults(t *testing.T) {
	b := New("llm:test", Config{}, nil)
	assert.Equal(t, "llm:test", b.Name())
	assert.Equal(t, StateClosed, b.State())
}

// ---------------------------------------------------------------------------
// Call
// ---------------------------------------------------------------------------

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	var transitions []State
	b := New("llm:test", Config{
		Threshold:    2,
		ResetTimeout: time.Hour,
		OnStateChange: func(_ string, _, to State) {
			transitions = append(transitions, to)
		},
	}, zap.NewNop())

	ctx := context.Background()
	require.ErrorIs(t, b.Call(ctx, failing), errBoom)
	require.ErrorIs(t, b.Call(ctx, failing), errBoom)
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, []State{StateOpen}, transitions)

	called := false
	err := b.Call(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called, "open breaker must not reach downstream")
}

func TestBreaker_CancellationNotCounted(t *testing.T) {
	b := New("llm:test", Config{Threshold: 1, ResetTimeout: time.Hour}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := b.Call(ctx, func(context.Context) error { return context.Canceled })
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_CustomIsFailure(t *testing.T) {
	clientErr := errors.New("invalid request")
	b := New("llm:test", Config{
		Threshold:    1,
		ResetTimeout: time.Hour,
		IsFailure: func(err error) bool {
			return err != nil && !errors.Is(err, clientErr)
		},
	}, nil)

	err := b.Call(context.Background(), func(context.Context) error { return clientErr })
	assert.ErrorIs(t, err, clientErr)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_CanceledContextShortCircuits(t *testing.T) {
	b := New("llm:test", Config{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := b.Call(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestCallWithResultTyped(t *testing.T) {
	b := New("llm:test", Config{}, nil)
	v, err := CallWithResultTyped(b, context.Background(), func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = CallWithResultTyped(b, context.Background(), func(context.Context) (string, error) {
		return "", errBoom
	})
	assert.ErrorIs(t, err, errBoom)
}
