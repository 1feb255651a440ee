package cache

import (
	"context"
	"testing"
	"time"

	agentctx "github.com/BaSui01/turnkeeper/agent/context"
	"github.com/BaSui01/turnkeeper/testutil/fixtures"
	"github.com/BaSui01/turnkeeper/testutil/mocks"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 RedisSummaryCache 测试
// =============================================================================

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisSummaryCache) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	config := DefaultConfig()
	config.Addr = mr.Addr()
	config.TTL = time.Hour
	config.HealthCheckInterval = 0

	c, err := NewRedisSummaryCache(config, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestRedisSummaryCache_SetAndGet(t *testing.T) {
	mr, c := setupTestRedis(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k1", "they agreed on Go"))

	got, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "they agreed on Go", got)

	assert.True(t, mr.Exists("turnkeeper:summary:k1"))
	assert.Equal(t, time.Hour, mr.TTL("turnkeeper:summary:k1"))
}

func TestRedisSummaryCache_Expires(t *testing.T) {
	mr, c := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v"))
	mr.FastForward(2 * time.Hour)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSummaryCache_ServerDown(t *testing.T) {
	mr, c := setupTestRedis(t)
	mr.Close()

	_, _, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, c.Set(context.Background(), "k", "v"))
}

func TestRedisSummaryCache_Closed(t *testing.T) {
	_, c := setupTestRedis(t)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, _, err := c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Set(context.Background(), "k", "v"), ErrClosed)
	assert.ErrorIs(t, c.Ping(context.Background()), ErrClosed)
}

func TestNewRedisSummaryCache_Unreachable(t *testing.T) {
	config := DefaultConfig()
	config.Addr = "127.0.0.1:1"
	config.MaxRetries = -1
	_, err := NewRedisSummaryCache(config, nil)
	assert.Error(t, err)
}

func TestRedisSummaryCache_BacksCompressor(t *testing.T) {
	_, c := setupTestRedis(t)
	model := mocks.NewMockModel().WithDefaultText(mocks.Reply{Content: "earlier: A proposed a plan"})
	comp := agentctx.NewCompressor(model, agentctx.DefaultCompressorConfig(), agentctx.WithSummaryCache(c))

	speakers := []string{"user", "A", "B", "C", "A", "B", "C", "A", "B", "C", "A", "B"}
	msgs := fixtures.Messages(speakers...)

	first, err := comp.Compress(context.Background(), msgs)
	require.NoError(t, err)
	second, err := comp.Compress(context.Background(), msgs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, model.TextCalls())
}

var _ agentctx.SummaryCache = (*RedisSummaryCache)(nil)
