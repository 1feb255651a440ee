package context

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/BaSui01/turnkeeper/llm"
	"github.com/BaSui01/turnkeeper/testutil/fixtures"
	"github.com/BaSui01/turnkeeper/testutil/mocks"
	"github.com/BaSui01/turnkeeper/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// --- helpers ---

func history(n int) []types.Message {
	speakers := make([]string, n)
	for i := range speakers {
		speakers[i] = string(rune('A' + i%3))
	}
	return fixtures.Messages(speakers...)
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("cache down")
}
func (failingCache) Set(context.Context, string, string) error { return errors.New("cache down") }

type countingTokenizer struct {
	truncated int
}

func (c *countingTokenizer) CountTokens(text string) (int, error) { return len(text), nil }
func (c *countingTokenizer) TruncateFront(text string, maxTokens int) (string, error) {
	c.truncated++
	return text[len(text)-maxTokens:], nil
}
func (c *countingTokenizer) Name() string { return "bytes" }

func TestFormatTranscript(t *testing.T) {
	msgs := []types.Message{
		types.NewUserMessage("hi all"),
		types.NewAgentMessage("A", "hello"),
	}
	assert.Equal(t, "user: hi all\nA: hello", FormatTranscript(msgs))
	assert.Equal(t, "", FormatTranscript(nil))
}

func TestCompress_ShortHistoryVerbatim(t *testing.T) {
	t.Parallel()
	model := mocks.NewMockModel()
	c := NewCompressor(model, DefaultCompressorConfig())
	msgs := history(10)

	first, err := c.Compress(context.Background(), msgs)
	require.NoError(t, err)
	second, err := c.Compress(context.Background(), msgs)
	require.NoError(t, err)

	assert.Equal(t, FormatTranscript(msgs), first)
	assert.Equal(t, first, second)
	assert.Zero(t, model.TextCalls())
}

func TestCompress_VerbatimIdempotentProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		contents := rapid.SliceOfN(rapid.String(), 0, 10).Draw(t, "contents")
		msgs := make([]types.Message, len(contents))
		for i, s := range contents {
			msgs[i] = types.NewAgentMessage(fmt.Sprintf("agent-%d", i%3), s)
		}
		c := NewCompressor(mocks.NewMockModel(), DefaultCompressorConfig())

		a, err := c.Compress(context.Background(), msgs)
		if err != nil {
			t.Fatalf("compress: %v", err)
		}
		b, _ := c.Compress(context.Background(), msgs)
		if a != b {
			t.Fatalf("not idempotent: %q vs %q", a, b)
		}
	})
}

func TestCompress_LongHistorySummarised(t *testing.T) {
	t.Parallel()
	model := mocks.NewMockModel().WithTextReplies(mocks.Reply{Content: "  they argued about naming  "})
	c := NewCompressor(model, DefaultCompressorConfig())
	msgs := history(15)

	out, err := c.Compress(context.Background(), msgs)
	require.NoError(t, err)

	want := "Summary of earlier conversation:\nthey argued about naming\n\nRecent messages:\n" +
		FormatTranscript(msgs[5:])
	assert.Equal(t, want, out)

	calls := model.Calls()
	require.Len(t, calls, 1)
	req := calls[0].Text
	require.NotNil(t, req)
	assert.Equal(t, 1500, req.MaxTokens)
	assert.True(t, strings.HasSuffix(req.Prompt, FormatTranscript(msgs[:5])))
	assert.NotContains(t, req.Prompt, msgs[5].Content)
}

func TestCompress_SummaryErrorPropagates(t *testing.T) {
	t.Parallel()
	boom := types.NewError(types.ErrUpstreamTimeout, "slow").WithRetryable(true)
	model := mocks.NewMockModel().WithTextReplies(mocks.Reply{Err: boom})
	c := NewCompressor(model, DefaultCompressorConfig())

	_, err := c.Compress(context.Background(), history(11))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, model.TextCalls())
}

func TestCompressWindow(t *testing.T) {
	t.Parallel()
	model := mocks.NewMockModel()
	c := NewCompressor(model, DefaultCompressorConfig())
	msgs := history(30)

	out, err := c.CompressWindow(context.Background(), msgs, 5)
	require.NoError(t, err)
	assert.Equal(t, FormatTranscript(msgs[25:]), out)
	assert.Zero(t, model.TextCalls())

	out, err = c.CompressWindow(context.Background(), msgs[:3], 5)
	require.NoError(t, err)
	assert.Equal(t, FormatTranscript(msgs[:3]), out)

	out, err = c.CompressWindow(context.Background(), msgs, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCompress_CacheHitSkipsModel(t *testing.T) {
	t.Parallel()
	model := mocks.NewMockModel().WithDefaultText(mocks.Reply{Content: "summary"})
	cache := NewMemoryCache(0)
	c := NewCompressor(model, DefaultCompressorConfig(), WithSummaryCache(cache))
	msgs := history(12)

	first, err := c.Compress(context.Background(), msgs)
	require.NoError(t, err)
	second, err := c.Compress(context.Background(), msgs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, model.TextCalls())
	assert.Equal(t, 1, cache.Len())
}

func TestCompress_CacheFailureIgnored(t *testing.T) {
	t.Parallel()
	model := mocks.NewMockModel().WithDefaultText(mocks.Reply{Content: "summary"})
	c := NewCompressor(model, DefaultCompressorConfig(), WithSummaryCache(failingCache{}))

	out, err := c.Compress(context.Background(), history(12))
	require.NoError(t, err)
	assert.Contains(t, out, "summary")
}

func TestCompress_BoundsSummariserInput(t *testing.T) {
	t.Parallel()
	var prompt string
	model := mocks.NewMockModel().WithTextFunc(func(_ context.Context, req llm.TextRequest) (string, error) {
		prompt = req.Prompt
		return "s", nil
	})
	tok := &countingTokenizer{}
	cfg := DefaultCompressorConfig()
	cfg.MaxSummaryInputTokens = 8
	c := NewCompressor(model, cfg, WithTokenizer(tok))
	msgs := history(12)

	_, err := c.Compress(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, 1, tok.truncated)
	older := FormatTranscript(msgs[:2])
	assert.True(t, strings.HasSuffix(prompt, older[len(older)-8:]))
	assert.NotContains(t, prompt, older)
}

func TestMemoryCache_Evicts(t *testing.T) {
	cache := NewMemoryCache(2)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "a", "1"))
	require.NoError(t, cache.Set(ctx, "b", "2"))
	require.NoError(t, cache.Set(ctx, "c", "3"))

	_, ok, _ := cache.Get(ctx, "a")
	assert.False(t, ok)
	v, ok, err := cache.Get(ctx, "c")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "3", v)
	assert.Equal(t, 2, cache.Len())
}

func TestDefaultCompressorConfig_Normalized(t *testing.T) {
	c := NewCompressor(mocks.NewMockModel(), CompressorConfig{})
	assert.Equal(t, DefaultCompressorConfig().MaxVerbatim, c.Config().MaxVerbatim)
	assert.Equal(t, 1500, c.Config().MaxSummaryTokens)
}
