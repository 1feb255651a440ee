package context

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/BaSui01/turnkeeper/llm"
	"github.com/BaSui01/turnkeeper/llm/tokenizer"
	"github.com/BaSui01/turnkeeper/types"
	"go.uber.org/zap"
)

// summaryInstruction is sent ahead of the older transcript.
const summaryInstruction = "Summarize the following group conversation concisely. " +
	"Keep who said what, open questions and any decisions that were made. " +
	"Reply with the summary only.\n\nConversation:\n"

const (
	summaryHeader = "Summary of earlier conversation:\n"
	recentHeader  = "\n\nRecent messages:\n"
)

// CompressorConfig configures the compressor.
type CompressorConfig struct {
	// MaxVerbatim 原样保留的最近消息条数
	MaxVerbatim int `yaml:"max_verbatim" env:"MAX_VERBATIM"`
	// MaxSummaryTokens 摘要输出的 token 上限
	MaxSummaryTokens int `yaml:"max_summary_tokens" env:"MAX_SUMMARY_TOKENS"`
	// MaxSummaryInputTokens 喂给摘要模型的旧消息 token 上限，超出时从头部截断
	MaxSummaryInputTokens int `yaml:"max_summary_input_tokens" env:"MAX_SUMMARY_INPUT_TOKENS"`
}

// DefaultCompressorConfig returns the defaults: 10 verbatim messages, a
// 1500-token summary and a 12000-token summariser input.
func DefaultCompressorConfig() CompressorConfig {
	return CompressorConfig{
		MaxVerbatim:           10,
		MaxSummaryTokens:      1500,
		MaxSummaryInputTokens: 12000,
	}
}

func (c CompressorConfig) normalized() CompressorConfig {
	def := DefaultCompressorConfig()
	if c.MaxVerbatim <= 0 {
		c.MaxVerbatim = def.MaxVerbatim
	}
	if c.MaxSummaryTokens <= 0 {
		c.MaxSummaryTokens = def.MaxSummaryTokens
	}
	if c.MaxSummaryInputTokens < 0 {
		c.MaxSummaryInputTokens = 0
	}
	return c
}

// Compressor turns a message history into a bounded textual context for
// oracle prompts. It keeps no per-conversation state.
type Compressor struct {
	config    CompressorConfig
	model     llm.ModelProvider
	tokenizer tokenizer.Tokenizer
	cache     SummaryCache
	logger    *zap.Logger
}

// Option configures a Compressor.
type Option func(*Compressor)

// WithTokenizer sets the tokenizer used to bound the summariser input.
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(c *Compressor) {
		if t != nil {
			c.tokenizer = t
		}
	}
}

// WithSummaryCache enables summary caching.
func WithSummaryCache(cache SummaryCache) Option {
	return func(c *Compressor) { c.cache = cache }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Compressor) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCompressor creates a Compressor summarising through model.
func NewCompressor(model llm.ModelProvider, config CompressorConfig, opts ...Option) *Compressor {
	c := &Compressor{
		config:    config.normalized(),
		model:     model,
		tokenizer: tokenizer.NewEstimatorTokenizer(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "context_compressor"))
	return c
}

// Config returns the effective configuration.
func (c *Compressor) Config() CompressorConfig { return c.config }

// Compress renders messages as prompt context. Histories of at most
// MaxVerbatim messages are returned verbatim without an oracle call; longer
// ones have everything but the last MaxVerbatim messages summarised.
// A summarisation failure is returned unchanged.
func (c *Compressor) Compress(ctx context.Context, messages []types.Message) (string, error) {
	if len(messages) <= c.config.MaxVerbatim {
		return FormatTranscript(messages), nil
	}

	split := len(messages) - c.config.MaxVerbatim
	older, recent := messages[:split], messages[split:]

	summary, err := c.summarize(ctx, FormatTranscript(older))
	if err != nil {
		return "", err
	}
	return summaryHeader + summary + recentHeader + FormatTranscript(recent), nil
}

// CompressWindow compresses only the last n messages.
func (c *Compressor) CompressWindow(ctx context.Context, messages []types.Message, n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	return c.Compress(ctx, types.LastMessages(messages, n))
}

func (c *Compressor) summarize(ctx context.Context, transcript string) (string, error) {
	key := c.cacheKey(transcript)
	if c.cache != nil {
		cached, ok, err := c.cache.Get(ctx, key)
		switch {
		case err != nil:
			c.logger.Warn("summary cache read failed", zap.Error(err))
		case ok:
			c.logger.Debug("summary cache hit", zap.String("key", key))
			return cached, nil
		}
	}

	input := c.boundInput(transcript)
	summary, err := c.model.GenerateText(ctx, llm.TextRequest{
		Prompt:    summaryInstruction + input,
		MaxTokens: c.config.MaxSummaryTokens,
	})
	if err != nil {
		return "", err
	}
	summary = strings.TrimSpace(summary)

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, summary); err != nil {
			c.logger.Warn("summary cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

// boundInput 超出输入预算时丢弃最旧的内容；分词器出错时保留原文
func (c *Compressor) boundInput(transcript string) string {
	limit := c.config.MaxSummaryInputTokens
	if limit == 0 {
		return transcript
	}
	n, err := c.tokenizer.CountTokens(transcript)
	if err != nil {
		c.logger.Warn("token count failed, sending full transcript",
			zap.String("tokenizer", c.tokenizer.Name()), zap.Error(err))
		return transcript
	}
	if n <= limit {
		return transcript
	}
	truncated, err := c.tokenizer.TruncateFront(transcript, limit)
	if err != nil {
		c.logger.Warn("truncation failed, sending full transcript",
			zap.String("tokenizer", c.tokenizer.Name()), zap.Error(err))
		return transcript
	}
	c.logger.Debug("summariser input truncated", zap.Int("tokens", n), zap.Int("limit", limit))
	return truncated
}

func (c *Compressor) cacheKey(transcript string) string {
	h := sha256.New()
	h.Write([]byte(transcript))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(c.config.MaxSummaryTokens)))
	return hex.EncodeToString(h.Sum(nil))
}

// FormatTranscript renders one "speaker: content" line per message.
func FormatTranscript(messages []types.Message) string {
	var sb strings.Builder
	for i, m := range messages {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(m.Speaker)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
	}
	return sb.String()
}
