package tokenizer

import "strings"

// Tokenizer 统一的 token 计数与截断接口。
type Tokenizer interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// TruncateFront 从头部丢弃内容，使结果不超过 maxTokens 个 token.
	// 保留的是文本末尾，即最近的对话内容。
	TruncateFront(text string, maxTokens int) (string, error)

	// Name 返回分词器的名称.
	Name() string
}

// ForModel 为 OpenAI 系模型返回 tiktoken 分词器，其余模型返回估算器.
func ForModel(model string) Tokenizer {
	if _, ok := lookupEncoding(model); ok {
		return NewTiktokenTokenizer(model)
	}
	return NewEstimatorTokenizer()
}

// lookupEncoding 精确匹配优先，其次最长前缀匹配.
func lookupEncoding(model string) (string, bool) {
	if enc, ok := modelEncodings[model]; ok {
		return enc, true
	}
	best, bestLen := "", 0
	for prefix, enc := range modelEncodings {
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			best, bestLen = enc, len(prefix)
		}
	}
	return best, bestLen > 0
}
