package tokenizer

import (
	"unicode/utf8"
)

// EstimatorTokenizer is a character-count-based token estimator.
// It distinguishes CJK and ASCII characters for better accuracy
// compared to a naive len/4 approach.
type EstimatorTokenizer struct{}

// NewEstimatorTokenizer creates a generic estimator.
func NewEstimatorTokenizer() *EstimatorTokenizer {
	return &EstimatorTokenizer{}
}

func (e *EstimatorTokenizer) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	estimated := int(runeWeight(text))
	if estimated == 0 {
		estimated = 1
	}
	return estimated, nil
}

// TruncateFront drops leading runes until the estimate fits.
func (e *EstimatorTokenizer) TruncateFront(text string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		return "", nil
	}
	if n, _ := e.CountTokens(text); n <= maxTokens {
		return text, nil
	}

	// 从尾部向前累加权重，找到能容纳的最早位置
	budget := float64(maxTokens)
	var acc float64
	cut := len(text)
	for i := len(text); i > 0; {
		r, size := utf8.DecodeLastRuneInString(text[:i])
		acc += weight(r)
		if acc > budget {
			break
		}
		i -= size
		cut = i
	}
	return text[cut:], nil
}

func (e *EstimatorTokenizer) Name() string {
	return "estimator"
}

// CJK characters ~1.5 chars/token, ASCII ~4 chars/token.
func weight(r rune) float64 {
	if isCJK(r) {
		return 1 / 1.5
	}
	return 1 / 4.0
}

func runeWeight(text string) float64 {
	var total float64
	for _, r := range text {
		total += weight(r)
	}
	return total
}

// isCJK returns true if the rune is a CJK character.
func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || // CJK Unified Ideographs
		(r >= 0x3400 && r <= 0x4DBF) || // CJK Extension A
		(r >= 0x20000 && r <= 0x2A6DF) || // CJK Extension B
		(r >= 0xF900 && r <= 0xFAFF) || // CJK Compatibility Ideographs
		(r >= 0x3000 && r <= 0x303F) || // CJK Symbols and Punctuation
		(r >= 0xFF00 && r <= 0xFFEF) // Halfwidth and Fullwidth Forms
}
