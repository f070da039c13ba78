package tokenizer

import (
	"fmt"
	"strings"
)

// Tokenizer 是统一的 Token 计数与切分接口。
type Tokenizer interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// Split 将文本按顺序切分为每段不超过 maxTokens 的片段.
	// 空白文本返回空切片。
	Split(text string, maxTokens int) ([]string, error)

	// Name 返回分词器的名称.
	Name() string
}

// Kind 分词器类型
type Kind string

const (
	KindTiktoken  Kind = "tiktoken"
	KindEstimator Kind = "estimator"
)

// New 按类型创建分词器。model 决定 tiktoken 编码。
func New(kind Kind, model string) (Tokenizer, error) {
	switch Kind(strings.ToLower(string(kind))) {
	case KindTiktoken:
		return NewTiktokenTokenizer(model)
	case KindEstimator, "":
		return NewEstimatorTokenizer(), nil
	default:
		return nil, fmt.Errorf("unknown tokenizer kind: %s", kind)
	}
}

// splitWords 按单词累积切分，每个单词的 token 数由 count 给出。
// 超过预算的单词（无空白的长串、CJK 文本）按字符再切开。
func splitWords(text string, maxTokens int, count func(string) int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	used := 0
	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			used = 0
		}
	}
	for _, w := range words {
		n := count(w)
		if n > maxTokens {
			flush()
			pieces := splitLongWord(w, maxTokens, count)
			chunks = append(chunks, pieces[:len(pieces)-1]...)
			w = pieces[len(pieces)-1]
			n = count(w)
		}
		if used > 0 && used+n > maxTokens {
			flush()
		}
		current = append(current, w)
		used += n
	}
	flush()
	return chunks
}

// splitLongWord 每段取不超过预算的最长前缀，至少一个字符。
// count 对前缀长度单调不减。
func splitLongWord(word string, maxTokens int, count func(string) int) []string {
	runes := []rune(word)
	var pieces []string
	for len(runes) > 0 {
		lo, hi := 1, len(runes)
		for lo < hi {
			mid := (lo + hi + 1) / 2
			if count(string(runes[:mid])) <= maxTokens {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		pieces = append(pieces, string(runes[:lo]))
		runes = runes[lo:]
	}
	return pieces
}
