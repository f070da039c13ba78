package rag

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// LexicalTerms 从查询中提取词法检索词项：小写、按非字母数字切分、
// 丢弃单字符词项并去重（保留首次出现顺序）.
func LexicalTerms(query string) []string {
	tokens := lexicalTokens(query)
	terms := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) <= 1 {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, tok)
	}
	return terms
}

func lexicalTokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// LexicalScore 计算词项对文本的前缀匹配得分.
// 任一词项未命中时返回 (0, false)；否则得分为各词项命中次数之和
// 除以 1+ln(1+文本词数)，恒为正数.
func LexicalScore(terms []string, text string) (float64, bool) {
	if len(terms) == 0 {
		return 0, false
	}
	docTokens := lexicalTokens(text)
	if len(docTokens) == 0 {
		return 0, false
	}

	total := 0
	for _, term := range terms {
		hits := 0
		for _, tok := range docTokens {
			if strings.HasPrefix(tok, term) {
				hits++
			}
		}
		if hits == 0 {
			return 0, false
		}
		total += hits
	}
	return float64(total) / (1 + math.Log(1+float64(len(docTokens)))), true
}
