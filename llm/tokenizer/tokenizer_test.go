package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimator_CountTokens(t *testing.T) {
	e := NewEstimatorTokenizer()

	n, err := e.CountTokens("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = e.CountTokens("ab")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = e.CountTokens(strings.Repeat("a", 400))
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	n, err = e.CountTokens("数据库数据库")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestEstimator_SplitPreservesOrder(t *testing.T) {
	e := NewEstimatorTokenizer()

	text := strings.Repeat("Hello world. ", 1000)
	chunks, err := e.Split(text, 100)
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)

	// 拼回后单词序列不变
	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(chunks, " ")))
	// 每个单词估算为 1 token，因此每段最多 100 个单词
	for _, c := range chunks {
		assert.LessOrEqual(t, len(strings.Fields(c)), 100)
	}
}

func TestEstimator_SplitLongWords(t *testing.T) {
	e := NewEstimatorTokenizer()

	tests := []struct {
		name string
		text string
	}{
		{"ascii run", strings.Repeat("a", 4000)},
		{"cjk run", strings.Repeat("数据库", 500)},
		{"mixed", "head " + strings.Repeat("x", 900) + " tail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := e.Split(tt.text, 100)
			require.NoError(t, err)
			assert.Greater(t, len(chunks), 1)
			for _, c := range chunks {
				n, _ := e.CountTokens(c)
				assert.LessOrEqual(t, n, 100)
			}
			// 去掉空白后内容与顺序不变
			assert.Equal(t, strings.Join(strings.Fields(tt.text), ""),
				strings.Join(strings.Fields(strings.Join(chunks, " ")), ""))
		})
	}
}

func TestEstimator_SplitEdgeCases(t *testing.T) {
	e := NewEstimatorTokenizer()

	chunks, err := e.Split("   ", 10)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = e.Split("short text", 800)
	require.NoError(t, err)
	assert.Equal(t, []string{"short text"}, chunks)

	_, err = e.Split("x", 0)
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	tok, err := New(KindEstimator, "")
	require.NoError(t, err)
	assert.Equal(t, "estimator", tok.Name())

	tok, err = New(KindTiktoken, "text-embedding-3-small")
	require.NoError(t, err)
	assert.Equal(t, "tiktoken[cl100k_base]", tok.Name())

	tok, err = New(KindTiktoken, "gpt-4o-2024-08-06")
	require.NoError(t, err)
	assert.Equal(t, "tiktoken[o200k_base]", tok.Name())

	_, err = New("bpe-magic", "")
	assert.Error(t, err)
}
