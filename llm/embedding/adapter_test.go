package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AAreesha/Cross-Reference-Database-System/llm/tokenizer"
	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// stubProvider 按输入文本返回预设向量，并记录调用顺序.
type stubProvider struct {
	mu      sync.Mutex
	vectors map[string][]float64
	err     error
	calls   []string
	delay   time.Duration

	// failFirst 前 N 次调用返回可重试错误
	failFirst int
}

func (s *stubProvider) Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req.Input...)
	transient := len(s.calls) <= s.failFirst
	s.mu.Unlock()

	if transient {
		return nil, types.NewError(types.ErrCodeEmbeddingUnavailable, "HTTP 503").WithRetryable(true)
	}

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	data := make([]EmbeddingData, len(req.Input))
	for i, in := range req.Input {
		data[i] = EmbeddingData{Index: i, Embedding: s.vectors[in]}
	}
	return &EmbeddingResponse{Embeddings: data}, nil
}

func (s *stubProvider) EmbedQuery(ctx context.Context, q string) ([]float64, error) {
	resp, err := s.Embed(ctx, &EmbeddingRequest{Input: []string{q}})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0].Embedding, nil
}

func (s *stubProvider) EmbedDocuments(ctx context.Context, docs []string) ([][]float64, error) {
	return nil, errors.New("not used")
}

func (s *stubProvider) Name() string    { return "stub" }
func (s *stubProvider) Dimensions() int { return 3 }

func newTestAdapter(p Provider, chunkTokens int) *Adapter {
	return NewAdapter(p, tokenizer.NewEstimatorTokenizer(), AdapterConfig{
		ChunkTokens: chunkTokens,
		Timeout:     time.Second,
	}, zap.NewNop())
}

func TestAdapter_SingleChunk(t *testing.T) {
	p := &stubProvider{vectors: map[string][]float64{"short text": {0.5, -1, 2}}}
	a := newTestAdapter(p, 800)

	vec, err := a.Embed(context.Background(), "short text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1, 2}, vec)
	assert.Equal(t, []string{"short text"}, p.calls)
	assert.Equal(t, 3, a.Dimensions())
	assert.Equal(t, "stub", a.Name())
}

func TestAdapter_MeanOfChunksNotNormalized(t *testing.T) {
	p := &stubProvider{vectors: map[string][]float64{
		"a b": {1, 0, 4},
		"c d": {3, 2, 0},
	}}
	a := newTestAdapter(p, 2)

	vec, err := a.Embed(context.Background(), "a b c d")
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 1, 2}, vec)
	// 块按原文顺序逐个嵌入
	assert.Equal(t, []string{"a b", "c d"}, p.calls)
}

func TestAdapter_Failures(t *testing.T) {
	tests := []struct {
		name string
		p    *stubProvider
		text string
	}{
		{"provider error", &stubProvider{err: errors.New("boom")}, "a b"},
		{"empty vector", &stubProvider{vectors: map[string][]float64{}}, "a b"},
		{"dimension mismatch", &stubProvider{vectors: map[string][]float64{
			"a b": {1, 2, 3},
			"c d": {1, 2},
		}}, "a b c d"},
		{"blank text", &stubProvider{}, "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAdapter(tt.p, 2)
			_, err := a.Embed(context.Background(), tt.text)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
		})
	}
}

func TestAdapter_TimeoutBoundsProviderCall(t *testing.T) {
	p := &stubProvider{delay: time.Second, vectors: map[string][]float64{"x": {1}}}
	a := NewAdapter(p, nil, AdapterConfig{Timeout: 20 * time.Millisecond}, nil)

	start := time.Now()
	_, err := a.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestAdapter_WithHashProvider(t *testing.T) {
	a := NewAdapter(NewHashProvider(HashConfig{Dimensions: 32}), nil, AdapterConfig{}, nil)

	v1, err := a.Embed(context.Background(), "patient glucose level")
	require.NoError(t, err)
	v2, err := a.Embed(context.Background(), "patient glucose level")
	require.NoError(t, err)
	assert.Len(t, v1, 32)
	assert.Equal(t, v1, v2)
}

func TestAdapter_RetriesTransientFailures(t *testing.T) {
	p := &stubProvider{failFirst: 2, vectors: map[string][]float64{"x": {1, 2, 3}}}
	a := NewAdapter(p, nil, AdapterConfig{Timeout: time.Second, MaxRetries: 2}, zap.NewNop())

	vec, err := a.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vec)
	assert.Equal(t, []string{"x", "x", "x"}, p.calls)
}

func TestAdapter_NoRetryByDefault(t *testing.T) {
	p := &stubProvider{failFirst: 1, vectors: map[string][]float64{"x": {1}}}
	a := newTestAdapter(p, 800)

	_, err := a.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
	assert.True(t, types.IsRetryable(err))
	assert.Len(t, p.calls, 1)
}
