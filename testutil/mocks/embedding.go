// MockEmbeddingProvider 的嵌入提供商测试模拟实现。
//
// 支持按文本预设向量、错误注入与调用记录。
package mocks

import (
	"context"
	"sync"

	"github.com/AAreesha/Cross-Reference-Database-System/llm/embedding"
)

// MockEmbeddingProvider 是 embedding.Provider 的模拟实现
type MockEmbeddingProvider struct {
	mu sync.RWMutex

	dimensions int
	vectors    map[string][]float64
	err        error
	calls      [][]string
}

// NewMockEmbeddingProvider 创建默认 4 维的模拟提供商。
// 未预设的文本返回 (1, 0, ..., 0)。
func NewMockEmbeddingProvider() *MockEmbeddingProvider {
	return &MockEmbeddingProvider{
		dimensions: 4,
		vectors:    make(map[string][]float64),
	}
}

// --- Builder 方法 ---

// WithDimensions 设置向量维度
func (m *MockEmbeddingProvider) WithDimensions(d int) *MockEmbeddingProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimensions = d
	return m
}

// WithVector 为指定文本预设向量
func (m *MockEmbeddingProvider) WithVector(text string, vec []float64) *MockEmbeddingProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors[text] = vec
	return m
}

// WithError 设置每次调用返回的错误
func (m *MockEmbeddingProvider) WithError(err error) *MockEmbeddingProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// --- embedding.Provider 实现 ---

// Embed 实现 embedding.Provider
func (m *MockEmbeddingProvider) Embed(ctx context.Context, req *embedding.EmbeddingRequest) (*embedding.EmbeddingResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), req.Input...))
	err := m.err
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	resp := &embedding.EmbeddingResponse{
		Provider:   m.Name(),
		Model:      "mock",
		Embeddings: make([]embedding.EmbeddingData, len(req.Input)),
	}
	for i, text := range req.Input {
		resp.Embeddings[i] = embedding.EmbeddingData{Index: i, Embedding: m.vectorFor(text)}
	}
	return resp, nil
}

// EmbedQuery 实现 embedding.Provider
func (m *MockEmbeddingProvider) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	resp, err := m.Embed(ctx, &embedding.EmbeddingRequest{Input: []string{query}, InputType: embedding.InputTypeQuery})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0].Embedding, nil
}

// EmbedDocuments 实现 embedding.Provider
func (m *MockEmbeddingProvider) EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error) {
	resp, err := m.Embed(ctx, &embedding.EmbeddingRequest{Input: documents, InputType: embedding.InputTypeDocument})
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(resp.Embeddings))
	for i, d := range resp.Embeddings {
		out[i] = d.Embedding
	}
	return out, nil
}

// Name 实现 embedding.Provider
func (m *MockEmbeddingProvider) Name() string { return "mock" }

// Dimensions 实现 embedding.Provider
func (m *MockEmbeddingProvider) Dimensions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dimensions
}

// --- 调用记录 ---

// Calls 返回每次 Embed 调用的输入
func (m *MockEmbeddingProvider) Calls() [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// vectorFor 调用方需持有读锁
func (m *MockEmbeddingProvider) vectorFor(text string) []float64 {
	if v, ok := m.vectors[text]; ok {
		return append([]float64(nil), v...)
	}
	v := make([]float64, m.dimensions)
	if len(v) > 0 {
		v[0] = 1
	}
	return v
}

var _ embedding.Provider = (*MockEmbeddingProvider)(nil)
