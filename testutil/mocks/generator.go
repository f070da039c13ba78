package mocks

import (
	"context"
	"sync"

	"github.com/AAreesha/Cross-Reference-Database-System/llm/generation"
)

// GenerateCall 一次 Generate 调用的参数
type GenerateCall struct {
	ContextText string
	Query       string
}

// MockGenerator 是 generation.Generator 的模拟实现
type MockGenerator struct {
	mu sync.RWMutex

	response string
	err      error
	calls    []GenerateCall
}

// NewMockGenerator 创建返回固定回答的模拟生成器
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{response: "mock answer"}
}

// WithResponse 设置固定回答
func (m *MockGenerator) WithResponse(answer string) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = answer
	return m
}

// WithError 设置每次调用返回的错误
func (m *MockGenerator) WithError(err error) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Generate 实现 generation.Generator
func (m *MockGenerator) Generate(ctx context.Context, contextText, query string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, GenerateCall{ContextText: contextText, Query: query})
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// Name 实现 generation.Generator
func (m *MockGenerator) Name() string { return "mock" }

// Calls 返回调用记录
func (m *MockGenerator) Calls() []GenerateCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]GenerateCall(nil), m.calls...)
}

var _ generation.Generator = (*MockGenerator)(nil)
