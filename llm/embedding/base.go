package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AAreesha/Cross-Reference-Database-System/internal/tlsutil"
	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// BaseProvider 为 HTTP 嵌入提供者提供公共能力.
type BaseProvider struct {
	name       string
	client     *http.Client
	baseURL    string
	model      string
	dimensions int
}

// BaseConfig 持有基础提供者的公共配置.
type BaseConfig struct {
	Name       string
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// NewBaseProvider 创建基础提供者.
func NewBaseProvider(cfg BaseConfig) *BaseProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &BaseProvider{
		name:       cfg.Name,
		client:     tlsutil.SecureHTTPClient(timeout),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

func (p *BaseProvider) Name() string    { return p.name }
func (p *BaseProvider) Dimensions() int { return p.dimensions }

// EmbedQuery 嵌入单个查询字符串.
func (p *BaseProvider) EmbedQuery(ctx context.Context, query string, embedFn func(context.Context, *EmbeddingRequest) (*EmbeddingResponse, error)) ([]float64, error) {
	resp, err := embedFn(ctx, &EmbeddingRequest{
		Input:     []string{query},
		InputType: InputTypeQuery,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, types.NewError(types.ErrCodeEmbeddingUnavailable, p.name+": no embeddings returned")
	}
	return resp.Embeddings[0].Embedding, nil
}

// EmbedDocuments 嵌入多个文档，结果按 Index 归位.
func (p *BaseProvider) EmbedDocuments(ctx context.Context, documents []string, embedFn func(context.Context, *EmbeddingRequest) (*EmbeddingResponse, error)) ([][]float64, error) {
	resp, err := embedFn(ctx, &EmbeddingRequest{
		Input:     documents,
		InputType: InputTypeDocument,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(documents) {
		return nil, types.NewError(types.ErrCodeEmbeddingUnavailable,
			fmt.Sprintf("%s: expected %d embeddings, got %d", p.name, len(documents), len(resp.Embeddings)))
	}
	result := make([][]float64, len(documents))
	for i, emb := range resp.Embeddings {
		idx := emb.Index
		if idx < 0 || idx >= len(result) {
			idx = i
		}
		result[idx] = emb.Embedding
	}
	return result, nil
}

// DoRequest 执行 HTTP 请求并统一映射错误.
func (p *BaseProvider) DoRequest(ctx context.Context, method, endpoint string, body any, headers map[string]string) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeEmbeddingUnavailable, p.name+": request failed", err).
			WithRetryable(true)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeEmbeddingUnavailable, p.name+": read response", err)
	}

	if resp.StatusCode >= 400 {
		return nil, mapHTTPError(resp.StatusCode, string(respBody), p.name)
	}

	return respBody, nil
}

// mapHTTPError 将 HTTP 状态映射为 EMBEDDING_UNAVAILABLE 错误，5xx 与 429 可重试.
func mapHTTPError(status int, msg, provider string) *types.Error {
	retryable := status >= 500 || status == http.StatusTooManyRequests
	return types.NewError(types.ErrCodeEmbeddingUnavailable,
		fmt.Sprintf("%s: HTTP %d: %s", provider, status, strings.TrimSpace(msg))).
		WithRetryable(retryable)
}

// ChooseModel 从请求或默认值中选择模型.
func ChooseModel(reqModel, defaultModel, fallback string) string {
	if reqModel != "" {
		return reqModel
	}
	if defaultModel != "" {
		return defaultModel
	}
	return fallback
}
