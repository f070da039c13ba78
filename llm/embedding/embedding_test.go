package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// --- ChooseModel ---

func TestChooseModel(t *testing.T) {
	assert.Equal(t, "req-model", ChooseModel("req-model", "default", "fallback"))
	assert.Equal(t, "default", ChooseModel("", "default", "fallback"))
	assert.Equal(t, "fallback", ChooseModel("", "", "fallback"))
}

// --- BaseProvider ---

func TestNewBaseProvider(t *testing.T) {
	bp := NewBaseProvider(BaseConfig{
		Name:       "test",
		BaseURL:    "http://example.com/",
		Dimensions: 512,
	})
	assert.Equal(t, "test", bp.Name())
	assert.Equal(t, 512, bp.Dimensions())
	// BaseURL trailing slash trimmed
	assert.Equal(t, "http://example.com", bp.baseURL)
}

func TestBaseProviderDoRequest(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		bp := NewBaseProvider(BaseConfig{Name: "test", BaseURL: srv.URL})
		body, err := bp.DoRequest(context.Background(), "POST", "/embed", map[string]string{"q": "hello"}, map[string]string{
			"Authorization": "Bearer test-key",
		})
		require.NoError(t, err)
		assert.Contains(t, string(body), `"ok":true`)
	})

	t.Run("HTTP error mapped", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid key"}`))
		}))
		defer srv.Close()

		bp := NewBaseProvider(BaseConfig{Name: "test", BaseURL: srv.URL})
		_, err := bp.DoRequest(context.Background(), "POST", "/embed", nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid key")
		assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
		assert.False(t, types.IsRetryable(err))
	})

	t.Run("connection refused is retryable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		bp := NewBaseProvider(BaseConfig{Name: "test", BaseURL: url, Timeout: time.Second})
		_, err := bp.DoRequest(context.Background(), "GET", "/health", nil, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
		assert.True(t, types.IsRetryable(err))
	})
}

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusUnauthorized, false},
		{http.StatusBadRequest, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := mapHTTPError(tt.status, "test error", "test-provider")
			assert.Equal(t, types.ErrCodeEmbeddingUnavailable, err.Code)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Contains(t, err.Message, "test-provider")
		})
	}
}

func TestBaseProviderEmbedDocumentsReordersByIndex(t *testing.T) {
	reversed := func(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
		return &EmbeddingResponse{Embeddings: []EmbeddingData{
			{Index: 1, Embedding: []float64{2}},
			{Index: 0, Embedding: []float64{1}},
		}}, nil
	}
	bp := NewBaseProvider(BaseConfig{Name: "test"})

	vecs, err := bp.EmbedDocuments(context.Background(), []string{"a", "b"}, reversed)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1}, {2}}, vecs)

	_, err = bp.EmbedDocuments(context.Background(), []string{"a", "b", "c"}, reversed)
	assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
}

// --- OpenAI Provider ---

func newOpenAITestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *OpenAIProvider) {
	t.Helper()
	srv := httptest.NewServer(handler)
	p := NewOpenAIProvider(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	})
	return srv, p
}

func TestOpenAIProviderEmbed(t *testing.T) {
	srv, p := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		assert.Equal(t, 1536, req.Dimensions)

		resp := openAIEmbedResponse{
			Object: "list",
			Model:  "text-embedding-3-small",
			Data: []openAIEmbedData{
				{Object: "embedding", Index: 0, Embedding: []float64{0.1, 0.2, 0.3}},
			},
		}
		resp.Usage.PromptTokens = 5
		resp.Usage.TotalTokens = 5
		json.NewEncoder(w).Encode(resp)
	})
	defer srv.Close()

	resp, err := p.Embed(context.Background(), &EmbeddingRequest{
		Input: []string{"hello world"},
	})
	require.NoError(t, err)
	assert.Equal(t, "openai-embedding", resp.Provider)
	assert.Equal(t, "text-embedding-3-small", resp.Model)
	require.Len(t, resp.Embeddings, 1)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, resp.Embeddings[0].Embedding)
	assert.Equal(t, 5, resp.Usage.PromptTokens)
}

func TestOpenAIProviderMalformedBody(t *testing.T) {
	srv, p := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [`))
	})
	defer srv.Close()

	_, err := p.EmbedQuery(context.Background(), "q")
	assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
}

func TestOpenAIProviderDefaults(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k"})
	assert.Equal(t, "openai-embedding", p.Name())
	assert.Equal(t, 1536, p.Dimensions())
	assert.Equal(t, "https://api.openai.com", p.baseURL)
}

// --- Hash Provider ---

func TestHashProviderDeterministic(t *testing.T) {
	p := NewHashProvider(HashConfig{Dimensions: 64})
	ctx := context.Background()

	a, err := p.EmbedQuery(ctx, "Blood pressure reading")
	require.NoError(t, err)
	b, err := p.EmbedQuery(ctx, "blood   PRESSURE, reading")
	require.NoError(t, err)

	require.Len(t, a, 64)
	assert.Equal(t, a, b)

	var norm float64
	for _, v := range a {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestHashProviderEmptyTextIsZeroVector(t *testing.T) {
	p := NewHashProvider(HashConfig{})
	vec, err := p.EmbedQuery(context.Background(), "  !!  ")
	require.NoError(t, err)
	assert.Len(t, vec, DefaultHashConfig().Dimensions)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestHashProviderCancelledContext(t *testing.T) {
	p := NewHashProvider(HashConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Embed(ctx, &EmbeddingRequest{Input: []string{"x"}})
	assert.True(t, errors.Is(err, context.Canceled))
}
