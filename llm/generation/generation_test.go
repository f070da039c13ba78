package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

func TestOpenAIGenerator_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Contains(t, req.Messages[1].Content, "[1] alpha record")
		assert.Contains(t, req.Messages[1].Content, "Question: what is alpha")

		w.Write([]byte(`{"id":"c1","choices":[{"index":0,"message":{"role":"assistant","content":"  Alpha is a record [1]. "}}]}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL}, zap.NewNop())
	answer, err := g.Generate(context.Background(), "[1] alpha record", "what is alpha")
	require.NoError(t, err)
	assert.Equal(t, "Alpha is a record [1].", answer)
	assert.Equal(t, "openai-chat", g.Name())
}

func TestOpenAIGenerator_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{"server error", http.StatusBadGateway, `upstream down`, true},
		{"rate limited", http.StatusTooManyRequests, `slow down`, true},
		{"bad key", http.StatusUnauthorized, `{"error":"bad key"}`, false},
		{"no choices", http.StatusOK, `{"choices":[]}`, false},
		{"malformed", http.StatusOK, `{"choices":`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := NewOpenAIGenerator(OpenAIConfig{BaseURL: srv.URL}, nil)
			_, err := g.Generate(context.Background(), "[1] x", "q")
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrGenerationUnavailable)
			assert.Equal(t, tt.retryable, types.IsRetryable(err))
		})
	}
}

func TestExtractiveGenerator(t *testing.T) {
	g := NewExtractiveGenerator(2)

	answer, err := g.Generate(context.Background(), "[1] a\n\n[2] b\n\n[1] c", "q")
	require.NoError(t, err)
	assert.Equal(t, "[1] a\n[2] b", answer)

	_, err = g.Generate(context.Background(), "   ", "q")
	assert.ErrorIs(t, err, types.ErrGenerationUnavailable)
}
