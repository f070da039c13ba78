package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/AAreesha/Cross-Reference-Database-System/internal/tlsutil"
	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// OpenAIGenerator 调用 /v1/chat/completions 生成回答.
type OpenAIGenerator struct {
	cfg    OpenAIConfig
	client *http.Client
	logger *zap.Logger
}

// NewOpenAIGenerator creates a chat-completions generator.
func NewOpenAIGenerator(cfg OpenAIConfig, logger *zap.Logger) *OpenAIGenerator {
	defaults := DefaultOpenAIConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIGenerator{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("component", "generator"), zap.String("model", cfg.Model)),
	}
}

func (g *OpenAIGenerator) Name() string { return "openai-chat" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate 发送上下文与查询，失败时返回 GENERATION_UNAVAILABLE.
func (g *OpenAIGenerator) Generate(ctx context.Context, contextText, query string) (string, error) {
	body := chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(contextText, query)},
		},
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimRight(g.cfg.BaseURL, "/") + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", types.WrapError(types.ErrCodeGenerationUnavailable, "chat completion request failed", err).
			WithRetryable(true)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.WrapError(types.ErrCodeGenerationUnavailable, "read chat completion response", err)
	}
	if resp.StatusCode >= 400 {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return "", types.NewError(types.ErrCodeGenerationUnavailable,
			fmt.Sprintf("chat completion: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))).
			WithRetryable(retryable)
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", types.WrapError(types.ErrCodeGenerationUnavailable, "decode chat completion", err)
	}
	if len(cr.Choices) == 0 || strings.TrimSpace(cr.Choices[0].Message.Content) == "" {
		return "", types.NewError(types.ErrCodeGenerationUnavailable, "chat completion returned no content")
	}

	g.logger.Debug("answer generated",
		zap.Int("prompt_tokens", cr.Usage.PromptTokens),
		zap.Int("completion_tokens", cr.Usage.CompletionTokens))
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}

func buildUserPrompt(contextText, query string) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	b.WriteString(contextText)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	return b.String()
}
