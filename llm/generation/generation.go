package generation

import (
	"context"
	"time"
)

// Generator 根据编号上下文与查询生成回答.
type Generator interface {
	Generate(ctx context.Context, contextText, query string) (string, error)
	Name() string
}

// OpenAIConfig configures the chat-completions generator.
type OpenAIConfig struct {
	APIKey      string        `json:"api_key" yaml:"api_key"`
	BaseURL     string        `json:"base_url" yaml:"base_url"`
	Model       string        `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature float32       `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DefaultOpenAIConfig returns default generator config.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		BaseURL:     "https://api.openai.com",
		Model:       "gpt-4o-mini",
		Temperature: 0.2,
		MaxTokens:   512,
		Timeout:     60 * time.Second,
	}
}

const systemPrompt = "You answer questions using only the numbered context passages. " +
	"Each passage starts with [n], where n identifies its source database. " +
	"Cite sources with their [n] markers. If the context does not contain the answer, say so."
