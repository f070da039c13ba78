package embedding

import "time"

// OpenAIConfig configures the OpenAI embedding provider.
type OpenAIConfig struct {
	APIKey     string        `json:"api_key" yaml:"api_key"`
	BaseURL    string        `json:"base_url" yaml:"base_url"`
	Model      string        `json:"model,omitempty" yaml:"model,omitempty"`           // text-embedding-3-small
	Dimensions int           `json:"dimensions,omitempty" yaml:"dimensions,omitempty"` // 1536
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// HashConfig configures the local feature-hashing provider.
type HashConfig struct {
	Dimensions int `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

// AdapterConfig 控制分块与调用节奏.
type AdapterConfig struct {
	ChunkTokens int           `json:"chunk_tokens" yaml:"chunk_tokens"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
	RateLimit   float64       `json:"rate_limit" yaml:"rate_limit"` // 每秒调用数，0 表示不限速
	Burst       int           `json:"burst" yaml:"burst"`
	MaxRetries  int           `json:"max_retries" yaml:"max_retries"` // 仅重试 Retryable 错误
}

// DefaultOpenAIConfig returns default OpenAI embedding config.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		BaseURL:    "https://api.openai.com",
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
		Timeout:    30 * time.Second,
	}
}

// DefaultHashConfig returns the default hashing provider config.
func DefaultHashConfig() HashConfig {
	return HashConfig{Dimensions: 256}
}

// DefaultAdapterConfig returns 800-token chunks and a 30s per-call timeout.
func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		ChunkTokens: 800,
		Timeout:     30 * time.Second,
		RateLimit:   0,
		Burst:       1,
	}
}
