// =============================================================================
// 📦 Cross-Reference 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:     DefaultServerConfig(),
		Redis:      DefaultRedisConfig(),
		Database:   DefaultDatabaseConfig(),
		Embedding:  DefaultEmbeddingConfig(),
		Generation: DefaultGenerationConfig(),
		Retrieval:  DefaultRetrievalConfig(),
		Ingest:     DefaultIngestConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:        ":8000",
		MetricsAddr:     ":9090",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    2 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		MaxUploadBytes:  32 << 20,
		RateLimitRPS:    20,
		RateLimitBurst:  40,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:             true,
		Addr:                "localhost:6379",
		Password:            "",
		DB:                  0,
		TTL:                 time.Hour,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置（本地 sqlite 文件）
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "crossref",
		Password:        "",
		Name:            "crossref.db",
		SSLMode:         "disable",
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
		SlowThreshold:   200 * time.Millisecond,
		BatchSize:       500,
		AutoMigrate:     true,
	}
}

// DefaultEmbeddingConfig 返回默认向量化配置
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Provider:    "openai",
		BaseURL:     "https://api.openai.com",
		Model:       "text-embedding-3-small",
		Dimensions:  1536,
		ChunkTokens: 800,
		Tokenizer:   "tiktoken",
		Timeout:     30 * time.Second,
		RateLimit:   0,
		Burst:       1,
		MaxRetries:  2,
	}
}

// DefaultGenerationConfig 返回默认回答生成配置
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Provider:    "openai",
		BaseURL:     "https://api.openai.com",
		Model:       "gpt-4o-mini",
		Temperature: 0.2,
		MaxTokens:   512,
		Timeout:     60 * time.Second,
		MaxPassages: 3,

		BreakerThreshold:    5,
		BreakerResetTimeout: 30 * time.Second,
	}
}

// DefaultRetrievalConfig 返回默认混合检索配置
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		Mode:              "hybrid",
		KDense:            15,
		KSparse:           15,
		PerPartitionLimit: 10,
		FinalLimit:        5,
		Boost:             0.4,
	}
}

// DefaultIngestConfig 返回默认导入配置
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		Workers:       4,
		QueueSize:     64,
		MaxTextLength: 10000,
		StatusTimeout: 5 * time.Second,
		JobStore:      "database",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		Insecure:     true,
		ServiceName:  "crossref",
		SampleRate:   0.1,
	}
}
