// =============================================================================
// 📦 Cross-Reference 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("crossref.yaml").
//	    WithEnvPrefix("CROSSREF").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix 环境变量默认前缀
const DefaultEnvPrefix = "CROSSREF"

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 Cross-Reference 系统的完整配置结构
type Config struct {
	// Server HTTP API 与运维端点
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Redis 结果缓存
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database 记录存储与任务存储
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Embedding 向量化
	Embedding EmbeddingConfig `yaml:"embedding" env:"EMBEDDING"`

	// Generation 回答生成
	Generation GenerationConfig `yaml:"generation" env:"GENERATION"`

	// Retrieval 混合检索
	Retrieval RetrievalConfig `yaml:"retrieval" env:"RETRIEVAL"`

	// Ingest 文件导入
	Ingest IngestConfig `yaml:"ingest" env:"INGEST"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig HTTP API 与运维端点配置
type ServerConfig struct {
	// API 监听地址
	HTTPAddr string `yaml:"http_addr" env:"HTTP_ADDR"`
	// /metrics 与 /health 监听地址
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 上传文件大小上限（字节）
	MaxUploadBytes int64 `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
	// 每个 IP 每秒请求数
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 限流突发容量
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// 允许的跨域来源
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	// 写接口的 JWT 校验，Secret 为空时关闭
	JWT JWTConfig `yaml:"jwt" env:"JWT"`
}

// JWTConfig HS256 令牌校验配置
type JWTConfig struct {
	Secret   string `yaml:"secret" env:"SECRET"`
	Issuer   string `yaml:"issuer" env:"ISSUER"`
	Audience string `yaml:"audience" env:"AUDIENCE"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 是否启用结果缓存
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 结果过期时间
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	// 健康检查间隔，0 表示关闭
	HealthCheckInterval time.Duration `yaml:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"`
	// 是否使用 TLS 连接
	TLS bool `yaml:"tls" env:"TLS"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: memory, sqlite, postgres, mysql
	Driver string `yaml:"driver" env:"DRIVER"`
	// 完整连接串，非空时优先于分项字段
	URL string `yaml:"url" env:"URL"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名；sqlite 为文件路径
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	// 连接最大空闲时间
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME"`
	// 慢查询阈值
	SlowThreshold time.Duration `yaml:"slow_threshold" env:"SLOW_THRESHOLD"`
	// 批量插入每条语句的行数
	BatchSize int `yaml:"batch_size" env:"BATCH_SIZE"`
	// 启动时执行 GORM AutoMigrate
	AutoMigrate bool `yaml:"auto_migrate" env:"AUTO_MIGRATE"`
}

// EmbeddingConfig 向量化配置
type EmbeddingConfig struct {
	// Provider: openai, hash
	Provider string `yaml:"provider" env:"PROVIDER"`
	// API Key，为空时回退到 OPENAI_API_KEY
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// 向量维度
	Dimensions int `yaml:"dimensions" env:"DIMENSIONS"`
	// 分块 token 数
	ChunkTokens int `yaml:"chunk_tokens" env:"CHUNK_TOKENS"`
	// 分词器: tiktoken, estimator
	Tokenizer string `yaml:"tokenizer" env:"TOKENIZER"`
	// 单次调用超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 每秒调用数，0 表示不限速
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	// 令牌桶容量
	Burst int `yaml:"burst" env:"BURST"`
	// 可重试错误（5xx、429、网络失败）的重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
}

// GenerationConfig 回答生成配置
type GenerationConfig struct {
	// Provider: openai, extractive
	Provider string `yaml:"provider" env:"PROVIDER"`
	// API Key，为空时回退到 OPENAI_API_KEY
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// 温度参数
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// 最大 Token 数
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// extractive 模式下引用的段落数
	MaxPassages int `yaml:"max_passages" env:"MAX_PASSAGES"`
	// 连续失败多少次后暂停调用，0 表示不启用熔断
	BreakerThreshold int `yaml:"breaker_threshold" env:"BREAKER_THRESHOLD"`
	// 熔断后的恢复等待时间
	BreakerResetTimeout time.Duration `yaml:"breaker_reset_timeout" env:"BREAKER_RESET_TIMEOUT"`
}

// RetrievalConfig 混合检索配置
type RetrievalConfig struct {
	// 模式: hybrid, dense
	Mode string `yaml:"mode" env:"MODE"`
	// 每个分区的向量候选数
	KDense int `yaml:"k_dense" env:"K_DENSE"`
	// 每个分区的词法候选数
	KSparse int `yaml:"k_sparse" env:"K_SPARSE"`
	// 每个分区保留的结果数
	PerPartitionLimit int `yaml:"per_partition_limit" env:"PER_PARTITION_LIMIT"`
	// 全局返回的结果数
	FinalLimit int `yaml:"final_limit" env:"FINAL_LIMIT"`
	// 词法分数权重
	Boost float64 `yaml:"boost" env:"BOOST"`
	// 向量距离上限，0 表示不过滤
	MaxDenseDistance float64 `yaml:"max_dense_distance" env:"MAX_DENSE_DISTANCE"`
}

// IngestConfig 导入配置
type IngestConfig struct {
	// 后台 worker 数
	Workers int `yaml:"workers" env:"WORKERS"`
	// 等待队列长度
	QueueSize int `yaml:"queue_size" env:"QUEUE_SIZE"`
	// 入库文本最大字符数
	MaxTextLength int `yaml:"max_text_length" env:"MAX_TEXT_LENGTH"`
	// 任务状态写入超时
	StatusTimeout time.Duration `yaml:"status_timeout" env:"STATUS_TIMEOUT"`
	// 任务存储: memory, database
	JobStore string `yaml:"job_store" env:"JOB_STORE"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 使用明文 gRPC 连接
	Insecure bool `yaml:"insecure" env:"INSECURE"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	lookupEnv  func(string) (string, bool)
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  DefaultEnvPrefix,
		lookupEnv:  os.LookupEnv,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	l.applyAPIKeyFallback(cfg)

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// applyAPIKeyFallback 未显式配置时复用通用的 OPENAI_API_KEY
func (l *Loader) applyAPIKeyFallback(cfg *Config) {
	key, ok := l.lookupEnv("OPENAI_API_KEY")
	if !ok || key == "" {
		return
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = key
	}
	if cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = key
	}
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue, ok := l.lookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).WithValidator((*Config).Validate).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置，一次性返回全部问题
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "memory", "sqlite", "sqlite3", "postgres", "postgresql", "mysql":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Database.BatchSize < 0 {
		errs = append(errs, errors.New("database batch_size must not be negative"))
	}

	switch c.Embedding.Provider {
	case "openai":
		if c.Embedding.APIKey == "" {
			errs = append(errs, errors.New("embedding api_key is required for the openai provider"))
		}
	case "hash":
	default:
		errs = append(errs, fmt.Errorf("unsupported embedding provider %q", c.Embedding.Provider))
	}
	if c.Embedding.ChunkTokens <= 0 {
		errs = append(errs, errors.New("embedding chunk_tokens must be positive"))
	}
	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, errors.New("embedding dimensions must be positive"))
	}
	if c.Embedding.MaxRetries < 0 {
		errs = append(errs, errors.New("embedding max_retries must not be negative"))
	}
	switch c.Embedding.Tokenizer {
	case "tiktoken", "estimator":
	default:
		errs = append(errs, fmt.Errorf("unsupported tokenizer %q", c.Embedding.Tokenizer))
	}

	switch c.Generation.Provider {
	case "openai":
		if c.Generation.APIKey == "" {
			errs = append(errs, errors.New("generation api_key is required for the openai provider"))
		}
	case "extractive":
	default:
		errs = append(errs, fmt.Errorf("unsupported generation provider %q", c.Generation.Provider))
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		errs = append(errs, errors.New("generation temperature must be between 0 and 2"))
	}

	switch c.Retrieval.Mode {
	case "hybrid", "dense":
	default:
		errs = append(errs, fmt.Errorf("unsupported retrieval mode %q", c.Retrieval.Mode))
	}
	if c.Retrieval.PerPartitionLimit <= 0 || c.Retrieval.FinalLimit <= 0 {
		errs = append(errs, errors.New("retrieval limits must be positive"))
	}
	if c.Retrieval.Boost < 0 {
		errs = append(errs, errors.New("retrieval boost must not be negative"))
	}

	if c.Ingest.Workers <= 0 || c.Ingest.QueueSize <= 0 {
		errs = append(errs, errors.New("ingest workers and queue_size must be positive"))
	}
	switch c.Ingest.JobStore {
	case "memory":
	case "database":
		if c.Database.Driver == "memory" {
			errs = append(errs, errors.New("ingest job_store=database requires a sql database driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported ingest job_store %q", c.Ingest.JobStore))
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis addr is required when the cache is enabled"))
	}

	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server max_upload_bytes must be positive"))
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		errs = append(errs, errors.New("server rate limits must not be negative"))
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, errors.New("telemetry sample_rate must be between 0 and 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %w", errors.Join(errs...))
	}
	return nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	switch d.Driver {
	case "postgres", "postgresql":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite", "sqlite3":
		return d.Name
	default:
		return ""
	}
}
