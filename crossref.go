// Package crossref wires the cross-reference search system into a single
// entry point: hybrid retrieval over the db1..db4 partitions, answer
// generation, the Redis result cache and asynchronous file ingestion.
//
// Usage:
//
//	import crossref "github.com/AAreesha/Cross-Reference-Database-System"
//
//	cfg := config.MustLoad("crossref.yaml")
//	engine, err := crossref.New(ctx, cfg, crossref.WithLogger(logger))
//	resp, err := engine.Search(ctx, "contract renewal 2023")
package crossref

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AAreesha/Cross-Reference-Database-System/config"
	"github.com/AAreesha/Cross-Reference-Database-System/ingest"
	"github.com/AAreesha/Cross-Reference-Database-System/internal/cache"
	"github.com/AAreesha/Cross-Reference-Database-System/internal/database"
	"github.com/AAreesha/Cross-Reference-Database-System/internal/metrics"
	"github.com/AAreesha/Cross-Reference-Database-System/internal/pool"
	"github.com/AAreesha/Cross-Reference-Database-System/internal/server"
	"github.com/AAreesha/Cross-Reference-Database-System/llm/circuitbreaker"
	"github.com/AAreesha/Cross-Reference-Database-System/llm/embedding"
	"github.com/AAreesha/Cross-Reference-Database-System/llm/generation"
	"github.com/AAreesha/Cross-Reference-Database-System/llm/tokenizer"
	"github.com/AAreesha/Cross-Reference-Database-System/rag"
	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// 非结果类检索的提示信息
const (
	MessageNoData          = "No records have been ingested yet. Upload a file first."
	MessageNoMatches       = "No relevant records were found for this query."
	MessageServiceDegraded = "Search is temporarily unavailable. Please try again later."
	MessageNoAnswer        = "Answer generation is unavailable. Showing ranked records only."
)

// SearchResponse 一次语义搜索的完整响应，也是结果缓存中保存的载荷.
type SearchResponse struct {
	Query   string             `json:"query"`
	Cached  bool               `json:"cached"`
	Kind    rag.OutcomeKind    `json:"kind"`
	Answer  string             `json:"answer,omitempty"`
	Context string             `json:"retrieved_context,omitempty"`
	Sources []types.Partition  `json:"sources,omitempty"`
	Results []rag.RankedResult `json:"results,omitempty"`
	Message string             `json:"message,omitempty"`
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	collector *metrics.Collector
	provider  embedding.Provider
	generator generation.Generator
	db        *gorm.DB
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the Prometheus collector. Without it no metrics are recorded.
func WithMetrics(collector *metrics.Collector) Option {
	return func(o *options) { o.collector = collector }
}

// WithEmbeddingProvider overrides the provider selected by config.
func WithEmbeddingProvider(p embedding.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithGenerator overrides the answer generator selected by config.
func WithGenerator(g generation.Generator) Option {
	return func(o *options) { o.generator = g }
}

// WithDB supplies an already opened database instead of opening one from config.
// The caller keeps ownership; Close does not close it.
func WithDB(db *gorm.DB) Option {
	return func(o *options) { o.db = db }
}

// Engine 组合检索、生成、缓存与导入.
type Engine struct {
	cfg         *config.Config
	store       rag.RecordStore
	retriever   *rag.HybridRetriever
	generator   generation.Generator
	cache       *cache.Manager
	coordinator *ingest.Coordinator
	dbPool      *database.PoolManager
	metrics     *metrics.Collector
	logger      *zap.Logger
}

// New 按配置构建全部组件.
// 数据库驱动为 memory 时使用进程内记录存储；Redis 关闭时缓存始终未命中.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	logger := o.logger

	e := &Engine{
		cfg:     cfg,
		metrics: o.collector,
		logger:  logger.With(zap.String("component", "engine")),
	}

	embedder, err := newEmbedder(cfg.Embedding, o.provider, logger)
	if err != nil {
		return nil, err
	}

	generator := o.generator
	if generator == nil {
		if generator, err = newGenerator(cfg.Generation, logger); err != nil {
			return nil, err
		}
	}
	e.generator = generator

	var jobs ingest.JobStore
	if cfg.Database.Driver == "memory" {
		e.store = rag.NewMemoryStore(logger)
		jobs = ingest.NewMemoryJobStore()
	} else {
		db := o.db
		if db == nil {
			dbCfg := database.ConfigFrom(cfg.Database)
			if db, err = database.Open(dbCfg, logger); err != nil {
				return nil, err
			}
			if e.dbPool, err = database.NewPoolManager(db, dbCfg.Driver, dbCfg.Pool, o.collector, logger); err != nil {
				if sqlDB, dbErr := db.DB(); dbErr == nil {
					_ = sqlDB.Close()
				}
				return nil, err
			}
		}

		gormStore := rag.NewGormStore(db, rag.GormStoreConfig{
			BatchSize: cfg.Database.BatchSize,
			Database:  cfg.Database.Driver,
		}, o.collector, logger)
		e.store = gormStore

		if cfg.Ingest.JobStore == "database" {
			gormJobs := ingest.NewGormJobStore(db, logger)
			if cfg.Database.AutoMigrate {
				if err := gormJobs.AutoMigrate(ctx); err != nil {
					_ = e.closeDB()
					return nil, fmt.Errorf("migrate ingest jobs: %w", err)
				}
			}
			jobs = gormJobs
		} else {
			jobs = ingest.NewMemoryJobStore()
		}

		if cfg.Database.AutoMigrate {
			if err := gormStore.AutoMigrate(ctx); err != nil {
				_ = e.closeDB()
				return nil, fmt.Errorf("migrate records: %w", err)
			}
		}
	}

	e.retriever = rag.NewHybridRetriever(e.store, embedder, rag.RetrievalConfig{
		Mode:              rag.RetrievalMode(cfg.Retrieval.Mode),
		KDense:            cfg.Retrieval.KDense,
		KSparse:           cfg.Retrieval.KSparse,
		PerPartitionLimit: cfg.Retrieval.PerPartitionLimit,
		FinalLimit:        cfg.Retrieval.FinalLimit,
		Boost:             cfg.Retrieval.Boost,
		MaxDenseDistance:  cfg.Retrieval.MaxDenseDistance,
	}, o.collector, logger)

	workers := pool.NewWorkerPool(pool.WorkerPoolConfig{
		Workers:   cfg.Ingest.Workers,
		QueueSize: cfg.Ingest.QueueSize,
	}, logger)
	e.coordinator = ingest.NewCoordinator(e.store, embedder, jobs, workers, ingest.Config{
		MaxTextLength: cfg.Ingest.MaxTextLength,
		StatusTimeout: cfg.Ingest.StatusTimeout,
	}, o.collector, logger)

	if cfg.Redis.Enabled {
		e.cache = cache.NewManager(cache.Config{
			Addr:                cfg.Redis.Addr,
			Password:            cfg.Redis.Password,
			DB:                  cfg.Redis.DB,
			TTL:                 cfg.Redis.TTL,
			MaxRetries:          cache.DefaultConfig().MaxRetries,
			PoolSize:            cfg.Redis.PoolSize,
			MinIdleConns:        cfg.Redis.MinIdleConns,
			HealthCheckInterval: cfg.Redis.HealthCheckInterval,
			TLS:                 cfg.Redis.TLS,
		}, o.collector, logger)
	}

	e.logger.Info("engine initialized",
		zap.String("database", cfg.Database.Driver),
		zap.String("embedding", embedder.Name()),
		zap.String("generator", generator.Name()),
		zap.Bool("cache", e.cache != nil),
	)
	return e, nil
}

func newEmbedder(cfg config.EmbeddingConfig, provider embedding.Provider, logger *zap.Logger) (*embedding.Adapter, error) {
	if provider == nil {
		switch cfg.Provider {
		case "openai":
			provider = embedding.NewOpenAIProvider(embedding.OpenAIConfig{
				APIKey:     cfg.APIKey,
				BaseURL:    cfg.BaseURL,
				Model:      cfg.Model,
				Dimensions: cfg.Dimensions,
				Timeout:    cfg.Timeout,
			})
		case "hash":
			provider = embedding.NewHashProvider(embedding.HashConfig{Dimensions: cfg.Dimensions})
		default:
			return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
		}
	}

	tok, err := tokenizer.New(tokenizer.Kind(cfg.Tokenizer), cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("create tokenizer: %w", err)
	}

	return embedding.NewAdapter(provider, tok, embedding.AdapterConfig{
		ChunkTokens: cfg.ChunkTokens,
		Timeout:     cfg.Timeout,
		RateLimit:   cfg.RateLimit,
		Burst:       cfg.Burst,
		MaxRetries:  cfg.MaxRetries,
	}, logger), nil
}

func newGenerator(cfg config.GenerationConfig, logger *zap.Logger) (generation.Generator, error) {
	switch cfg.Provider {
	case "openai":
		var g generation.Generator = generation.NewOpenAIGenerator(generation.OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: float32(cfg.Temperature),
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		}, logger)
		if cfg.BreakerThreshold > 0 {
			g = generation.NewBreakerGenerator(g, circuitbreaker.Config{
				Threshold:    cfg.BreakerThreshold,
				ResetTimeout: cfg.BreakerResetTimeout,
			}, logger)
		}
		return g, nil
	case "extractive":
		return generation.NewExtractiveGenerator(cfg.MaxPassages), nil
	default:
		return nil, fmt.Errorf("unsupported generation provider %q", cfg.Provider)
	}
}

// =============================================================================
// 🔍 检索与搜索
// =============================================================================

// NormalizeQuery 生成缓存键：去除首尾空白、折叠内部空白并转为小写.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// Retrieve 执行一次不经缓存的跨分区检索.
func (e *Engine) Retrieve(ctx context.Context, query string) (*rag.Outcome, error) {
	return e.retriever.Retrieve(ctx, query)
}

// Search 依次执行 缓存查询 → 检索 → 生成 → 写入缓存.
// 只有带回答的 Results 响应会被缓存.
func (e *Engine) Search(ctx context.Context, query string) (*SearchResponse, error) {
	query = strings.TrimSpace(query)
	key := NormalizeQuery(query)
	if key == "" {
		return nil, types.ErrEmptyQuery
	}

	var cached SearchResponse
	// 只有带回答的 Results 响应会被写入，其余形状视为损坏
	if e.cache != nil && e.cache.GetJSON(ctx, key, &cached) &&
		cached.Kind == rag.OutcomeResults && cached.Answer != "" {
		cached.Cached = true
		return &cached, nil
	}

	outcome, err := e.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	resp := &SearchResponse{
		Query:   query,
		Kind:    outcome.Kind,
		Context: outcome.ContextText,
		Sources: outcome.CitedPartitions,
		Results: withoutEmbeddings(outcome.Results),
	}

	switch outcome.Kind {
	case rag.OutcomeNoData:
		resp.Message = MessageNoData
		return resp, nil
	case rag.OutcomeNoMatches:
		resp.Message = MessageNoMatches
		return resp, nil
	case rag.OutcomeServiceDegraded:
		resp.Message = MessageServiceDegraded
		return resp, nil
	}

	answer, err := e.generator.Generate(ctx, outcome.ContextText, query)
	if err != nil {
		if !errors.Is(err, types.ErrGenerationUnavailable) {
			return nil, err
		}
		e.logger.Warn("answer generation failed, returning ranked records",
			zap.String("generator", e.generator.Name()), zap.Error(err))
		resp.Message = MessageNoAnswer
		return resp, nil
	}
	resp.Answer = answer

	if e.cache != nil {
		if err := e.cache.SetJSON(ctx, key, resp); err != nil {
			e.logger.Warn("failed to cache search response", zap.Error(err))
		}
	}
	return resp, nil
}

// withoutEmbeddings 复制结果并去掉向量，避免响应与缓存载荷携带整段向量
func withoutEmbeddings(results []rag.RankedResult) []rag.RankedResult {
	if len(results) == 0 {
		return nil
	}
	out := make([]rag.RankedResult, len(results))
	for i, r := range results {
		r.Record.Embedding = nil
		out[i] = r
	}
	return out
}

// =============================================================================
// 📥 导入
// =============================================================================

// SubmitIngest 排队一个导入任务并立即返回任务 id.
func (e *Engine) SubmitIngest(ctx context.Context, data []byte, filename, partition string) (string, error) {
	return e.coordinator.Submit(ctx, data, filename, partition)
}

// IngestStatus 返回任务当前状态.
func (e *Engine) IngestStatus(ctx context.Context, jobID string) (types.JobStatus, error) {
	return e.coordinator.Status(ctx, jobID)
}

// InsertRecord 同步写入单条记录.
func (e *Engine) InsertRecord(ctx context.Context, partition, id, text string) error {
	return e.coordinator.InsertRecord(ctx, partition, id, text)
}

// SupportedFileTypes 返回可导入的文件扩展名.
func (e *Engine) SupportedFileTypes() []string {
	return e.coordinator.Decoders().SupportedTypes()
}

// =============================================================================
// 💾 缓存
// =============================================================================

// CacheGet 按原始键读取缓存；缓存关闭或不可用时返回未命中.
func (e *Engine) CacheGet(ctx context.Context, query string) (string, bool) {
	if e.cache == nil {
		return "", false
	}
	return e.cache.Get(ctx, query)
}

// CacheSet 按原始键写入缓存.
func (e *Engine) CacheSet(ctx context.Context, query, value string) error {
	if e.cache == nil {
		return nil
	}
	return e.cache.Set(ctx, query, value)
}

// KnownQueries 返回曾被缓存过的查询，用于输入提示.
func (e *Engine) KnownQueries(ctx context.Context) []string {
	if e.cache == nil {
		return []string{}
	}
	return e.cache.KnownQueries(ctx)
}

// =============================================================================
// 🏥 健康检查与关闭
// =============================================================================

// HealthChecks 返回运维端点使用的依赖检查.
func (e *Engine) HealthChecks() map[string]server.HealthCheck {
	checks := make(map[string]server.HealthCheck, 2)
	if e.dbPool != nil {
		checks["database"] = e.dbPool.Ping
	}
	if e.cache != nil {
		checks["cache"] = e.cache.Ping
	}
	return checks
}

// Close 等待排队中的导入任务完成，然后释放缓存与数据库连接.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	if err := e.coordinator.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close ingestion: %w", err))
	}
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if err := e.closeDB(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}

func (e *Engine) closeDB() error {
	if e.dbPool == nil {
		return nil
	}
	return e.dbPool.Close()
}
