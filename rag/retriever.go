package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AAreesha/Cross-Reference-Database-System/internal/metrics"
	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

const tracerName = "github.com/AAreesha/Cross-Reference-Database-System/rag"

// Embedder 将文本映射为单个向量，embedding.Adapter 实现该接口.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RetrievalMode 检索模式
type RetrievalMode string

const (
	// ModeHybrid 向量 + 词法
	ModeHybrid RetrievalMode = "hybrid"
	// ModeDense 仅向量，跳过词法检索
	ModeDense RetrievalMode = "dense"
)

// RetrievalConfig 混合检索配置
type RetrievalConfig struct {
	Mode              RetrievalMode `json:"mode" yaml:"mode"`
	KDense            int           `json:"k_dense" yaml:"k_dense"`
	KSparse           int           `json:"k_sparse" yaml:"k_sparse"`
	PerPartitionLimit int           `json:"per_partition_limit" yaml:"per_partition_limit"`
	FinalLimit        int           `json:"final_limit" yaml:"final_limit"`
	Boost             float64       `json:"boost" yaml:"boost"`
	// MaxDenseDistance 大于 0 时丢弃距离超过阈值的向量命中
	MaxDenseDistance float64 `json:"max_dense_distance" yaml:"max_dense_distance"`
}

// DefaultRetrievalConfig 返回默认混合检索配置
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		Mode:              ModeHybrid,
		KDense:            15,
		KSparse:           15,
		PerPartitionLimit: 10,
		FinalLimit:        5,
		Boost:             0.4,
	}
}

func (c RetrievalConfig) withDefaults() RetrievalConfig {
	d := DefaultRetrievalConfig()
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.KDense <= 0 {
		c.KDense = d.KDense
	}
	if c.KSparse <= 0 {
		c.KSparse = d.KSparse
	}
	if c.PerPartitionLimit <= 0 {
		c.PerPartitionLimit = d.PerPartitionLimit
	}
	if c.FinalLimit <= 0 {
		c.FinalLimit = d.FinalLimit
	}
	if c.Boost <= 0 {
		c.Boost = d.Boost
	}
	return c
}

// HybridRetriever 跨分区混合检索器
type HybridRetriever struct {
	store      RecordStore
	embedder   Embedder
	cfg        RetrievalConfig
	partitions []types.Partition
	metrics    *metrics.Collector
	tracer     trace.Tracer
	logger     *zap.Logger
}

// NewHybridRetriever 创建混合检索器
func NewHybridRetriever(store RecordStore, embedder Embedder, cfg RetrievalConfig, collector *metrics.Collector, logger *zap.Logger) *HybridRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HybridRetriever{
		store:      store,
		embedder:   embedder,
		cfg:        cfg.withDefaults(),
		partitions: types.AllPartitions(),
		metrics:    collector,
		tracer:     otel.Tracer(tracerName),
		logger:     logger.With(zap.String("component", "hybrid_retriever")),
	}
}

// Config 返回生效的配置
func (r *HybridRetriever) Config() RetrievalConfig {
	return r.cfg
}

// Retrieve 执行一次跨分区检索.
// 仅空查询返回错误，其余整请求级状况均以 Outcome.Kind 表达.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string) (*Outcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, types.ErrEmptyQuery
	}

	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "rag.retrieve",
		trace.WithAttributes(
			attribute.String("retrieval.mode", string(r.cfg.Mode)),
			attribute.Int("query.length", len(query)),
		))
	defer span.End()

	outcome := r.retrieve(ctx, query)

	span.SetAttributes(
		attribute.String("retrieval.outcome", string(outcome.Kind)),
		attribute.Int("retrieval.results", len(outcome.Results)),
	)
	if outcome.Kind == OutcomeServiceDegraded {
		span.SetStatus(codes.Error, outcome.Reason)
	}
	r.metrics.RecordRetrieval(string(outcome.Kind), len(outcome.Results), time.Since(start))
	r.logger.Debug("retrieval finished",
		zap.String("outcome", string(outcome.Kind)),
		zap.Int("results", len(outcome.Results)),
		zap.Duration("took", time.Since(start)))
	return outcome, nil
}

func (r *HybridRetriever) retrieve(ctx context.Context, query string) *Outcome {
	total, failed := r.countAll(ctx)
	switch {
	case failed == len(r.partitions):
		return &Outcome{Kind: OutcomeServiceDegraded, Reason: "record store unreachable"}
	case total == 0 && failed > 0:
		return &Outcome{Kind: OutcomeServiceDegraded, Reason: fmt.Sprintf("%d partitions could not be counted", failed)}
	case total == 0:
		return &Outcome{Kind: OutcomeNoData}
	}

	embedStart := time.Now()
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.metrics.RecordModelRequest("embedding", "error", time.Since(embedStart))
		r.logger.Warn("query embedding failed", zap.Error(err))
		return &Outcome{Kind: OutcomeServiceDegraded, Reason: err.Error()}
	}
	r.metrics.RecordModelRequest("embedding", "ok", time.Since(embedStart))

	var terms []string
	if r.cfg.Mode == ModeHybrid {
		terms = LexicalTerms(query)
	}

	// 每个分区写入自己的槽位，合并顺序与调度顺序无关
	slots := make([][]RankedResult, len(r.partitions))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range r.partitions {
		g.Go(func() error {
			slots[i] = r.searchPartition(gctx, p, vector, terms)
			return nil
		})
	}
	_ = g.Wait()

	ranked := MergeRanked(slots, r.cfg.FinalLimit)
	if len(ranked) == 0 {
		return &Outcome{Kind: OutcomeNoMatches}
	}

	contextText, cited := FormatContext(ranked)
	return &Outcome{
		Kind:            OutcomeResults,
		Results:         ranked,
		ContextText:     contextText,
		CitedPartitions: cited,
	}
}

// countAll 汇总各分区记录数，返回总数与失败分区数.
func (r *HybridRetriever) countAll(ctx context.Context) (int, int) {
	total, failed := 0, 0
	for _, p := range r.partitions {
		n, err := r.store.Count(ctx, p)
		if err != nil {
			failed++
			r.metrics.RecordPartitionFailure(string(p), "count")
			r.logger.Warn("partition count failed", zap.String("partition", string(p)), zap.Error(err))
			continue
		}
		total += n
	}
	return total, failed
}

// searchPartition 在单个分区内取向量与词法候选并融合打分.
// 任一信号失败只记录日志，不影响另一信号与其它分区.
func (r *HybridRetriever) searchPartition(ctx context.Context, p types.Partition, vector []float32, terms []string) []RankedResult {
	ctx, span := r.tracer.Start(ctx, "rag.search_partition",
		trace.WithAttributes(attribute.String("partition", string(p))))
	defer span.End()

	candidates := make(map[string]*RankedResult)
	var order []string

	dense, err := r.store.NearestByVector(ctx, p, vector, r.cfg.KDense)
	if err != nil {
		r.metrics.RecordPartitionFailure(string(p), "dense")
		span.RecordError(err)
		r.logger.Warn("dense lookup failed", zap.String("partition", string(p)), zap.Error(err))
	}
	for i, hit := range dense {
		if r.cfg.MaxDenseDistance > 0 && hit.Distance > r.cfg.MaxDenseDistance {
			continue
		}
		if _, dup := candidates[hit.Record.ID]; dup {
			continue
		}
		candidates[hit.Record.ID] = &RankedResult{
			Record:        hit.Record,
			Score:         1.0,
			Dense:         true,
			DenseRank:     i + 1,
			DenseDistance: hit.Distance,
		}
		order = append(order, hit.Record.ID)
	}

	if r.cfg.Mode == ModeHybrid && len(terms) > 0 {
		sparse, err := r.store.SearchLexical(ctx, p, terms, r.cfg.KSparse)
		if err != nil {
			r.metrics.RecordPartitionFailure(string(p), "sparse")
			span.RecordError(err)
			r.logger.Warn("sparse lookup failed", zap.String("partition", string(p)), zap.Error(err))
		}
		for j, hit := range sparse {
			c, ok := candidates[hit.Record.ID]
			if !ok {
				c = &RankedResult{Record: hit.Record}
				candidates[hit.Record.ID] = c
				order = append(order, hit.Record.ID)
			}
			if c.Sparse {
				continue
			}
			c.Sparse = true
			c.SparseRank = j + 1
			c.SparseScore = hit.Score
			c.Score += r.cfg.Boost * hit.Score
		}
	}

	results := make([]RankedResult, 0, len(order))
	for _, id := range order {
		results = append(results, *candidates[id])
	}
	sortPartition(results)
	if len(results) > r.cfg.PerPartitionLimit {
		results = results[:r.cfg.PerPartitionLimit]
	}
	span.SetAttributes(attribute.Int("partition.candidates", len(results)))
	return results
}

// sortPartition 分区内排序：得分降序，其次向量排名升序（纯词法命中在后），再按词法排名.
func sortPartition(results []RankedResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Dense != b.Dense {
			return a.Dense
		}
		if a.DenseRank != b.DenseRank {
			return a.DenseRank < b.DenseRank
		}
		return rankOrLast(a.SparseRank) < rankOrLast(b.SparseRank)
	})
}

func rankOrLast(rank int) int {
	if rank == 0 {
		return int(^uint(0) >> 1)
	}
	return rank
}

// MergeRanked 按分区顺序拼接各分区结果，全局稳定排序（同分保持分区顺序），
// 按 (partition, id) 去重保留首次出现，并截断到 limit 条.
func MergeRanked(perPartition [][]RankedResult, limit int) []RankedResult {
	var all []RankedResult
	for _, slot := range perPartition {
		all = append(all, slot...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Score > all[j].Score
	})

	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	seen := make(map[types.RecordKey]struct{}, len(all))
	out := make([]RankedResult, 0, limit)
	for _, r := range all {
		if len(out) == limit {
			break
		}
		key := r.Record.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
