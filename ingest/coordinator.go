package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/AAreesha/Cross-Reference-Database-System/internal/metrics"
	"github.com/AAreesha/Cross-Reference-Database-System/internal/pool"
	"github.com/AAreesha/Cross-Reference-Database-System/rag"
	"github.com/AAreesha/Cross-Reference-Database-System/rag/loader"
	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

const tracerName = "github.com/AAreesha/Cross-Reference-Database-System/ingest"

// reasonQueueUnavailable 任务池拒绝时写入任务的失败原因
const reasonQueueUnavailable = "ingestion queue unavailable"

// Config 导入协调器配置
type Config struct {
	// MaxTextLength 入库文本的最大字符数，嵌入使用完整文本
	MaxTextLength int `yaml:"max_text_length" json:"max_text_length"`
	// StatusTimeout 任务状态写入的超时时间
	StatusTimeout time.Duration `yaml:"status_timeout" json:"status_timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		MaxTextLength: types.MaxRecordTextLength,
		StatusTimeout: 5 * time.Second,
	}
}

// Coordinator 异步导入协调器：校验上传、登记任务，并在后台完成
// 解码、清洗、嵌入与一次性批量写入.
type Coordinator struct {
	store    rag.RecordStore
	embedder rag.Embedder
	jobs     JobStore
	workers  *pool.WorkerPool
	decoders *loader.DecoderRegistry
	cfg      Config

	metrics *metrics.Collector
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewCoordinator 创建导入协调器。协调器接管 workers 的生命周期.
func NewCoordinator(
	store rag.RecordStore,
	embedder rag.Embedder,
	jobs JobStore,
	workers *pool.WorkerPool,
	cfg Config,
	collector *metrics.Collector,
	logger *zap.Logger,
) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = defaults.MaxTextLength
	}
	if cfg.StatusTimeout <= 0 {
		cfg.StatusTimeout = defaults.StatusTimeout
	}
	if jobs == nil {
		jobs = NewMemoryJobStore()
	}

	return &Coordinator{
		store:    store,
		embedder: embedder,
		jobs:     jobs,
		workers:  workers,
		decoders: loader.NewDecoderRegistry(),
		cfg:      cfg,
		metrics:  collector,
		logger:   logger.With(zap.String("component", "ingest_coordinator")),
		tracer:   otel.Tracer(tracerName),
	}
}

// Decoders 返回文件解码器注册表
func (c *Coordinator) Decoders() *loader.DecoderRegistry {
	return c.decoders
}

// =============================================================================
// 📥 提交与查询
// =============================================================================

// Submit 校验并登记导入任务，立即返回任务 id，不等待导入完成.
// 任务池拒绝时任务标记为失败，同时返回任务 id 与 types.ErrIngestionRejected.
func (c *Coordinator) Submit(ctx context.Context, data []byte, filename, partitionTag string) (string, error) {
	partition, err := types.ParsePartition(partitionTag)
	if err != nil {
		return "", err
	}
	if !c.decoders.Supports(filename) {
		return "", types.NewError(types.ErrCodeInvalidFileType,
			fmt.Sprintf("unsupported file %q: only csv, xls or xlsx files are accepted", filename))
	}

	now := time.Now().UTC()
	job := types.JobStatus{
		ID:        uuid.NewString(),
		Partition: partition,
		Filename:  filename,
		State:     types.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("register job: %w", err)
	}
	c.metrics.RecordIngestJob(string(partition), string(types.JobPending))

	// 上传内容由任务独占
	payload := append([]byte(nil), data...)
	err = c.workers.Submit(func(ctx context.Context) error {
		return c.run(ctx, job, payload)
	})
	if err != nil {
		c.logger.Warn("ingestion job rejected",
			zap.String("job_id", job.ID), zap.Error(err))
		c.finish(job, types.JobFailed, reasonQueueUnavailable)
		return job.ID, types.WrapError(types.ErrCodeIngestionRejected, reasonQueueUnavailable, err).
			WithRetryable(errors.Is(err, pool.ErrPoolFull))
	}

	c.logger.Info("ingestion job accepted",
		zap.String("job_id", job.ID),
		zap.String("partition", string(partition)),
		zap.String("filename", filename),
		zap.Int("bytes", len(data)),
	)
	return job.ID, nil
}

// Status 返回任务状态快照
func (c *Coordinator) Status(ctx context.Context, id string) (types.JobStatus, error) {
	return c.jobs.Get(ctx, id)
}

// InsertRecord 同步嵌入并写入单条记录
func (c *Coordinator) InsertRecord(ctx context.Context, partitionTag, id, text string) error {
	partition, err := types.ParsePartition(partitionTag)
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	text = strings.TrimSpace(text)
	if id == "" || text == "" {
		return types.ErrInvalidRecord
	}

	ctx, span := c.tracer.Start(ctx, "ingest.insert_record",
		trace.WithAttributes(attribute.String("partition", string(partition))))
	defer span.End()

	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embed failed")
		return err
	}

	_, err = c.store.InsertMany(ctx, []types.Record{{
		ID:        id,
		Partition: partition,
		Text:      types.TruncateText(text, c.cfg.MaxTextLength),
		Embedding: vec,
		CreatedAt: time.Now().UTC(),
	}})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return err
	}
	c.metrics.RecordIngestRows(string(partition), 1, 0)
	return nil
}

// Close 停止接收新任务并等待运行中的任务结束
func (c *Coordinator) Close(ctx context.Context) error {
	return c.workers.Close(ctx)
}

// =============================================================================
// ⚙️ 任务执行
// =============================================================================

func (c *Coordinator) run(ctx context.Context, job types.JobStatus, data []byte) error {
	ctx, span := c.tracer.Start(ctx, "ingest.run", trace.WithAttributes(
		attribute.String("job_id", job.ID),
		attribute.String("partition", string(job.Partition)),
		attribute.String("filename", job.Filename),
	))
	defer span.End()

	log := c.logger.With(zap.String("job_id", job.ID), zap.String("partition", string(job.Partition)))
	start := time.Now()

	job.State = types.JobRunning
	job.UpdatedAt = time.Now().UTC()
	c.saveStatus(job)
	c.metrics.RecordIngestJob(string(job.Partition), string(types.JobRunning))

	table, err := c.decoders.Decode(ctx, job.Filename, data)
	if err != nil {
		log.Warn("decode failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		c.finish(job, types.JobFailed, err.Error())
		return err
	}

	rows, skipped := NormalizeRows(table)
	records := make([]types.Record, 0, len(rows))
	for _, row := range rows {
		vec, err := c.embedder.Embed(ctx, row.Text)
		if err != nil {
			log.Warn("skipping row: embed failed", zap.Int("row", row.Index), zap.Error(err))
			skipped++
			continue
		}
		records = append(records, types.Record{
			ID:        recordID(job.ID, row.Index),
			Partition: job.Partition,
			Text:      types.TruncateText(row.Text, c.cfg.MaxTextLength),
			Embedding: vec,
			CreatedAt: time.Now().UTC(),
		})
	}
	job.Skipped = skipped

	inserted := 0
	if len(records) > 0 {
		inserted, err = c.store.InsertMany(ctx, records)
		if err != nil {
			log.Error("bulk insert failed", zap.Int("rows", len(records)), zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "insert failed")
			c.finish(job, types.JobFailed, err.Error())
			return err
		}
	}

	job.Inserted = inserted
	c.finish(job, types.JobCompleted, "")
	c.metrics.RecordIngestRows(string(job.Partition), inserted, skipped)
	span.SetAttributes(attribute.Int("inserted", inserted), attribute.Int("skipped", skipped))

	log.Info("ingestion job completed",
		zap.Int("inserted", inserted),
		zap.Int("skipped", skipped),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// recordID 由任务 id 与数据行序号组成，同名文件重复上传也不会冲突
func recordID(jobID string, row int) string {
	return fmt.Sprintf("%s#row%d", jobID, row)
}

// finish 写入终态。失败任务的写入数固定为 0.
func (c *Coordinator) finish(job types.JobStatus, state types.JobState, reason string) {
	job.State = state
	job.Reason = reason
	if state == types.JobFailed {
		job.Inserted = 0
	}
	job.UpdatedAt = time.Now().UTC()
	c.saveStatus(job)
	c.metrics.RecordIngestJob(string(job.Partition), string(state))
}

// saveStatus 使用独立的超时上下文写入，任务上下文取消时状态仍能落盘.
func (c *Coordinator) saveStatus(job types.JobStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.StatusTimeout)
	defer cancel()

	if err := c.jobs.Update(ctx, job); err != nil {
		c.logger.Error("failed to persist job status",
			zap.String("job_id", job.ID),
			zap.String("state", string(job.State)),
			zap.Error(err),
		)
	}
}
