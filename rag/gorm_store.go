package rag

import (
	"context"
	"sort"
	"time"
	"unicode"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AAreesha/Cross-Reference-Database-System/internal/metrics"
	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// ====== GORM 记录存储 ======

// RecordRow 是 records 表的行模型。seq 自增，决定写入顺序.
type RecordRow struct {
	Seq          uint64    `gorm:"column:seq;primaryKey;autoIncrement"`
	PartitionTag string    `gorm:"column:partition_tag;size:8;not null;uniqueIndex:idx_records_partition_record,priority:1"`
	RecordID     string    `gorm:"column:record_id;size:512;not null;uniqueIndex:idx_records_partition_record,priority:2"`
	Content      string    `gorm:"column:content;type:text;not null"`
	Embedding    []float32 `gorm:"column:embedding;type:text;not null;serializer:json"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

// TableName 返回表名
func (RecordRow) TableName() string { return "records" }

func (r RecordRow) toRecord() types.Record {
	return types.Record{
		ID:        r.RecordID,
		Partition: types.Partition(r.PartitionTag),
		Text:      r.Content,
		Embedding: r.Embedding,
		CreatedAt: r.CreatedAt,
	}
}

// GormStoreConfig GORM 存储配置
type GormStoreConfig struct {
	// BatchSize 单条 INSERT 语句携带的最大行数
	BatchSize int `json:"batch_size" yaml:"batch_size"`
	// Database 用于指标标签的数据库名
	Database string `json:"database" yaml:"database"`
}

// GormStore 基于关系型数据库的 RecordStore 实现.
// 向量距离在 Go 中计算，适用于分区规模可整体加载的场景.
type GormStore struct {
	db      *gorm.DB
	cfg     GormStoreConfig
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewGormStore 创建 GORM 记录存储
func NewGormStore(db *gorm.DB, cfg GormStoreConfig, collector *metrics.Collector, logger *zap.Logger) *GormStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.Database == "" {
		cfg.Database = db.Dialector.Name()
	}
	return &GormStore{
		db:      db,
		cfg:     cfg,
		metrics: collector,
		logger:  logger.With(zap.String("component", "gorm_store")),
	}
}

// AutoMigrate 创建 records 表（开发与测试使用，生产环境走 migration 包）
func (s *GormStore) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&RecordRow{})
}

// InsertMany 在单个事务中写入整批记录，唯一约束冲突或提交失败都会整体回滚.
func (s *GormStore) InsertMany(ctx context.Context, records []types.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := validateBatch(records); err != nil {
		return 0, types.WrapError(types.ErrCodeStorageWriteFailed, "invalid batch", err)
	}

	now := time.Now()
	rows := make([]RecordRow, len(records))
	for i, r := range records {
		created := r.CreatedAt
		if created.IsZero() {
			created = now
		}
		rows[i] = RecordRow{
			PartitionTag: string(r.Partition),
			RecordID:     r.ID,
			Content:      r.Text,
			Embedding:    r.Embedding,
			CreatedAt:    created,
		}
	}

	start := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Session(&gorm.Session{SkipDefaultTransaction: true}).
			CreateInBatches(&rows, s.cfg.BatchSize).Error
	})
	s.metrics.RecordDBQuery(s.cfg.Database, "insert_many", time.Since(start))
	if err != nil {
		s.logger.Error("batch insert failed",
			zap.Int("records", len(records)),
			zap.Error(err))
		return 0, types.WrapError(types.ErrCodeStorageWriteFailed, "batch insert rolled back", err)
	}

	s.logger.Debug("records inserted", zap.Int("count", len(rows)))
	return len(rows), nil
}

// NearestByVector 加载分区内全部向量并按余弦距离排序，距离相同按 seq.
func (s *GormStore) NearestByVector(ctx context.Context, partition types.Partition, vector []float32, limit int) ([]VectorHit, error) {
	var rows []RecordRow
	start := time.Now()
	err := s.db.WithContext(ctx).
		Where("partition_tag = ?", string(partition)).
		Order("seq").
		Find(&rows).Error
	s.metrics.RecordDBQuery(s.cfg.Database, "nearest_by_vector", time.Since(start))
	if err != nil {
		return nil, types.WrapError(types.ErrCodeStorageReadFailed, "load partition vectors", err)
	}

	hits := make([]VectorHit, len(rows))
	for i, row := range rows {
		hits[i] = VectorHit{Record: row.toRecord(), Distance: CosineDistance(vector, row.Embedding)}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	return hits[:clampLimit(limit, len(hits))], nil
}

// SearchLexical 先以 LIKE 过滤候选，再在 Go 中计算前缀匹配得分.
func (s *GormStore) SearchLexical(ctx context.Context, partition types.Partition, terms []string, limit int) ([]LexicalHit, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	query := s.db.WithContext(ctx).
		Where("partition_tag = ?", string(partition))
	if term, ok := prefilterTerm(terms); ok {
		query = query.Where("LOWER(content) LIKE ?", "%"+term+"%")
	}

	var rows []RecordRow
	start := time.Now()
	err := query.Order("seq").Find(&rows).Error
	s.metrics.RecordDBQuery(s.cfg.Database, "search_lexical", time.Since(start))
	if err != nil {
		return nil, types.WrapError(types.ErrCodeStorageReadFailed, "lexical candidate scan", err)
	}

	var hits []LexicalHit
	for _, row := range rows {
		if score, ok := LexicalScore(terms, row.Content); ok {
			hits = append(hits, LexicalHit{Record: row.toRecord(), Score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	return hits[:clampLimit(limit, len(hits))], nil
}

// Count 返回分区内记录数
func (s *GormStore) Count(ctx context.Context, partition types.Partition) (int, error) {
	var n int64
	start := time.Now()
	err := s.db.WithContext(ctx).
		Model(&RecordRow{}).
		Where("partition_tag = ?", string(partition)).
		Count(&n).Error
	s.metrics.RecordDBQuery(s.cfg.Database, "count", time.Since(start))
	if err != nil {
		return 0, types.WrapError(types.ErrCodeStorageReadFailed, "count partition", err)
	}
	return int(n), nil
}

// prefilterTerm 选取第一个纯 ASCII 词项用于 LIKE 预过滤.
// 部分数据库的 LOWER 只处理 ASCII，非 ASCII 词项交给 Go 侧评分.
func prefilterTerm(terms []string) (string, bool) {
	for _, term := range terms {
		ascii := true
		for _, r := range term {
			if r > unicode.MaxASCII {
				ascii = false
				break
			}
		}
		if ascii {
			return term, true
		}
	}
	return "", false
}
