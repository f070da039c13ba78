package rag

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// ====== 内存记录存储（用于测试和小规模部署）======

// MemoryStore 内存记录存储，每个分区一个按写入顺序排列的切片.
type MemoryStore struct {
	mu         sync.RWMutex
	partitions map[types.Partition][]types.Record
	keys       map[types.RecordKey]struct{}
	logger     *zap.Logger
}

// NewMemoryStore 创建内存记录存储
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		partitions: make(map[types.Partition][]types.Record),
		keys:       make(map[types.RecordKey]struct{}),
		logger:     logger.With(zap.String("component", "memory_store")),
	}
}

// InsertMany 先完整校验再追加，任一记录非法或与已有记录重复时整批拒绝.
func (s *MemoryStore) InsertMany(ctx context.Context, records []types.Record) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, types.WrapError(types.ErrCodeStorageWriteFailed, "insert cancelled", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := validateBatch(records); err != nil {
		return 0, types.WrapError(types.ErrCodeStorageWriteFailed, "invalid batch", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if _, exists := s.keys[r.Key()]; exists {
			return 0, types.NewError(types.ErrCodeStorageWriteFailed,
				fmt.Sprintf("record %s/%s already exists", r.Partition, r.ID))
		}
	}

	now := time.Now()
	for _, r := range records {
		stored := r
		stored.Embedding = append([]float32(nil), r.Embedding...)
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		s.partitions[r.Partition] = append(s.partitions[r.Partition], stored)
		s.keys[r.Key()] = struct{}{}
	}

	s.logger.Debug("records inserted", zap.Int("count", len(records)))
	return len(records), nil
}

// NearestByVector 线性扫描分区并按余弦距离排序，稳定排序保证写入顺序决胜.
func (s *MemoryStore) NearestByVector(ctx context.Context, partition types.Partition, vector []float32, limit int) ([]VectorHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.WrapError(types.ErrCodeStorageReadFailed, "vector search cancelled", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.partitions[partition]
	hits := make([]VectorHit, 0, len(rows))
	for _, r := range rows {
		hits = append(hits, VectorHit{Record: r, Distance: CosineDistance(vector, r.Embedding)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	return hits[:clampLimit(limit, len(hits))], nil
}

// SearchLexical 对分区内每条记录计算前缀匹配得分，零命中记录不返回.
func (s *MemoryStore) SearchLexical(ctx context.Context, partition types.Partition, terms []string, limit int) ([]LexicalHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.WrapError(types.ErrCodeStorageReadFailed, "lexical search cancelled", err)
	}
	if len(terms) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []LexicalHit
	for _, r := range s.partitions[partition] {
		if score, ok := LexicalScore(terms, r.Text); ok {
			hits = append(hits, LexicalHit{Record: r, Score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	return hits[:clampLimit(limit, len(hits))], nil
}

// Count 返回分区内记录数
func (s *MemoryStore) Count(ctx context.Context, partition types.Partition) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, types.WrapError(types.ErrCodeStorageReadFailed, "count cancelled", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.partitions[partition]), nil
}
