package rag

import (
	"context"
	"fmt"
	"math"

	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// RecordStore 是按分区组织的记录索引：向量近邻、词法检索与事务性批量写入.
type RecordStore interface {
	// InsertMany 原子地写入一批记录：要么全部成功，要么一条也不写入.
	InsertMany(ctx context.Context, records []types.Record) (int, error)

	// NearestByVector 返回分区内按余弦距离升序的前 limit 条记录，距离相同按写入顺序.
	NearestByVector(ctx context.Context, partition types.Partition, vector []float32, limit int) ([]VectorHit, error)

	// SearchLexical 返回分区内所有词项均前缀命中的记录，按得分降序.
	SearchLexical(ctx context.Context, partition types.Partition, terms []string, limit int) ([]LexicalHit, error)

	// Count 返回分区内记录数.
	Count(ctx context.Context, partition types.Partition) (int, error)
}

// VectorHit 向量检索命中
type VectorHit struct {
	Record   types.Record `json:"record"`
	Distance float64      `json:"distance"`
}

// LexicalHit 词法检索命中
type LexicalHit struct {
	Record types.Record `json:"record"`
	Score  float64      `json:"score"`
}

// CosineDistance 返回 1 - cos(a, b)。长度不一致或任一向量为零向量时 cos 视为 0.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1.0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 1.0
	}
	return 1.0 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// validateBatch 在任何写入之前校验整批记录，批内重复键视为错误.
func validateBatch(records []types.Record) error {
	seen := make(map[types.RecordKey]struct{}, len(records))
	for i, r := range records {
		switch {
		case !r.Partition.Valid():
			return fmt.Errorf("record %d: invalid partition %q", i, r.Partition)
		case r.ID == "":
			return fmt.Errorf("record %d: empty id", i)
		case r.Text == "":
			return fmt.Errorf("record %s: empty text", r.ID)
		case len(r.Embedding) == 0:
			return fmt.Errorf("record %s: no embedding", r.ID)
		}
		if _, dup := seen[r.Key()]; dup {
			return fmt.Errorf("record %s/%s: duplicate key in batch", r.Partition, r.ID)
		}
		seen[r.Key()] = struct{}{}
	}
	return nil
}

func clampLimit(limit, n int) int {
	if limit <= 0 || limit > n {
		return n
	}
	return limit
}
