package rag

import "github.com/AAreesha/Cross-Reference-Database-System/types"

// OutcomeKind 检索结果类型
type OutcomeKind string

const (
	// OutcomeResults 至少一条排序结果
	OutcomeResults OutcomeKind = "results"
	// OutcomeNoData 所有分区均为空
	OutcomeNoData OutcomeKind = "no_data"
	// OutcomeNoMatches 有数据但无任何候选
	OutcomeNoMatches OutcomeKind = "no_matches"
	// OutcomeServiceDegraded 嵌入服务或存储不可用
	OutcomeServiceDegraded OutcomeKind = "service_degraded"
)

// RankedResult 融合后的单条结果，身份键为 (Partition, ID).
type RankedResult struct {
	Record        types.Record `json:"record"`
	Score         float64      `json:"score"`
	Dense         bool         `json:"dense"`
	DenseRank     int          `json:"dense_rank,omitempty"` // 1 起，0 表示非向量命中
	DenseDistance float64      `json:"dense_distance,omitempty"`
	Sparse        bool         `json:"sparse"`
	SparseRank    int          `json:"sparse_rank,omitempty"` // 1 起，0 表示非词法命中
	SparseScore   float64      `json:"sparse_score,omitempty"`
}

// Outcome 一次检索的完整结果
type Outcome struct {
	Kind            OutcomeKind       `json:"kind"`
	Results         []RankedResult    `json:"results,omitempty"`
	ContextText     string            `json:"context_text,omitempty"`
	CitedPartitions []types.Partition `json:"cited_partitions,omitempty"`
	Reason          string            `json:"reason,omitempty"`
}
