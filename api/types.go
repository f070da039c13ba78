package api

import "github.com/AAreesha/Cross-Reference-Database-System/types"

// =============================================================================
// 搜索类型
// =============================================================================

// SearchRequest 语义搜索请求
// @Description 语义搜索请求结构
type SearchRequest struct {
	// 自然语言查询
	Query string `json:"query" example:"supplier contract renewal 2023" binding:"required"`
}

// SuggestionsResponse 历史查询建议
// @Description 已缓存的历史查询
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// =============================================================================
// 导入类型
// =============================================================================

// IngestAccepted 文件导入已受理
// @Description 异步导入任务的受理回执
type IngestAccepted struct {
	// 任务 ID，用于查询 /files/status/{id}
	UploadID string `json:"upload_id" example:"0b6f2c1e-8d4a-4f1b-9c3e-2a7d5e6f8a9b"`
	// 初始状态
	Status types.JobState `json:"status" example:"pending"`
	// 目标分区
	Partition string `json:"partition" example:"db1"`
	// 原始文件名
	Filename string `json:"filename" example:"vendors.csv"`
}

// InsertRecordRequest 单条记录写入请求
// @Description 单条记录写入请求结构
type InsertRecordRequest struct {
	// 分区标签 db1..db4
	Partition string `json:"partition" example:"db2" binding:"required"`
	// 分区内唯一 ID
	ID string `json:"id" example:"contract-2023-041" binding:"required"`
	// 记录文本
	Text string `json:"text" example:"Renewal of the logistics contract with Acme" binding:"required"`
}

// InsertRecordResponse 单条记录写入结果
type InsertRecordResponse struct {
	Status    string `json:"status" example:"success"`
	ID        string `json:"id"`
	Partition string `json:"partition"`
}
