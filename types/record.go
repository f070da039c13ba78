package types

import "time"

// MaxRecordTextLength 记录文本的最大字符数（按 rune 计）
const MaxRecordTextLength = 10000

// Record 单条已嵌入记录，身份键为 (Partition, ID)。
type Record struct {
	ID        string    `json:"id"`
	Partition Partition `json:"partition"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordKey 记录身份键
type RecordKey struct {
	Partition Partition
	ID        string
}

// Key 返回记录的身份键
func (r Record) Key() RecordKey {
	return RecordKey{Partition: r.Partition, ID: r.ID}
}

// TruncateText 将文本截断到 max 个字符，保证不切断 UTF-8 字符。
func TruncateText(text string, max int) string {
	if max <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == max {
			return text[:i]
		}
		count++
	}
	return text
}
