package ingest

import (
	"strings"

	"github.com/AAreesha/Cross-Reference-Database-System/rag/loader"
)

// Row 清洗后待嵌入的一行
type Row struct {
	// Index 原始数据行序号（从 1 开始，不含表头）
	Index int
	Text  string
}

// NormalizeRows 清洗解码后的表格：
// 丢弃全空行与完全重复的行，将非空单元格以单个空格拼接，
// 拼接结果为空或为 "nan"（不区分大小写）的行同样丢弃.
// 返回保留的行以及被丢弃的行数.
func NormalizeRows(table *loader.Table) ([]Row, int) {
	if table == nil {
		return nil, 0
	}

	rows := make([]Row, 0, len(table.Rows))
	seen := make(map[string]struct{}, len(table.Rows))
	dropped := 0

	for _, r := range table.Rows {
		cells := trimCells(r.Cells)
		if len(cells) == 0 {
			dropped++
			continue
		}

		key := strings.Join(cells, "\x1f")
		if _, dup := seen[key]; dup {
			dropped++
			continue
		}
		seen[key] = struct{}{}

		text := RowText(cells)
		if text == "" || strings.EqualFold(text, "nan") {
			dropped++
			continue
		}
		rows = append(rows, Row{Index: r.Index, Text: text})
	}
	return rows, dropped
}

// RowText 将非空单元格去除首尾空白后以单个空格拼接
func RowText(cells []string) string {
	parts := make([]string, 0, len(cells))
	for _, c := range cells {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}

// trimCells 去除单元格首尾空白并截掉末尾空单元格，
// 使 CSV 与 Excel 对同一行给出相同的比较键。全空行返回 nil.
func trimCells(cells []string) []string {
	out := make([]string, len(cells))
	last := -1
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
		if out[i] != "" {
			last = i
		}
	}
	return out[:last+1]
}
