package rag

import (
	"strconv"
	"strings"

	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// FormatContext 将结果渲染为 "[n] text" 段落，以空行分隔.
// n 是结果所属分区的引用编号，按分区首次出现顺序从 1 开始分配.
// 同时返回按编号排列的分区列表.
func FormatContext(results []RankedResult) (string, []types.Partition) {
	if len(results) == 0 {
		return "", nil
	}

	citation := make(map[types.Partition]int, len(types.AllPartitions()))
	var cited []types.Partition
	entries := make([]string, 0, len(results))
	for _, r := range results {
		n, ok := citation[r.Record.Partition]
		if !ok {
			cited = append(cited, r.Record.Partition)
			n = len(cited)
			citation[r.Record.Partition] = n
		}
		entries = append(entries, "["+strconv.Itoa(n)+"] "+r.Record.Text)
	}
	return strings.Join(entries, "\n\n"), cited
}
