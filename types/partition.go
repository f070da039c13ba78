package types

import (
	"fmt"
	"strings"
)

// Partition 数据源分区标签
type Partition string

const (
	PartitionDB1 Partition = "db1"
	PartitionDB2 Partition = "db2"
	PartitionDB3 Partition = "db3"
	PartitionDB4 Partition = "db4"
)

// allPartitions 固定的分区迭代顺序，检索去重依赖该顺序。
var allPartitions = []Partition{PartitionDB1, PartitionDB2, PartitionDB3, PartitionDB4}

// AllPartitions 按固定顺序返回全部分区
func AllPartitions() []Partition {
	out := make([]Partition, len(allPartitions))
	copy(out, allPartitions)
	return out
}

// ParsePartition 校验并解析分区标签（大小写不敏感）
func ParsePartition(tag string) (Partition, error) {
	p := Partition(strings.ToLower(strings.TrimSpace(tag)))
	if !p.Valid() {
		return "", NewError(ErrCodeInvalidPartition, fmt.Sprintf("invalid partition tag %q", tag))
	}
	return p, nil
}

// Valid 判断分区是否属于已知集合
func (p Partition) Valid() bool {
	for _, known := range allPartitions {
		if p == known {
			return true
		}
	}
	return false
}

func (p Partition) String() string {
	return string(p)
}
