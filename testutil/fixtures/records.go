package fixtures

import (
	"time"

	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// SampleRecords 覆盖 db1..db4 的样例记录，不含向量
func SampleRecords() []types.Record {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return []types.Record{
		{ID: "c-1", Partition: types.PartitionDB1, Text: "alpha contract renewal for vendor acme", CreatedAt: created},
		{ID: "i-7", Partition: types.PartitionDB2, Text: "invoice 7 references the alpha contract", CreatedAt: created},
		{ID: "h-2", Partition: types.PartitionDB3, Text: "employee handbook section on travel", CreatedAt: created},
		{ID: "p-9", Partition: types.PartitionDB4, Text: "beta project kickoff scheduled for june", CreatedAt: created},
	}
}
