package types

import "time"

// JobState 导入任务状态
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// Terminal 判断状态是否为终态
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobStatus 导入任务的可观测状态快照
type JobStatus struct {
	ID        string    `json:"job_id"`
	Partition Partition `json:"partition"`
	Filename  string    `json:"filename"`
	State     JobState  `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	Inserted  int       `json:"inserted_count"`
	Skipped   int       `json:"skipped_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
