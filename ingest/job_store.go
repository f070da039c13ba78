package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// JobStore 保存导入任务状态。同一任务只由其所属的执行 goroutine 写入.
type JobStore interface {
	// Create 登记新任务
	Create(ctx context.Context, job types.JobStatus) error
	// Update 整体替换任务快照
	Update(ctx context.Context, job types.JobStatus) error
	// Get 读取任务快照，未知 id 返回 types.ErrUnknownJob
	Get(ctx context.Context, id string) (types.JobStatus, error)
}

func unknownJob(id string) error {
	return types.NewError(types.ErrCodeUnknownJob, fmt.Sprintf("unknown job id %q", id))
}

// =============================================================================
// 🧠 内存任务表
// =============================================================================

// MemoryJobStore 进程内任务表，重启后丢失.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]types.JobStatus
}

// NewMemoryJobStore 创建内存任务表
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]types.JobStatus)}
}

func (s *MemoryJobStore) Create(ctx context.Context, job types.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryJobStore) Update(ctx context.Context, job types.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; !exists {
		return unknownJob(job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryJobStore) Get(ctx context.Context, id string) (types.JobStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return types.JobStatus{}, unknownJob(id)
	}
	return job, nil
}

// =============================================================================
// 🗄️ GORM 任务表
// =============================================================================

// JobRow 是 ingest_jobs 表的行模型
type JobRow struct {
	ID           string    `gorm:"column:id;primaryKey;size:36"`
	PartitionTag string    `gorm:"column:partition_tag;size:8;not null"`
	Filename     string    `gorm:"column:filename;size:512;not null"`
	State        string    `gorm:"column:state;size:16;not null;index:idx_ingest_jobs_state"`
	Reason       string    `gorm:"column:reason;type:text"`
	Inserted     int       `gorm:"column:inserted_count;not null;default:0"`
	Skipped      int       `gorm:"column:skipped_count;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

// TableName 返回表名
func (JobRow) TableName() string { return "ingest_jobs" }

func jobRowFrom(job types.JobStatus) JobRow {
	return JobRow{
		ID:           job.ID,
		PartitionTag: string(job.Partition),
		Filename:     job.Filename,
		State:        string(job.State),
		Reason:       job.Reason,
		Inserted:     job.Inserted,
		Skipped:      job.Skipped,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

func (r JobRow) toStatus() types.JobStatus {
	return types.JobStatus{
		ID:        r.ID,
		Partition: types.Partition(r.PartitionTag),
		Filename:  r.Filename,
		State:     types.JobState(r.State),
		Reason:    r.Reason,
		Inserted:  r.Inserted,
		Skipped:   r.Skipped,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// GormJobStore 持久化任务表，服务重启后仍可查询历史任务.
type GormJobStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormJobStore 创建 GORM 任务表
func NewGormJobStore(db *gorm.DB, logger *zap.Logger) *GormJobStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormJobStore{
		db:     db,
		logger: logger.With(zap.String("component", "gorm_job_store")),
	}
}

// AutoMigrate 创建或更新 ingest_jobs 表结构
func (s *GormJobStore) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&JobRow{})
}

func (s *GormJobStore) Create(ctx context.Context, job types.JobStatus) error {
	row := jobRowFrom(job)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return types.WrapError(types.ErrCodeStorageWriteFailed, "create job", err)
	}
	return nil
}

func (s *GormJobStore) Update(ctx context.Context, job types.JobStatus) error {
	row := jobRowFrom(job)
	res := s.db.WithContext(ctx).
		Model(&JobRow{}).
		Where("id = ?", job.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(&row)
	if res.Error != nil {
		return types.WrapError(types.ErrCodeStorageWriteFailed, "update job", res.Error)
	}
	if res.RowsAffected == 0 {
		return unknownJob(job.ID)
	}
	return nil
}

func (s *GormJobStore) Get(ctx context.Context, id string) (types.JobStatus, error) {
	var row JobRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.JobStatus{}, unknownJob(id)
	}
	if err != nil {
		return types.JobStatus{}, types.WrapError(types.ErrCodeStorageReadFailed, "get job", err)
	}
	return row.toStatus(), nil
}
