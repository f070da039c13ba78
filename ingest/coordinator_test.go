package ingest

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AAreesha/Cross-Reference-Database-System/internal/pool"
	"github.com/AAreesha/Cross-Reference-Database-System/rag"
	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// stubEmbedder 对包含 "FAIL" 的文本返回错误，其余返回固定向量.
// 设置 texts 后每次调用先上报文本，设置 release 后阻塞直到放行.
type stubEmbedder struct {
	calls   atomic.Int32
	texts   chan string
	release chan struct{}
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls.Add(1)
	if s.texts != nil {
		s.texts <- text
	}
	if s.release != nil {
		<-s.release
	}
	if strings.Contains(text, "FAIL") {
		return nil, types.WrapError(types.ErrCodeEmbeddingUnavailable, "stub", errors.New("provider down"))
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

// brokenStore 写入总是失败
type brokenStore struct {
	rag.RecordStore
}

func (brokenStore) InsertMany(ctx context.Context, records []types.Record) (int, error) {
	return 0, types.WrapError(types.ErrCodeStorageWriteFailed, "insert", errors.New("disk full"))
}

type fixture struct {
	coord    *Coordinator
	store    *rag.MemoryStore
	embedder *stubEmbedder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := rag.NewMemoryStore(zap.NewNop())
	embedder := &stubEmbedder{}
	workers := pool.NewWorkerPool(pool.WorkerPoolConfig{Workers: 2, QueueSize: 8}, zap.NewNop())
	coord := NewCoordinator(store, embedder, NewMemoryJobStore(), workers, Config{}, nil, zap.NewNop())
	t.Cleanup(func() { _ = coord.Close(context.Background()) })

	return &fixture{coord: coord, store: store, embedder: embedder}
}

func waitTerminal(t *testing.T, c *Coordinator, id string) types.JobStatus {
	t.Helper()

	var job types.JobStatus
	require.Eventually(t, func() bool {
		var err error
		job, err = c.Status(context.Background(), id)
		require.NoError(t, err)
		return job.State.Terminal()
	}, 5*time.Second, 5*time.Millisecond)
	return job
}

// =============================================================================
// 🧪 Submit 测试
// =============================================================================

func TestCoordinator_SkipsEmptyAndNaNRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	csv := "a,b\n,\nnan,\nhello,world\n"
	id, err := f.coord.Submit(ctx, []byte(csv), "people.csv", "db1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job := waitTerminal(t, f.coord, id)
	assert.Equal(t, types.JobCompleted, job.State)
	assert.Equal(t, 1, job.Inserted)
	assert.Equal(t, 2, job.Skipped)
	assert.Equal(t, "people.csv", job.Filename)
	assert.Equal(t, types.PartitionDB1, job.Partition)

	n, err := f.store.Count(ctx, types.PartitionDB1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err := f.store.SearchLexical(ctx, types.PartitionDB1, []string{"hello"}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, id+"#row3", hits[0].Record.ID)
	assert.Equal(t, "hello world", hits[0].Record.Text)
}

func TestCoordinator_EmbedFailureSkipsRow(t *testing.T) {
	f := newFixture(t)

	csv := "text\nfirst row\nFAIL here\nthird row\n"
	id, err := f.coord.Submit(context.Background(), []byte(csv), "rows.csv", "db2")
	require.NoError(t, err)

	job := waitTerminal(t, f.coord, id)
	assert.Equal(t, types.JobCompleted, job.State)
	assert.Equal(t, 2, job.Inserted)
	assert.Equal(t, 1, job.Skipped)
}

func TestCoordinator_TruncatesStoredText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	long := strings.Repeat("x", types.MaxRecordTextLength+500)
	f.embedder.texts = make(chan string, 1)

	id, err := f.coord.Submit(ctx, []byte("text\n"+long+"\n"), "long.csv", "db3")
	require.NoError(t, err)
	job := waitTerminal(t, f.coord, id)
	require.Equal(t, types.JobCompleted, job.State)

	// 嵌入看到完整文本
	assert.Len(t, <-f.embedder.texts, len(long))

	hits, err := f.store.NearestByVector(ctx, types.PartitionDB3, []float32{1, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Len(t, []rune(hits[0].Record.Text), types.MaxRecordTextLength)
}

func TestCoordinator_DuplicateUploadFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	csv := []byte("text\nalpha\nbeta\n")

	first, err := f.coord.Submit(ctx, csv, "dup.csv", "db1")
	require.NoError(t, err)
	assert.Equal(t, types.JobCompleted, waitTerminal(t, f.coord, first).State)

	second, err := f.coord.Submit(ctx, csv, "dup.csv", "db1")
	require.NoError(t, err)
	job := waitTerminal(t, f.coord, second)
	assert.Equal(t, types.JobFailed, job.State)
	assert.Zero(t, job.Inserted)
	assert.NotEmpty(t, job.Reason)

	n, err := f.store.Count(ctx, types.PartitionDB1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCoordinator_StorageFailure(t *testing.T) {
	workers := pool.NewWorkerPool(pool.WorkerPoolConfig{Workers: 1, QueueSize: 1}, nil)
	coord := NewCoordinator(brokenStore{}, &stubEmbedder{}, nil, workers, Config{}, nil, nil)
	defer coord.Close(context.Background())

	id, err := coord.Submit(context.Background(), []byte("text\nalpha\n"), "a.csv", "db4")
	require.NoError(t, err)

	job := waitTerminal(t, coord, id)
	assert.Equal(t, types.JobFailed, job.State)
	assert.Zero(t, job.Inserted)
	assert.Contains(t, job.Reason, "disk full")
}

func TestCoordinator_DecodeFailure(t *testing.T) {
	f := newFixture(t)

	id, err := f.coord.Submit(context.Background(), []byte("not a workbook"), "broken.xlsx", "db1")
	require.NoError(t, err)

	job := waitTerminal(t, f.coord, id)
	assert.Equal(t, types.JobFailed, job.State)
	assert.Contains(t, job.Reason, string(types.ErrCodeDecodeFailed))
	assert.Zero(t, f.embedder.calls.Load())
}

func TestCoordinator_SubmitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		filename  string
		partition string
		want      error
	}{
		{"unknown partition", "a.csv", "db9", types.ErrInvalidPartition},
		{"empty partition", "a.csv", "", types.ErrInvalidPartition},
		{"text file", "a.txt", "db1", types.ErrInvalidFileType},
		{"no extension", "upload", "db1", types.ErrInvalidFileType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := f.coord.Submit(ctx, []byte("a\n1\n"), tt.filename, tt.partition)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, id)
		})
	}
}

func TestCoordinator_PoolRejection(t *testing.T) {
	workers := pool.NewWorkerPool(pool.DefaultWorkerPoolConfig(), nil)
	require.NoError(t, workers.Close(context.Background()))

	coord := NewCoordinator(rag.NewMemoryStore(nil), &stubEmbedder{}, nil, workers, Config{}, nil, nil)

	id, err := coord.Submit(context.Background(), []byte("a\n1\n"), "a.csv", "db1")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIngestionRejected)
	require.NotEmpty(t, id)

	job, err := coord.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.JobFailed, job.State)
	assert.Equal(t, "ingestion queue unavailable", job.Reason)
}

func TestCoordinator_SameFilenameTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.coord.Submit(ctx, []byte("text\nfirst upload\n"), "data.csv", "db4")
	require.NoError(t, err)
	require.Equal(t, types.JobCompleted, waitTerminal(t, f.coord, first).State)

	second, err := f.coord.Submit(ctx, []byte("text\nsecond upload\n"), "data.csv", "db4")
	require.NoError(t, err)
	job := waitTerminal(t, f.coord, second)
	assert.Equal(t, types.JobCompleted, job.State)
	assert.Equal(t, 1, job.Inserted)

	n, err := f.store.Count(ctx, types.PartitionDB4)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// blockingEmbedder 阻塞到上下文取消
type blockingEmbedder struct {
	started chan struct{}
}

func (b *blockingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	close(b.started)
	<-ctx.Done()
	return nil, types.WrapError(types.ErrCodeEmbeddingUnavailable, "cancelled", ctx.Err())
}

func TestCoordinator_CloseDeadlineLeavesNoRunningJob(t *testing.T) {
	embedder := &blockingEmbedder{started: make(chan struct{})}
	workers := pool.NewWorkerPool(pool.WorkerPoolConfig{Workers: 1, QueueSize: 1}, zap.NewNop())
	coord := NewCoordinator(rag.NewMemoryStore(zap.NewNop()), embedder, NewMemoryJobStore(), workers, Config{}, nil, zap.NewNop())

	id, err := coord.Submit(context.Background(), []byte("text\nslow row\n"), "slow.csv", "db1")
	require.NoError(t, err)
	<-embedder.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, coord.Close(ctx), context.DeadlineExceeded)

	// Close 返回时任务已写入终态
	job, err := coord.Status(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, job.State.Terminal())
	assert.Zero(t, job.Inserted)
}

func TestCoordinator_UnknownJob(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.Status(context.Background(), "no-such-job")
	assert.ErrorIs(t, err, types.ErrUnknownJob)
}

func TestCoordinator_JobLifecycle(t *testing.T) {
	f := newFixture(t)
	f.embedder.texts = make(chan string)
	f.embedder.release = make(chan struct{})

	id, err := f.coord.Submit(context.Background(), []byte("text\nonly row\n"), "one.csv", "db2")
	require.NoError(t, err)

	// 嵌入被阻塞时任务处于 running
	text := <-f.embedder.texts
	assert.Equal(t, "only row", text)
	job, err := f.coord.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.JobRunning, job.State)
	assert.Zero(t, job.Inserted)

	close(f.embedder.release)
	job = waitTerminal(t, f.coord, id)
	assert.Equal(t, types.JobCompleted, job.State)
	assert.Equal(t, 1, job.Inserted)
	assert.False(t, job.UpdatedAt.Before(job.CreatedAt))
}

// =============================================================================
// 🧪 InsertRecord 测试
// =============================================================================

func TestCoordinator_InsertRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.coord.InsertRecord(ctx, "DB3", "manual-1", "  manually inserted  "))

	hits, err := f.store.SearchLexical(ctx, types.PartitionDB3, []string{"manually"}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "manually inserted", hits[0].Record.Text)

	assert.ErrorIs(t, f.coord.InsertRecord(ctx, "db3", "manual-1", "again"), types.ErrStorageWriteFailed)
	assert.ErrorIs(t, f.coord.InsertRecord(ctx, "db7", "x", "y"), types.ErrInvalidPartition)
	assert.ErrorIs(t, f.coord.InsertRecord(ctx, "db1", "", "y"), types.ErrInvalidRecord)
	assert.ErrorIs(t, f.coord.InsertRecord(ctx, "db1", "x", "   "), types.ErrInvalidRecord)
	assert.ErrorIs(t, f.coord.InsertRecord(ctx, "db1", "x", "FAIL"), types.ErrEmbeddingUnavailable)
}
