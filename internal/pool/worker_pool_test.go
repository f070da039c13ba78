package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWorkerPool_RunsTasks(t *testing.T) {
	p := NewWorkerPool(WorkerPoolConfig{Workers: 3, QueueSize: 16}, zap.NewNop())

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}))
	}

	require.NoError(t, p.Close(context.Background()))
	assert.Equal(t, int32(10), ran.Load())

	stats := p.Stats()
	assert.Equal(t, int64(10), stats.Submitted)
	assert.Equal(t, int64(10), stats.Completed)
	assert.Zero(t, stats.Failed)
}

func TestWorkerPool_QueueFull(t *testing.T) {
	p := NewWorkerPool(WorkerPoolConfig{Workers: 1, QueueSize: 1}, zap.NewNop())

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	// 唯一的 worker 正忙，队列容量为 1
	require.NoError(t, p.Submit(func(ctx context.Context) error { return nil }))
	assert.ErrorIs(t, p.Submit(func(ctx context.Context) error { return nil }), ErrPoolFull)

	close(release)
	require.NoError(t, p.Close(context.Background()))
	assert.Equal(t, int64(1), p.Stats().Rejected)
	assert.Equal(t, int64(2), p.Stats().Completed)
}

func TestWorkerPool_SubmitAfterClose(t *testing.T) {
	p := NewWorkerPool(DefaultWorkerPoolConfig(), nil)
	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()))

	assert.ErrorIs(t, p.Submit(func(ctx context.Context) error { return nil }), ErrPoolClosed)
}

func TestWorkerPool_PanicAndErrorCounted(t *testing.T) {
	p := NewWorkerPool(WorkerPoolConfig{Workers: 1, QueueSize: 4}, zap.NewNop())

	require.NoError(t, p.Submit(func(ctx context.Context) error { panic("boom") }))
	require.NoError(t, p.Submit(func(ctx context.Context) error { return errors.New("failed") }))
	require.NoError(t, p.Submit(func(ctx context.Context) error { return nil }))

	require.NoError(t, p.Close(context.Background()))
	stats := p.Stats()
	assert.Equal(t, int64(2), stats.Failed)
	assert.Equal(t, int64(1), stats.Completed)
}

func TestWorkerPool_CloseTimeoutCancelsTasks(t *testing.T) {
	p := NewWorkerPool(WorkerPoolConfig{Workers: 1, QueueSize: 1}, zap.NewNop())

	var finished, queuedSawCancel atomic.Bool
	require.NoError(t, p.Submit(func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		finished.Store(true)
		return ctx.Err()
	}))
	require.NoError(t, p.Submit(func(ctx context.Context) error {
		queuedSawCancel.Store(ctx.Err() != nil)
		return ctx.Err()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Close(ctx), context.DeadlineExceeded)

	// Close 返回时没有任务仍在运行
	assert.True(t, finished.Load())
	assert.True(t, queuedSawCancel.Load())
	assert.Zero(t, p.Stats().Active)
	assert.Equal(t, int64(2), p.Stats().Failed)
}
