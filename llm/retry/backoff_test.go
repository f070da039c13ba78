package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

func fastPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestRetryer_SucceedsAfterRetryableFailures(t *testing.T) {
	calls := 0
	r := New(fastPolicy(3), zap.NewNop())

	v, err := Do(context.Background(), r, func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, types.NewError(types.ErrCodeEmbeddingUnavailable, "HTTP 503").WithRetryable(true)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, calls)
}

func TestRetryer_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	r := New(fastPolicy(3), nil)
	want := types.NewError(types.ErrCodeEmbeddingUnavailable, "HTTP 401")

	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return want
	})
	assert.ErrorIs(t, err, want)
	assert.Equal(t, 1, calls)
}

func TestRetryer_ExhaustedReturnsLastError(t *testing.T) {
	calls := 0
	var retried []int
	p := fastPolicy(2)
	p.Retryable = func(error) bool { return true }
	p.OnRetry = func(attempt int, err error, delay time.Duration) { retried = append(retried, attempt) }
	r := New(p, nil)

	boom := errors.New("boom")
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	})
	assert.Same(t, boom, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetryer_ZeroRetries(t *testing.T) {
	calls := 0
	r := New(Policy{Retryable: func(error) bool { return true }}, nil)
	_ = r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("x")
	})
	assert.Equal(t, 1, calls)
}

func TestRetryer_ContextCancelledDuringBackoff(t *testing.T) {
	p := Policy{MaxRetries: 5, InitialDelay: time.Second, Retryable: func(error) bool { return true }}
	r := New(p, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	boom := errors.New("boom")
	start := time.Now()
	err := r.Do(ctx, func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRetryer_DelayIsCapped(t *testing.T) {
	r := New(Policy{InitialDelay: 10 * time.Millisecond, MaxDelay: 40 * time.Millisecond, Multiplier: 2}, nil)

	assert.Equal(t, 10*time.Millisecond, r.delay(1))
	assert.Equal(t, 20*time.Millisecond, r.delay(2))
	assert.Equal(t, 40*time.Millisecond, r.delay(3))
	assert.Equal(t, 40*time.Millisecond, r.delay(10))
}
