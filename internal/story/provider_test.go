package story

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func stubSleep(t *testing.T, waits *[]time.Duration) func() {
	t.Helper()
	orig := sleep
	sleep = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return func() { sleep = orig }
}

func TestRetryOnlyRetriesRateLimits(t *testing.T) {
	var waits []time.Duration
	defer stubSleep(t, &waits)()

	calls := 0
	err := Retry(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "non-rate-limit failures fail fast")
	assert.Empty(t, waits)
}

func TestRetryBacksOffOnRateLimit(t *testing.T) {
	var waits []time.Duration
	defer stubSleep(t, &waits)()

	calls := 0
	err := Retry(context.Background(), func(ctx context.Context) error {
		calls++
		return fmt.Errorf("status 429: %w", ErrRateLimited)
	})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{15 * time.Second, 30 * time.Second, 60 * time.Second}, waits)
}

func TestRetryStopsOnSuccess(t *testing.T) {
	var waits []time.Duration
	defer stubSleep(t, &waits)()

	calls := 0
	err := Retry(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return ErrRateLimited
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Retry(ctx, func(ctx context.Context) error {
		calls++
		return ErrRateLimited
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "the wait before the second attempt sees the cancelled context")
}
