package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	cause := errors.New("db down")
	calls := 0

	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		return cause
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, calls)
}

func TestDoWithLog_ReportsRetriedAttempts(t *testing.T) {
	var attempts []int

	err := DoWithLog(context.Background(), fastConfig(3), "PostgreSQL", func() error {
		return errors.New("refused")
	}, func(attempt int, err error, nextDelay time.Duration) {
		attempts = append(attempts, attempt)
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PostgreSQL: max retry attempts (3) exceeded")
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fastConfig(3), func() error {
		calls++
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}
