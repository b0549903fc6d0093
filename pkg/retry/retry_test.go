package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("connection refused")

func fastOptions(extra ...Option) []Option {
	return append([]Option{WithMaxAttempts(3), WithInitialDelay(time.Millisecond), WithJitter(0)}, extra...)
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	var retried []int
	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errDown
		}
		return nil
	}, fastOptions(WithOnRetry(func(attempt int, _ error, _ time.Duration) {
		retried = append(retried, attempt)
	}))...)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_ReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return errDown
	}, fastOptions()...)

	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errDown)
	}, fastOptions()...)

	assert.Equal(t, errDown, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetryIfRejects(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return errDown
	}, fastOptions(WithRetryIf(func(error) bool { return false }))...)

	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, 1, calls)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoWithData(t *testing.T) {
	v, err := DoWithData(context.Background(), func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestDelay_ExponentialAndCapped(t *testing.T) {
	r := New(WithInitialDelay(100*time.Millisecond), WithMaxDelay(300*time.Millisecond), WithJitter(0))

	assert.Equal(t, 100*time.Millisecond, r.Delay(1))
	assert.Equal(t, 200*time.Millisecond, r.Delay(2))
	assert.Equal(t, 300*time.Millisecond, r.Delay(3))
}
