package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errCrash = errors.New("browser crashed")

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func fail(context.Context) error { return errCrash }
func ok(context.Context) error   { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	var transitions []string
	cb := New("chrome",
		WithFailureThreshold(2),
		WithCooldown(time.Minute),
		WithClock(clock.now),
		WithOnStateChange(func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		}),
	)
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, fail), errCrash)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, fail), errCrash)
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(ctx, ok)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, IsRejected(err))

	clock.advance(time.Minute)
	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	cb := New("chrome", WithFailureThreshold(1), WithCooldown(time.Second), WithClock(clock.now))
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clock.advance(time.Second)
	_ = cb.Execute(ctx, fail)

	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, ok), ErrCircuitOpen)
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	cb := New("chrome", WithFailureThreshold(1), WithIsFailure(func(err error) bool {
		return !errors.Is(err, context.DeadlineExceeded)
	}))

	_ = cb.Execute(context.Background(), func(context.Context) error { return context.DeadlineExceeded })
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Counts().TotalSuccesses)

	cb.Reset()
	assert.Equal(t, Counts{}, cb.Counts())
}
