package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCompositeHealthChecker_NoChecks(t *testing.T) {
	status := NewCompositeHealthChecker("1.0.0").Check(context.Background())

	assert.True(t, status.Healthy)
	assert.True(t, status.Ready)
	assert.Equal(t, "No health checks registered", status.Message)
	assert.Equal(t, "1.0.0", status.Version)
}

func TestCompositeHealthChecker_OptionalFailureDegrades(t *testing.T) {
	c := NewCompositeHealthChecker("1.0.0")
	c.AddCheck("postgres", NewPingCheck(pingerFunc(func(context.Context) error { return nil })))
	c.AddOptionalCheck("renderer", func(context.Context) error { return errors.New("chrome not found") })

	status := c.Check(context.Background())

	assert.True(t, status.Healthy)
	assert.True(t, status.Degraded)
	assert.Equal(t, "Degraded: renderer", status.Message)
	require.Contains(t, status.Checks, "renderer")
	assert.True(t, status.Checks["renderer"].Optional)
	assert.Equal(t, "chrome not found", status.Checks["renderer"].Message)
}

func TestCompositeHealthChecker_RequiredFailureIsUnhealthy(t *testing.T) {
	c := NewCompositeHealthChecker("1.0.0")
	c.SetTimeout(20 * time.Millisecond)
	c.AddCheck("redis", NewPingCheck(pingerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})))
	c.AddOptionalCheck("renderer", func(context.Context) error { return errors.New("down") })

	status := c.Check(context.Background())

	assert.False(t, status.Healthy)
	assert.False(t, status.Ready)
	assert.False(t, status.Degraded)
	assert.Equal(t, "Some checks failed: redis", status.Message)
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["redis"].Message)
}
