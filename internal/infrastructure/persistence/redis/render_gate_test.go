package redis

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raporhub/rapor-hub/internal/domain/shared"
)

// newTestClient connects to REDIS_TEST_HOST or skips.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	host := os.Getenv("REDIS_TEST_HOST")
	if host == "" {
		t.Skip("REDIS_TEST_HOST not set")
	}
	cfg := DefaultConfig()
	cfg.Host = host
	if port, err := strconv.Atoi(os.Getenv("REDIS_TEST_PORT")); err == nil {
		cfg.Port = port
	}
	client, err := NewClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestConfig_Addr(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "localhost:6379", cfg.Addr())
}

func TestRenderGate_LimitsConcurrentHolders(t *testing.T) {
	client := newTestClient(t)
	cfg := DefaultGateConfig()
	cfg.Name = "test-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	cfg.Limit = 1
	cfg.WaitTimeout = 300 * time.Millisecond
	cfg.PollInterval = 50 * time.Millisecond
	gate := NewRenderGate(client, cfg)
	ctx := context.Background()

	release, err := gate.Acquire(ctx)
	require.NoError(t, err)

	_, err = gate.Acquire(ctx)
	assert.ErrorIs(t, err, shared.ErrRenderSlotBusy)

	release()

	release2, err := gate.Acquire(ctx)
	require.NoError(t, err)
	release2()

	inUse, err := gate.InUse(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), inUse)
}
