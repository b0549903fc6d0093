package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/raporhub/rapor-hub/internal/application/report"
	"github.com/raporhub/rapor-hub/internal/domain/shared"
)

// acquireScript drops expired leases and adds a new one while the set is
// below the limit. Leases expire on their own if an instance dies mid-render.
//
// KEYS[1] lease set; ARGV: now ms, lease expiry ms, limit, lease id, key ttl ms.
var acquireScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
if redis.call('ZCARD', KEYS[1]) < tonumber(ARGV[3]) then
  redis.call('ZADD', KEYS[1], ARGV[2], ARGV[4])
  redis.call('PEXPIRE', KEYS[1], ARGV[5])
  return 1
end
return 0
`)

// GateConfig configures RenderGate.
type GateConfig struct {
	// Name scopes the lease set (one per deployment).
	Name string

	// Limit is the number of browsers allowed across all instances.
	Limit int

	// LeaseTTL bounds how long a crashed holder keeps a slot.
	LeaseTTL time.Duration

	// WaitTimeout is how long Acquire waits for a free slot.
	WaitTimeout time.Duration

	// PollInterval is the delay between attempts while waiting.
	PollInterval time.Duration
}

// DefaultGateConfig returns a gate sized for a small school deployment.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		Name:         "default",
		Limit:        2,
		LeaseTTL:     90 * time.Second,
		WaitTimeout:  15 * time.Second,
		PollInterval: 250 * time.Millisecond,
	}
}

// RenderGate caps concurrent PDF conversions across service instances.
type RenderGate struct {
	rdb *redis.Client
	cfg GateConfig
	key string
	now func() time.Time
}

var _ report.RenderGate = (*RenderGate)(nil)

// NewRenderGate creates a gate on top of an existing client.
func NewRenderGate(client *Client, cfg GateConfig) *RenderGate {
	if cfg.Limit <= 0 {
		cfg.Limit = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	return &RenderGate{
		rdb: client.Redis(),
		cfg: cfg,
		key: PrefixRender + cfg.Name,
		now: time.Now,
	}
}

// Acquire implements report.RenderGate. It returns shared.ErrRenderSlotBusy
// when no slot frees up within WaitTimeout.
func (g *RenderGate) Acquire(ctx context.Context) (func(), error) {
	lease := uuid.NewString()

	waitCtx := ctx
	if g.cfg.WaitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, g.cfg.WaitTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	for {
		ok, err := g.tryAcquire(waitCtx, lease)
		if err != nil {
			return nil, shared.WrapError("report", "AcquireSlot", shared.ErrServiceUnavailable, "render gate unavailable", err)
		}
		if ok {
			return func() { g.release(lease) }, nil
		}

		select {
		case <-waitCtx.Done():
			return nil, shared.ErrRenderSlotBusy
		case <-ticker.C:
		}
	}
}

// InUse returns the number of live leases.
func (g *RenderGate) InUse(ctx context.Context) (int64, error) {
	now := g.now().UnixMilli()
	return g.rdb.ZCount(ctx, g.key, fmt.Sprintf("(%d", now), "+inf").Result()
}

func (g *RenderGate) tryAcquire(ctx context.Context, lease string) (bool, error) {
	now := g.now()
	res, err := acquireScript.Run(ctx, g.rdb, []string{g.key},
		now.UnixMilli(),
		now.Add(g.cfg.LeaseTTL).UnixMilli(),
		g.cfg.Limit,
		lease,
		(2 * g.cfg.LeaseTTL).Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (g *RenderGate) release(lease string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = g.rdb.ZRem(ctx, g.key, lease).Err()
}
