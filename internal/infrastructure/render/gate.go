package render

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/raporhub/rapor-hub/internal/application/report"
	"github.com/raporhub/rapor-hub/internal/domain/shared"
)

// LocalGate caps concurrent conversions inside one process. It is used
// when Redis is disabled.
type LocalGate struct {
	sem  *semaphore.Weighted
	wait time.Duration
}

var _ report.RenderGate = (*LocalGate)(nil)

// NewLocalGate allows limit conversions at once; Acquire waits at most wait.
func NewLocalGate(limit int, wait time.Duration) *LocalGate {
	if limit <= 0 {
		limit = 1
	}
	return &LocalGate{sem: semaphore.NewWeighted(int64(limit)), wait: wait}
}

// Acquire implements report.RenderGate.
func (g *LocalGate) Acquire(ctx context.Context) (func(), error) {
	if g.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.wait)
		defer cancel()
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, shared.ErrRenderSlotBusy
		}
		return nil, err
	}
	return func() { g.sem.Release(1) }, nil
}
