package render

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/raporhub/rapor-hub/internal/application/report"
	"github.com/raporhub/rapor-hub/internal/domain/shared"
	"github.com/raporhub/rapor-hub/pkg/circuitbreaker"
)

type flakyConverter struct {
	err   error
	calls int
}

func (f *flakyConverter) Convert(context.Context, []byte, report.ConvertOptions, string) error {
	f.calls++
	return f.err
}

func TestGuardedConverter_FailsFastWhenOpen(t *testing.T) {
	inner := &flakyConverter{err: errors.New("chrome failed to start")}
	g := NewGuardedConverter(inner, BreakerConfig{FailureThreshold: 2, Cooldown: time.Hour}, nil)
	ctx := context.Background()
	opts := report.DefaultConvertOptions("")

	assert.Error(t, g.Convert(ctx, nil, opts, "a.pdf"))
	assert.Error(t, g.Convert(ctx, nil, opts, "b.pdf"))
	assert.Equal(t, circuitbreaker.StateOpen, g.State())

	err := g.Convert(ctx, nil, opts, "c.pdf")
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	assert.Equal(t, 2, inner.calls)
}

func TestGuardedConverter_TimeoutsDoNotTrip(t *testing.T) {
	inner := &flakyConverter{err: context.DeadlineExceeded}
	g := NewGuardedConverter(inner, BreakerConfig{FailureThreshold: 1, Cooldown: time.Hour}, nil)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, g.Convert(context.Background(), nil, report.DefaultConvertOptions(""), "x.pdf"), context.DeadlineExceeded)
	}
	assert.Equal(t, circuitbreaker.StateClosed, g.State())
	assert.Equal(t, 3, inner.calls)
}
