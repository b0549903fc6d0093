package render

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/raporhub/rapor-hub/internal/application/report"
	"github.com/raporhub/rapor-hub/internal/domain/shared"
	"github.com/raporhub/rapor-hub/pkg/circuitbreaker"
	"github.com/raporhub/rapor-hub/pkg/logger"
)

// breakerState exposes the converter breaker: 0 closed, 1 open, 2 half-open.
var breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "rapor_converter_breaker_state",
	Help: "Converter circuit breaker state (0 closed, 1 open, 2 half-open)",
}, []string{"name"})

// BreakerConfig configures GuardedConverter.
type BreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// DefaultBreakerConfig opens after three consecutive browser failures.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 3, Cooldown: 30 * time.Second}
}

// GuardedConverter fails fast while the wrapped converter keeps failing.
// Timeouts do not count: a slow page says nothing about the browser.
type GuardedConverter struct {
	next    report.Converter
	breaker *circuitbreaker.CircuitBreaker
}

var _ report.Converter = (*GuardedConverter)(nil)

// NewGuardedConverter wraps next with a circuit breaker.
func NewGuardedConverter(next report.Converter, cfg BreakerConfig, log *logger.Logger, opts ...circuitbreaker.Option) *GuardedConverter {
	if log == nil {
		log = logger.Nop()
	}
	base := []circuitbreaker.Option{
		circuitbreaker.WithFailureThreshold(cfg.FailureThreshold),
		circuitbreaker.WithCooldown(cfg.Cooldown),
		circuitbreaker.WithIsFailure(func(err error) bool {
			return !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled)
		}),
		circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
			breakerState.WithLabelValues(name).Set(float64(to))
			log.Warn("converter breaker state changed",
				logger.Component(name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
	}
	breaker := circuitbreaker.New("chrome", append(base, opts...)...)
	breakerState.WithLabelValues(breaker.Name()).Set(float64(circuitbreaker.StateClosed))

	return &GuardedConverter{next: next, breaker: breaker}
}

// Convert implements report.Converter.
func (g *GuardedConverter) Convert(ctx context.Context, html []byte, opts report.ConvertOptions, outputPath string) error {
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.next.Convert(ctx, html, opts, outputPath)
	})
	if circuitbreaker.IsRejected(err) {
		conversionErrors.WithLabelValues("breaker_open").Inc()
		return shared.WrapError("render", "Convert", shared.ErrServiceUnavailable,
			"pdf converter is temporarily disabled after repeated failures", err)
	}
	return err
}

// State returns the breaker state, used by the readiness probe.
func (g *GuardedConverter) State() circuitbreaker.State {
	return g.breaker.State()
}
