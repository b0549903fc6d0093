package render

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/raporhub/rapor-hub/internal/application/report"
)

var (
	// reportsTotal counts finished report requests by mode and terminal state.
	reportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rapor_reports_total",
		Help: "Total report requests by mode and terminal state",
	}, []string{"mode", "state"})

	// reportDuration tracks collect+render+convert latency.
	reportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rapor_report_duration_seconds",
		Help:    "Report generation duration in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"mode"})

	// reportStudents tracks how many students a single report covers.
	reportStudents = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rapor_report_students",
		Help:    "Number of students per generated report",
		Buckets: []float64{1, 5, 10, 20, 40, 80, 160, 320, 640},
	})

	// conversionErrors counts converter failures by cause.
	conversionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rapor_pdf_conversion_errors_total",
		Help: "Total PDF conversion errors by cause",
	}, []string{"cause"})
)

// Metrics records pipeline outcomes in Prometheus.
type Metrics struct{}

var _ report.Observer = Metrics{}

// ObserveReport implements report.Observer.
func (Metrics) ObserveReport(mode report.Mode, state report.State, students int, elapsed time.Duration) {
	reportsTotal.WithLabelValues(string(mode), string(state)).Inc()
	reportDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	reportStudents.Observe(float64(students))
}
