// Package http exposes the Rapor Hub analytics and report API.
// Routes are served by gin; the middleware chain adds request IDs,
// structured logging, panic recovery, CORS, per-client rate limiting and
// Prometheus metrics.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raporhub/rapor-hub/config"
	"github.com/raporhub/rapor-hub/internal/application/query"
	"github.com/raporhub/rapor-hub/internal/application/report"
	"github.com/raporhub/rapor-hub/internal/domain/academic"
	"github.com/raporhub/rapor-hub/internal/interface/http/handlers"
	"github.com/raporhub/rapor-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration // must exceed the PDF conversion timeout
	IdleTimeout  time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// AllowedOrigins - allowed origins for CORS; "*" allows any.
	AllowedOrigins []string

	// EnableMetrics exposes Prometheus metrics at MetricsPath.
	EnableMetrics bool
	MetricsPath   string

	// RateLimit - sustained requests per second per client IP on /api (0 = disabled).
	RateLimit float64
	RateBurst int
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   90 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
		AllowedOrigins: []string{"*"},
		EnableMetrics:  true,
		MetricsPath:    "/metrics",
		RateLimit:      5,
		RateBurst:      10,
	}
}

// ConfigFrom maps application configuration onto server configuration.
func ConfigFrom(httpCfg config.HTTPConfig, obs config.ObservabilityConfig) Config {
	cfg := DefaultConfig()
	cfg.Host = httpCfg.Host
	cfg.Port = httpCfg.Port
	cfg.ReadTimeout = httpCfg.ReadTimeout
	cfg.WriteTimeout = httpCfg.WriteTimeout
	cfg.IdleTimeout = httpCfg.IdleTimeout
	cfg.AllowedOrigins = httpCfg.CORSOrigins
	cfg.RateLimit = httpCfg.RateLimit
	cfg.RateBurst = httpCfg.RateBurst
	cfg.EnableMetrics = obs.MetricsEnabled
	cfg.MetricsPath = obs.MetricsPath
	return cfg
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// ReportGenerator builds report cards; implemented by report.Pipeline.
type ReportGenerator interface {
	Generate(ctx context.Context, req report.Request, period academic.Period) (*report.Outcome, error)
}

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Read side.
	Views *query.Views
	Store academic.RecordStore

	// Report generation.
	Reports        ReportGenerator
	ReportDefaults report.Include

	// Flags gate optional endpoints; nil enables everything.
	Flags *config.FeatureFlags

	Logger        *logger.Logger
	HealthChecker handlers.HealthChecker
	Version       string
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	engine     *gin.Engine
	httpServer *http.Server
	logger     *logger.Logger

	limiter *ipLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(cfg Config, deps Dependencies) *Server {
	s := &Server{
		config: cfg,
		deps:   deps,
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = logger.Default()
	}
	s.logger = s.logger.With(logger.Component("http"))

	if cfg.RateLimit > 0 {
		s.limiter = newIPLimiter(cfg.RateLimit, cfg.RateBurst, 10*time.Minute)
	}

	s.engine = gin.New()
	s.engine.Use(
		s.requestIDMiddleware(),
		s.recoveryMiddleware(),
		s.loggingMiddleware(),
		metricsMiddleware(),
		corsMiddleware(cfg.AllowedOrigins),
	)
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           cfg.Address(),
		Handler:        s.engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}
	return s
}

// Handler returns the root handler; used by tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status
	// ─────────────────────────────────────────────────────────────────────────
	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/ready", s.handleReady)
	s.engine.GET("/live", s.handleLive)

	if s.config.EnableMetrics {
		path := s.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// API v1
	// ─────────────────────────────────────────────────────────────────────────
	api := s.engine.Group("/api/v1")
	if s.limiter != nil {
		api.Use(s.rateLimitMiddleware())
	}

	api.GET("/periods", s.handleListPeriods)
	api.GET("/features", s.handleListFeatures)

	students := api.Group("/students/:id")
	students.GET("/summary", s.handleStudentSummary)
	students.GET("/attendance", s.handleStudentAttendance)
	students.GET("/subjects/:subject_id/average", s.handleSubjectAverage)
	students.GET("/trend", s.requireFeature(config.FeatureTrend), s.handleStudentTrend)

	subjects := api.Group("/subjects/:subject_id")
	subjects.GET("/ranking", s.handleRanking)
	subjects.GET("/distribution", s.handleDistribution)
	subjects.GET("/dashboard", s.requireFeature(config.FeatureDashboard), s.handleDashboard)
	api.GET("/distribution", s.handleDistribution)

	api.GET("/reports", s.handleGenerateReport)
	api.POST("/reports", s.handleGenerateReport)
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	if s.limiter != nil {
		s.limiter.Stop()
	}

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.config.Address()
}
