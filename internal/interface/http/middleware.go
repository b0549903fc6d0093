package http

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/raporhub/rapor-hub/config"
	"github.com/raporhub/rapor-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

const (
	headerRequestID = "X-Request-ID"
	ctxKeyRequestID = "request_id"
)

// requestIDMiddleware assigns a request ID and attaches a request-scoped
// logger to the request context.
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(headerRequestID, requestID)
		c.Set(ctxKeyRequestID, requestID)

		ctx := logger.WithContext(c.Request.Context(), s.logger.WithRequestID(requestID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(ctxKeyRequestID)
}

// ══════════════════════════════════════════════════════════════════════════════
// LOGGING & RECOVERY
// ══════════════════════════════════════════════════════════════════════════════

// loggingMiddleware logs every request; level follows the response status.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", routePath(c)),
			logger.Int("status", status),
			logger.Latency(time.Since(start)),
			logger.String("ip", c.ClientIP()),
			logger.String("request_id", requestID(c)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.String("errors", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			s.logger.Error("http request", fields...)
		case status >= http.StatusBadRequest:
			s.logger.Warn("http request", fields...)
		default:
			s.logger.Info("http request", fields...)
		}
	}
}

// recoveryMiddleware recovers from panics and returns 500.
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					logger.Any("error", err),
					logger.String("stack", string(debug.Stack())),
					logger.String("path", c.Request.URL.Path),
					logger.String("request_id", requestID(c)),
				)
				abortError(c, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred", "")
			}
		}()
		c.Next()
	}
}

func routePath(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

// ══════════════════════════════════════════════════════════════════════════════
// CORS
// ══════════════════════════════════════════════════════════════════════════════

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", headerRequestID},
		ExposeHeaders: []string{"Content-Disposition", headerRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// ══════════════════════════════════════════════════════════════════════════════
// FEATURE FLAGS
// ══════════════════════════════════════════════════════════════════════════════

// requireFeature rejects the request with 403 when the flag is off for the
// requested class.
func (s *Server) requireFeature(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.featureEnabled(name, c.Query("class_id")) {
			abortError(c, http.StatusForbidden, "feature_disabled", "This feature is currently disabled", name)
			return
		}
		c.Next()
	}
}

func (s *Server) featureEnabled(name, classID string) bool {
	if s.deps.Flags == nil {
		return true
	}
	return s.deps.Flags.IsEnabled(name, &config.FeatureContext{ClassID: classID})
}

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER
// Token bucket per client IP. Report generation is expensive, so the default
// budget is small; idle visitors are evicted periodically.
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			abortError(c, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests, please try again later", "")
			return
		}
		c.Next()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type ipLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

func newIPLimiter(perSecond float64, burst int, idleTTL time.Duration) *ipLimiter {
	if burst < 1 {
		burst = 1
	}
	l := &ipLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		idleTTL:  idleTTL,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether the client may proceed now.
func (l *ipLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Stop terminates the cleanup goroutine.
func (l *ipLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *ipLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evictIdle()
		}
	}
}

func (l *ipLimiter) evictIdle() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idleTTL)
	evicted := 0
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
			evicted++
		}
	}
	return evicted
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rapor_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rapor_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 15, 30, 60},
	}, []string{"method", "route"})
)

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
