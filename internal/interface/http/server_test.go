package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raporhub/rapor-hub/config"
	"github.com/raporhub/rapor-hub/internal/application/query"
	"github.com/raporhub/rapor-hub/internal/application/report"
	"github.com/raporhub/rapor-hub/internal/infrastructure/persistence/memory"
	"github.com/raporhub/rapor-hub/internal/infrastructure/render"
	"github.com/raporhub/rapor-hub/internal/interface/http/handlers"
	"github.com/raporhub/rapor-hub/pkg/logger"
)

type fileConverter struct {
	err error
}

func (f fileConverter) Convert(_ context.Context, html []byte, _ report.ConvertOptions, outputPath string) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outputPath, append([]byte("%PDF-1.4\n"), html...), 0o600)
}

type testEnv struct {
	server *Server
	flags  *config.FeatureFlags
}

func newTestServer(t *testing.T, env string, conv report.Converter, mutate ...func(*Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewDemoStore()
	agg := query.NewAggregationService(store, 120)
	stats := query.NewStatisticsService(agg)

	renderer, err := render.NewTemplateRenderer("SMA Negeri 1")
	require.NoError(t, err)
	pipeline := report.NewPipeline(report.NewCollector(agg), renderer, conv, report.Config{
		Environment:  env,
		TempDir:      t.TempDir(),
		PathsChecked: []string{"/usr/bin/chromium"},
		Timeout:      5 * time.Second,
	}, report.WithLogger(logger.Nop()))

	cfg := DefaultConfig()
	cfg.RateLimit = 0
	for _, m := range mutate {
		m(&cfg)
	}

	flags := config.LoadFeatureFlags()
	srv := NewServer(cfg, Dependencies{
		Views:          query.NewViews(agg, stats),
		Store:          store,
		Reports:        pipeline,
		ReportDefaults: report.IncludeAll(),
		Flags:          flags,
		Logger:         logger.Nop(),
		Version:        "test",
	})
	return &testEnv{server: srv, flags: flags}
}

func (e *testEnv) do(t *testing.T, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestServer_StudentSummary(t *testing.T) {
	env := newTestServer(t, "production", fileConverter{})

	rec := env.do(t, http.MethodGet, "/api/v1/students/st-01/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))

	resp := decode(t, rec)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "st-01", data["student_id"])
	assert.Equal(t, memory.DemoEvenTerm, data["period"].(map[string]any)["id"])
	assert.Len(t, data["subjects"], 2)
}

func TestServer_ErrorMapping(t *testing.T) {
	env := newTestServer(t, "production", fileConverter{})

	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"unknown student", "/api/v1/students/ghost/summary", http.StatusNotFound, "not_found"},
		{"unknown period", "/api/v1/students/st-01/attendance?period_id=1999-ganjil", http.StatusNotFound, "not_found"},
		{"bad kind", "/api/v1/students/st-01/subjects/subj-mtk/average?kind=attitude", http.StatusBadRequest, "invalid_request"},
		{"unknown class", "/api/v1/subjects/subj-mtk/ranking?class_id=nope", http.StatusNotFound, "not_found"},
		{"trend without subject", "/api/v1/students/st-01/trend", http.StatusBadRequest, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestServer_RankingAndDashboard(t *testing.T) {
	env := newTestServer(t, "production", fileConverter{})

	rec := env.do(t, http.MethodGet, "/api/v1/subjects/subj-mtk/ranking?class_id="+memory.DemoClassA, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	entries := resp.Data.(map[string]any)["entries"].([]any)
	require.Len(t, entries, 3)
	assert.Equal(t, "st-01", entries[0].(map[string]any)["student_id"])
	assert.Equal(t, 3, resp.Meta.TotalCount)

	rec = env.do(t, http.MethodGet, "/api/v1/subjects/subj-mtk/dashboard", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, env.flags.SetEnabled(config.FeatureDashboard, false))
	rec = env.do(t, http.MethodGet, "/api/v1/subjects/subj-mtk/dashboard", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "feature_disabled", decode(t, rec).Error.Code)
}

func TestServer_ReportDelivered(t *testing.T) {
	env := newTestServer(t, "production", fileConverter{})

	rec := env.do(t, http.MethodGet, "/api/v1/reports?student_id=st-01&include_sikap=false", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report_per-siswa_")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestServer_ReportFromJSONBody(t *testing.T) {
	env := newTestServer(t, "production", fileConverter{})

	body := []byte(`{"mode":"class","class_id":"` + memory.DemoClassB + `","include_ekskul":false}`)
	rec := env.do(t, http.MethodPost, "/api/v1/reports", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report_per-kelas_")
}

func TestServer_ReportDegradesToHTMLInDevelopment(t *testing.T) {
	env := newTestServer(t, "development", fileConverter{err: errors.New("chrome not found")})

	rec := env.do(t, http.MethodGet, "/api/v1/reports?mode=single&student_id=st-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	assert.Equal(t, string(report.StateDegraded), rec.Header().Get("X-Report-State"))
	assert.Contains(t, rec.Body.String(), "Siti Rahmawati")
}

func TestServer_ReportFailureDiagnostics(t *testing.T) {
	env := newTestServer(t, "production", fileConverter{err: errors.New("chrome not found")})

	rec := env.do(t, http.MethodGet, "/api/v1/reports?mode=whole-school", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var failure report.Failure
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failure))
	assert.Equal(t, "PDF generation failed", failure.Error)
	assert.Contains(t, failure.Message, "try again")
	assert.Equal(t, []string{"/usr/bin/chromium"}, failure.DebugInfo.ChromePathsChecked)
	assert.Equal(t, "production", failure.DebugInfo.Environment)
	assert.Equal(t, string(report.ModeWholeSchool), failure.DebugInfo.Mode)
	assert.Equal(t, 5, failure.DebugInfo.DataCount)
}

func TestServer_ReportValidation(t *testing.T) {
	env := newTestServer(t, "production", fileConverter{})

	rec := env.do(t, http.MethodGet, "/api/v1/reports", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/reports?mode=class", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/reports?student_id=ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, env.flags.SetEnabled(config.FeatureWholeSchoolReports, false))
	rec = env.do(t, http.MethodGet, "/api/v1/reports?mode=whole-school", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_RateLimit(t *testing.T) {
	env := newTestServer(t, "production", fileConverter{}, func(c *Config) {
		c.RateLimit = 0.001
		c.RateBurst = 2
	})
	t.Cleanup(env.server.limiter.Stop)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/periods", nil).Code)
	}
	rec := env.do(t, http.MethodGet, "/api/v1/periods", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// health endpoints are not limited
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/live", nil).Code)
}

func TestServer_Health(t *testing.T) {
	gin.SetMode(gin.TestMode)
	checker := handlers.NewCompositeHealthChecker("test")
	checker.AddCheck("database", func(context.Context) error { return errors.New("connection refused") })

	srv := NewServer(DefaultConfig(), Dependencies{Logger: logger.Nop(), HealthChecker: checker})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	srv.limiter.Stop()
}

func TestServer_CORS(t *testing.T) {
	env := newTestServer(t, "production", fileConverter{}, func(c *Config) {
		c.AllowedOrigins = []string{"http://localhost:5173"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/periods", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestIPLimiter_EvictsIdleVisitors(t *testing.T) {
	l := newIPLimiter(1, 1, time.Minute)
	defer l.Stop()

	now := time.Date(2025, time.May, 1, 8, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, l.evictIdle())
	assert.True(t, l.Allow("10.0.0.1"))
}

func TestQueryBool(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?a=ya&b=0&c=maybe", nil)

	assert.True(t, queryBool(c, "a", false))
	assert.False(t, queryBool(c, "b", true))
	assert.True(t, queryBool(c, "c", true))
	assert.False(t, queryBool(c, "missing", false))
}
