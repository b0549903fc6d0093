package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.Equal(t, "Asia/Jakarta", cfg.App.Timezone)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.True(t, cfg.Redis.Disabled)
	assert.Equal(t, 120, cfg.Report.AssumedSchoolDays)
	assert.Equal(t, 60*time.Second, cfg.Renderer.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Renderer.SweepInterval)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://rapor@db/rapor")
	t.Setenv("RENDERER_CHROME_PATH", "/opt/chrome/chrome")
	t.Setenv("RENDERER_CHROME_CANDIDATES", " /a , /b ,")
	t.Setenv("REPORT_SCHOOL_DAYS", "110")
	t.Setenv("REPORT_INCLUDE_ATTITUDE", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "/opt/chrome/chrome", cfg.Renderer.ChromePath)
	assert.Equal(t, []string{"/a", "/b"}, cfg.Renderer.ExtraCandidates)
	assert.Equal(t, 110, cfg.Report.AssumedSchoolDays)
	assert.False(t, cfg.Report.IncludeAttitude)
}

func TestValidate_Errors(t *testing.T) {
	t.Setenv("APP_ENV", "qa")
	t.Setenv("LOG_LEVEL", "trace")
	t.Setenv("REPORT_SCHOOL_DAYS", "-1")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "App.Environment")
	assert.Contains(t, err.Error(), "Observability.LogLevel")
	assert.Contains(t, err.Error(), "Report.AssumedSchoolDays")
}

func TestValidate_ProductionNeedsPostgres(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER must be postgres in production")
}

func TestLoad_ConversionTimeoutIsFixed(t *testing.T) {
	t.Setenv("RENDERER_TIMEOUT", "5m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ConversionTimeout, cfg.Renderer.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Renderer.Timeout)
}

func TestValidate_SlotLeaseMustExceedTimeout(t *testing.T) {
	t.Setenv("RENDERER_SLOT_LEASE", "30s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RENDERER_SLOT_LEASE 30s must exceed the conversion timeout 1m0s")

	t.Setenv("RENDERER_SLOT_LEASE", "61s")
	_, err = Load()
	assert.NoError(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SCHOOL_NAME=SMA Negeri 8 Jakarta\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SCHOOL_NAME") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "SMA Negeri 8 Jakarta", cfg.App.SchoolName)
}

func TestFeatureFlags(t *testing.T) {
	t.Setenv("FEATURE_REPORTS_WHOLE_SCHOOL", "false")
	t.Setenv("FEATURE_REPORTS_CLASS_CLASSES", "class-a")

	ff := LoadFeatureFlags()

	assert.False(t, ff.IsEnabled(FeatureWholeSchoolReports, nil))
	assert.True(t, ff.IsEnabled(FeatureClassReports, &FeatureContext{ClassID: "class-a"}))
	assert.False(t, ff.IsEnabled(FeatureClassReports, &FeatureContext{ClassID: "class-b"}))
	assert.True(t, ff.IsEnabled(FeatureDashboard, nil))
	assert.False(t, ff.IsEnabled("unknown", nil))

	require.NoError(t, ff.SetEnabled(FeatureWholeSchoolReports, true))
	assert.True(t, ff.IsEnabled(FeatureWholeSchoolReports, nil))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, ff.SetWindow(FeatureTrend, nil, &past))
	assert.False(t, ff.IsEnabled(FeatureTrend, nil))

	assert.Error(t, ff.SetEnabled("unknown", true))
	assert.Len(t, ff.GetAllFeatures(), 4)
}
