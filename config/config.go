package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// ConversionTimeout bounds one HTML to PDF conversion. It is part of the
// report contract and is not read from the environment.
const ConversionTimeout = 60 * time.Second

// Config holds all application configuration.
type Config struct {
	App           AppConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	HTTP          HTTPConfig
	Renderer      RendererConfig
	Report        ReportConfig
	Observability ObservabilityConfig

	Features *FeatureFlags `validate:"-"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string      `validate:"required"`
	Environment Environment `validate:"oneof=development staging production"`
	Version     string

	// Timezone of the school, used for report timestamps (default: Asia/Jakarta).
	Timezone string `validate:"required"`

	// SchoolName is printed on every report card.
	SchoolName string `validate:"required"`

	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// DatabaseConfig holds record store settings.
type DatabaseConfig struct {
	// Driver is "postgres" or "memory" (demo dataset, development only).
	Driver string `validate:"oneof=postgres memory"`

	// URL is a full connection string and wins over the parts below.
	// Example: postgres://rapor:secret@db:5432/rapor?sslmode=disable
	URL string

	Host     string
	Port     int `validate:"min=0,max=65535"`
	Name     string
	User     string
	Password string
	SSLMode  string

	MaxConns        int `validate:"min=0"`
	MinConns        int `validate:"min=0"`
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// ConnectAttempts bounds startup retries while the database comes up.
	ConnectAttempts int `validate:"min=1"`
}

// RedisConfig holds Redis connection settings.
// Redis only coordinates render slots across instances.
type RedisConfig struct {
	Host     string
	Port     int `validate:"min=0,max=65535"`
	Password string
	DB       int `validate:"min=0"`

	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Disabled falls back to an in-process render gate.
	Disabled bool
}

// HTTPConfig holds API server settings.
type HTTPConfig struct {
	Host         string
	Port         int           `validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `validate:"gt=0"`
	WriteTimeout time.Duration `validate:"gt=0"`
	IdleTimeout  time.Duration

	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit float64 `validate:"min=0"`
	RateBurst int     `validate:"min=0"`

	CORSOrigins []string
}

// Addr returns host:port for the listener.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RendererConfig holds headless browser settings.
type RendererConfig struct {
	// ChromePath is checked first; empty means discovery only.
	ChromePath string

	// ExtraCandidates are checked after ChromePath and before the built-in list.
	ExtraCandidates []string

	// Timeout is always ConversionTimeout.
	Timeout time.Duration `validate:"gt=0"`

	// TempDir holds artifacts until they are streamed; empty means os.TempDir().
	TempDir string

	MaxConcurrent int           `validate:"min=1"`
	SlotWait      time.Duration `validate:"gt=0"`
	SlotLease     time.Duration `validate:"gt=0"`

	// NoSandbox is required when Chrome runs as root inside a container.
	NoSandbox bool

	BreakerThreshold int           `validate:"min=1"`
	BreakerCooldown  time.Duration `validate:"gt=0"`

	// Unstreamed PDFs older than ArtifactMaxAge are removed every
	// SweepInterval; 0 disables the sweeper.
	SweepInterval  time.Duration `validate:"min=0"`
	ArtifactMaxAge time.Duration `validate:"gt=0"`
}

// ReportConfig holds report card defaults.
type ReportConfig struct {
	// AssumedSchoolDays is the denominator of the attendance rate.
	AssumedSchoolDays int `validate:"min=0"`

	IncludeAttitude        bool
	IncludeAttendance      bool
	IncludeAchievements    bool
	IncludeExtracurricular bool
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json console"`

	MetricsEnabled bool
	MetricsPath    string
}

// LoadDotEnv loads .env files into the process environment. Missing
// files are skipped; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App:           loadAppConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		HTTP:          loadHTTPConfig(),
		Renderer:      loadRendererConfig(),
		Report:        loadReportConfig(),
		Observability: loadObservabilityConfig(),
		Features:      LoadFeatureFlags(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func loadAppConfig() AppConfig {
	return AppConfig{
		Name:            getEnv("APP_NAME", "rapor-hub"),
		Environment:     Environment(getEnv("APP_ENV", string(EnvDevelopment))),
		Version:         getEnv("APP_VERSION", "0.1.0"),
		Timezone:        getEnv("APP_TIMEZONE", "Asia/Jakarta"),
		SchoolName:      getEnv("SCHOOL_NAME", "SMA Negeri 1"),
		ShutdownTimeout: getEnvDuration("APP_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	cfg := DatabaseConfig{
		URL:             getEnv("DATABASE_URL", ""),
		Host:            getEnv("DB_HOST", ""),
		Port:            getEnvInt("DB_PORT", 5432),
		Name:            getEnv("DB_NAME", "rapor"),
		User:            getEnv("DB_USER", "rapor"),
		Password:        getEnv("DB_PASSWORD", ""),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxConns:        getEnvInt("DB_MAX_CONNS", 10),
		MinConns:        getEnvInt("DB_MIN_CONNS", 1),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		ConnectAttempts: getEnvInt("DB_CONNECT_ATTEMPTS", 6),
	}

	// Without any database settings the demo store is used.
	defaultDriver := DriverPostgres
	if cfg.URL == "" && cfg.Host == "" {
		defaultDriver = DriverMemory
	}
	cfg.Driver = getEnv("STORE_DRIVER", defaultDriver)
	return cfg
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Host:         getEnv("REDIS_HOST", "localhost"),
		Port:         getEnvInt("REDIS_PORT", 6379),
		Password:     getEnv("REDIS_PASSWORD", ""),
		DB:           getEnvInt("REDIS_DB", 0),
		PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
		DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		Disabled:     getEnvBool("REDIS_DISABLED", true),
	}
}

func loadHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Host:         getEnv("HTTP_HOST", "0.0.0.0"),
		Port:         getEnvInt("HTTP_PORT", 8080),
		ReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		// Report conversion can take up to the renderer timeout.
		WriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 90*time.Second),
		IdleTimeout:  getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		RateLimit:    getEnvFloat("HTTP_RATE_LIMIT", 5),
		RateBurst:    getEnvInt("HTTP_RATE_BURST", 10),
		CORSOrigins:  getEnvSlice("HTTP_CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
	}
}

func loadRendererConfig() RendererConfig {
	return RendererConfig{
		ChromePath:       getEnv("RENDERER_CHROME_PATH", ""),
		ExtraCandidates:  getEnvSlice("RENDERER_CHROME_CANDIDATES", nil),
		Timeout:          ConversionTimeout,
		TempDir:          getEnv("RENDERER_TEMP_DIR", ""),
		MaxConcurrent:    getEnvInt("RENDERER_MAX_CONCURRENT", 2),
		SlotWait:         getEnvDuration("RENDERER_SLOT_WAIT", 15*time.Second),
		SlotLease:        getEnvDuration("RENDERER_SLOT_LEASE", 90*time.Second),
		NoSandbox:        getEnvBool("RENDERER_NO_SANDBOX", false),
		BreakerThreshold: getEnvInt("RENDERER_BREAKER_THRESHOLD", 3),
		BreakerCooldown:  getEnvDuration("RENDERER_BREAKER_COOLDOWN", 30*time.Second),
		SweepInterval:    getEnvDuration("RENDERER_SWEEP_INTERVAL", 10*time.Minute),
		ArtifactMaxAge:   getEnvDuration("RENDERER_ARTIFACT_MAX_AGE", time.Hour),
	}
}

func loadReportConfig() ReportConfig {
	return ReportConfig{
		AssumedSchoolDays:      getEnvInt("REPORT_SCHOOL_DAYS", 120),
		IncludeAttitude:        getEnvBool("REPORT_INCLUDE_ATTITUDE", true),
		IncludeAttendance:      getEnvBool("REPORT_INCLUDE_ATTENDANCE", true),
		IncludeAchievements:    getEnvBool("REPORT_INCLUDE_ACHIEVEMENTS", true),
		IncludeExtracurricular: getEnvBool("REPORT_INCLUDE_EXTRACURRICULAR", true),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		MetricsPath:    getEnv("METRICS_PATH", "/metrics"),
	}
}

var validate = validator.New()

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Sprintf("%s fails %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}

	if c.App.Environment == EnvProduction && c.Database.Driver != DriverPostgres {
		errs = append(errs, "STORE_DRIVER must be postgres in production")
	}
	if c.Database.Driver == DriverPostgres && c.Database.URL == "" && c.Database.Host == "" {
		errs = append(errs, "DATABASE_URL or DB_HOST is required for the postgres driver")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("APP_TIMEZONE %q is not a known zone", c.App.Timezone))
	}
	// The render slot must outlive the conversion holding it.
	if c.Renderer.SlotLease <= c.Renderer.Timeout {
		errs = append(errs, fmt.Sprintf("RENDERER_SLOT_LEASE %s must exceed the conversion timeout %s",
			c.Renderer.SlotLease, c.Renderer.Timeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

// --- Helper functions for environment variable parsing ---

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvSlice(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}

	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
