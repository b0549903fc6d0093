package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raporhub/rapor-hub/config"
	"github.com/raporhub/rapor-hub/internal/application/query"
	"github.com/raporhub/rapor-hub/internal/application/report"
	"github.com/raporhub/rapor-hub/internal/domain/academic"
	"github.com/raporhub/rapor-hub/internal/infrastructure/persistence/memory"
	"github.com/raporhub/rapor-hub/internal/infrastructure/persistence/postgres"
	"github.com/raporhub/rapor-hub/internal/infrastructure/persistence/redis"
	"github.com/raporhub/rapor-hub/internal/infrastructure/render"
	"github.com/raporhub/rapor-hub/internal/interface/http/handlers"
	"github.com/raporhub/rapor-hub/pkg/circuitbreaker"
	"github.com/raporhub/rapor-hub/pkg/logger"
	"github.com/raporhub/rapor-hub/pkg/retry"
	"github.com/raporhub/rapor-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOOTSTRAP
// Общая сборка зависимостей для всех команд.
// ══════════════════════════════════════════════════════════════════════════════

// app содержит инициализированные зависимости; Close освобождает их
// в обратном порядке.
type app struct {
	cfg *config.Config
	log *logger.Logger

	store academic.RecordStore
	conn  *postgres.Connection // nil для memory
	redis *redis.Client        // nil, если Redis отключён или недоступен

	closers []func()
}

// loadApp читает конфигурацию и настраивает логгер и часовой пояс.
// Хранилище подключается отдельно, чтобы renderer check работал без БД.
func loadApp() (*app, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := timeutil.SetLocation(cfg.App.Timezone); err != nil {
		return nil, err
	}

	log := logger.New(logger.Options{
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		Format:    logger.Format(cfg.Observability.LogFormat),
		AddCaller: true,
	}).With(logger.String("app", cfg.App.Name), logger.String("env", string(cfg.App.Environment)))

	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, log.Sync)
	return a, nil
}

// Close освобождает ресурсы.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Storage
// ─────────────────────────────────────────────────────────────────────────────

// openStore подключает хранилище согласно STORE_DRIVER.
func (a *app) openStore(ctx context.Context) error {
	if a.cfg.Database.Driver == config.DriverMemory {
		a.log.Warn("using in-memory demo dataset; records are not persisted")
		a.store = memory.NewDemoStore()
		return nil
	}

	conn, err := a.connectPostgres(ctx)
	if err != nil {
		return err
	}
	a.store = postgres.NewRecordStore(conn)
	return nil
}

// connectPostgres подключается к PostgreSQL с повторами: при старте
// в контейнере база часто поднимается позже сервиса.
func (a *app) connectPostgres(ctx context.Context) (*postgres.Connection, error) {
	if a.conn != nil {
		return a.conn, nil
	}
	if a.cfg.Database.Driver != config.DriverPostgres {
		return nil, errors.New("this command requires STORE_DRIVER=postgres")
	}

	pgCfg := postgresConfig(a.cfg.Database)
	onRetry := func(attempt int, err error, delay time.Duration) {
		a.log.Warn("database not ready, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err),
		)
	}
	opts := append(retry.StartupOptions(onRetry), retry.WithMaxAttempts(a.cfg.Database.ConnectAttempts))

	a.log.Info("connecting to database...")
	conn, err := retry.DoWithData(ctx, func(ctx context.Context) (*postgres.Connection, error) {
		return postgres.NewConnection(ctx, pgCfg)
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.log.Info("database connection established")

	a.conn = conn
	a.closers = append(a.closers, conn.Close)
	return conn, nil
}

func postgresConfig(db config.DatabaseConfig) postgres.Config {
	cfg := postgres.DefaultConfig()
	cfg.URL = db.URL
	if db.Host != "" {
		cfg.Host = db.Host
	}
	if db.Port > 0 {
		cfg.Port = db.Port
	}
	if db.Name != "" {
		cfg.Database = db.Name
	}
	if db.User != "" {
		cfg.User = db.User
	}
	cfg.Password = db.Password
	if db.SSLMode != "" {
		cfg.SSLMode = db.SSLMode
	}
	if db.MaxConns > 0 {
		cfg.MaxConns = int32(db.MaxConns)
	}
	if db.MinConns > 0 {
		cfg.MinConns = int32(db.MinConns)
	}
	if db.ConnMaxLifetime > 0 {
		cfg.MaxConnLifetime = db.ConnMaxLifetime
	}
	if db.ConnMaxIdleTime > 0 {
		cfg.MaxConnIdleTime = db.ConnMaxIdleTime
	}
	return cfg
}

// ─────────────────────────────────────────────────────────────────────────────
// Report pipeline
// ─────────────────────────────────────────────────────────────────────────────

// reportStack - конвейер отчётов и то, что нужно для проверки его здоровья.
type reportStack struct {
	pipeline  *report.Pipeline
	converter *render.GuardedConverter
	discovery render.Discovery
}

// renderGate выбирает ограничитель конвертаций: общий через Redis, если
// он включён, иначе локальный семафор. Недоступный Redis не роняет сервис.
func (a *app) renderGate() report.RenderGate {
	rc := a.cfg.Renderer
	local := render.NewLocalGate(rc.MaxConcurrent, rc.SlotWait)
	if a.cfg.Redis.Disabled {
		return local
	}

	client, err := redis.NewClient(redisConfig(a.cfg.Redis))
	if err != nil {
		a.log.Warn("redis unavailable, using in-process render gate", logger.Err(err))
		return local
	}
	a.redis = client
	a.closers = append(a.closers, func() { _ = client.Close() })

	return redis.NewRenderGate(client, redis.GateConfig{
		Name:        a.cfg.App.Name,
		Limit:       rc.MaxConcurrent,
		LeaseTTL:    rc.SlotLease,
		WaitTimeout: rc.SlotWait,
	})
}

func redisConfig(rc config.RedisConfig) redis.Config {
	cfg := redis.DefaultConfig()
	if rc.Host != "" {
		cfg.Host = rc.Host
	}
	if rc.Port > 0 {
		cfg.Port = rc.Port
	}
	cfg.Password = rc.Password
	cfg.DB = rc.DB
	if rc.PoolSize > 0 {
		cfg.PoolSize = rc.PoolSize
	}
	if rc.DialTimeout > 0 {
		cfg.DialTimeout = rc.DialTimeout
	}
	if rc.ReadTimeout > 0 {
		cfg.ReadTimeout = rc.ReadTimeout
	}
	if rc.WriteTimeout > 0 {
		cfg.WriteTimeout = rc.WriteTimeout
	}
	return cfg
}

// discoverBrowser ищет браузер и предупреждает, если путь не задан явно.
func (a *app) discoverBrowser() render.Discovery {
	rc := a.cfg.Renderer
	d := render.DiscoverLocal(rc.ChromePath, rc.ExtraCandidates)
	switch {
	case !d.Resolved():
		a.log.Warn("no headless browser found; PDF conversion will fail",
			logger.Strings("chrome_paths_checked", d.Checked))
	case rc.ChromePath == "":
		a.log.Warn("RENDERER_CHROME_PATH is not set, using discovered browser",
			logger.String("path", d.Path))
	default:
		a.log.Info("headless browser configured", logger.String("path", d.Path))
	}
	return d
}

// buildReportStack собирает конвейер отчётов поверх уже открытого хранилища.
func (a *app) buildReportStack() (*reportStack, error) {
	renderer, err := render.NewTemplateRenderer(a.cfg.App.SchoolName)
	if err != nil {
		return nil, fmt.Errorf("failed to load report template: %w", err)
	}

	discovery := a.discoverBrowser()
	converter := render.NewGuardedConverter(
		render.NewChromeConverter(a.log, a.cfg.Renderer.NoSandbox),
		render.BreakerConfig{
			FailureThreshold: a.cfg.Renderer.BreakerThreshold,
			Cooldown:         a.cfg.Renderer.BreakerCooldown,
		},
		a.log,
	)

	agg := query.NewAggregationService(a.store, a.cfg.Report.AssumedSchoolDays)
	pipeline := report.NewPipeline(
		report.NewCollector(agg),
		renderer,
		converter,
		report.Config{
			Environment:  string(a.cfg.App.Environment),
			TempDir:      a.cfg.Renderer.TempDir,
			BinaryPath:   discovery.Path,
			PathsChecked: discovery.Checked,
			Timeout:      a.cfg.Renderer.Timeout,
		},
		report.WithGate(a.renderGate()),
		report.WithObserver(render.Metrics{}),
		report.WithLogger(a.log),
	)
	return &reportStack{pipeline: pipeline, converter: converter, discovery: discovery}, nil
}

// reportDefaults возвращает разделы табеля по умолчанию.
func (a *app) reportDefaults() report.Include {
	rc := a.cfg.Report
	return report.Include{
		Attitude:        rc.IncludeAttitude,
		Attendance:      rc.IncludeAttendance,
		Achievements:    rc.IncludeAchievements,
		Extracurricular: rc.IncludeExtracurricular,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Health
// ─────────────────────────────────────────────────────────────────────────────

// healthChecker регистрирует проверки: БД и Redis обязательны, браузер -
// нет (без него аналитика продолжает работать).
func (a *app) healthChecker(stack *reportStack) *handlers.CompositeHealthChecker {
	checker := handlers.NewCompositeHealthChecker(version)
	if a.conn != nil {
		checker.AddCheck("database", handlers.NewPingCheck(a.conn))
	}
	if a.redis != nil {
		checker.AddCheck("redis", handlers.NewPingCheck(a.redis))
	}
	if stack != nil {
		checker.AddOptionalCheck("renderer", func(context.Context) error {
			if !stack.discovery.Resolved() {
				return errors.New("no headless browser found")
			}
			if stack.converter.State() == circuitbreaker.StateOpen {
				return errors.New("pdf converter circuit is open")
			}
			return nil
		})
	}
	return checker
}
