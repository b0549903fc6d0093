package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raporhub/rapor-hub/internal/application/query"
	"github.com/raporhub/rapor-hub/internal/infrastructure/scheduler"
	"github.com/raporhub/rapor-hub/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/raporhub/rapor-hub/internal/interface/http"
	"github.com/raporhub/rapor-hub/pkg/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
}

// runServe запускает HTTP-сервер и ждёт сигнала завершения.
func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─────────────────────────────────────────────────────────────────────────
	// 1. Конфигурация и логгер
	// ─────────────────────────────────────────────────────────────────────────
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.log.Info("starting rapor hub",
		logger.String("version", version),
		logger.String("school", a.cfg.App.SchoolName),
		logger.String("store", a.cfg.Database.Driver),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Хранилище записей
	// ─────────────────────────────────────────────────────────────────────────
	if err := a.openStore(ctx); err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Сервисы чтения и конвейер отчётов
	// ─────────────────────────────────────────────────────────────────────────
	agg := query.NewAggregationService(a.store, a.cfg.Report.AssumedSchoolDays)
	stats := query.NewStatisticsService(agg)

	stack, err := a.buildReportStack()
	if err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. HTTP-сервер
	// ─────────────────────────────────────────────────────────────────────────
	server := httpserver.NewServer(
		httpserver.ConfigFrom(a.cfg.HTTP, a.cfg.Observability),
		httpserver.Dependencies{
			Views:          query.NewViews(agg, stats),
			Store:          a.store,
			Reports:        stack.pipeline,
			ReportDefaults: a.reportDefaults(),
			Flags:          a.cfg.Features,
			Logger:         a.log,
			HealthChecker:  a.healthChecker(stack),
			Version:        version,
		},
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Фоновые задачи
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.DefaultConfig(), a.log)
	if rc := a.cfg.Renderer; rc.SweepInterval > 0 {
		sweep := jobs.NewSweepArtifactsJob(rc.TempDir, rc.ArtifactMaxAge, a.log)
		if err := sched.Register(sweep, rc.SweepInterval); err != nil {
			return err
		}
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. Ожидание сигнала и graceful shutdown
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server failed", logger.Err(err))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.Error("graceful shutdown failed", logger.Err(err))
		return err
	}
	a.log.Info("rapor hub stopped")
	return nil
}
