// Package main is the entry point for the holdings server.
//
// The server values each user's positions from live quotes, serves totals and
// snapshot history over HTTP, streams refresh events over a websocket and
// records a daily snapshot for every user on a schedule.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/holdings/internal/config"
	"github.com/aristath/holdings/internal/di"
	portfoliohandlers "github.com/aristath/holdings/internal/modules/portfolio/handlers"
	quoteshandlers "github.com/aristath/holdings/internal/modules/quotes/handlers"
	snapshotshandlers "github.com/aristath/holdings/internal/modules/snapshots/handlers"
	"github.com/aristath/holdings/internal/scheduler"
	"github.com/aristath/holdings/internal/server"
	"github.com/aristath/holdings/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting holdings server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	sched := scheduler.New(cfg.Snapshot.Location(), log)
	if _, err := di.RegisterJobs(ctx, container, cfg, sched, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}

	checks := []server.HealthChecker{
		{Name: "holdings", Check: container.HealthCheck},
		{Name: "cache", Check: container.CacheDB.HealthCheck},
	}
	var stats []server.StatsSource
	for _, db := range container.SQLiteDatabases() {
		stats = append(stats, db)
	}

	srv := server.New(server.Config{
		Log:            log,
		Port:           cfg.Port,
		DevMode:        cfg.DevMode,
		RequestTimeout: cfg.RequestTimeout,
		Modules: []server.RouteRegistrar{
			portfoliohandlers.NewHandler(container.PortfolioService, container.Store, log),
			snapshotshandlers.NewHandler(container.SnapshotService, cfg.Snapshot.HistoryDays, log),
			quoteshandlers.NewHandler(container.Registry, container.FX, log),
		},
		System: server.NewSystemHandlers(checks, stats, container.QuoteCache, container.EventHub, log),
		Events: container.EventHub.ServeWS,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	sched.Start()
	log.Info().
		Int("port", cfg.Port).
		Str("snapshot_schedule", cfg.Snapshot.Schedule).
		Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
