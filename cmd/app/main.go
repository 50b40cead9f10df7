package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"racebot/internal/api"
	"racebot/internal/app"
	"racebot/internal/catalog"
	"racebot/internal/engine"
	"racebot/internal/infra"
	"racebot/internal/service"
	"racebot/internal/stream"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Shared state and counters
	cache := service.NewCache()
	metrics := new(infra.Metrics)

	// 5. Catalogue refresher keeps the tracked-market set current
	refresher := catalog.NewRefresher(
		cache,
		bootstrap.Catalogue,
		bootstrap.Storage,
		bootstrap.Storage,
		time.Duration(cfg.Exchange.FetchIntervalSec)*time.Second,
		metrics,
	)
	go refresher.Run(ctx)
	slog.InfoContext(ctx, "✅ Catalogue refresher started")

	// 6. Market stream under supervision
	session := stream.NewWSSession(cfg.Exchange.StreamURL, cfg.Exchange.AppKey)
	ingestor := stream.NewIngestor(cache, metrics)
	supervisor := stream.NewSupervisor(
		session,
		cache,
		ingestor,
		time.Duration(cfg.Exchange.StreamRestartMin)*time.Minute,
		metrics,
	)
	go supervisor.Run(ctx)
	slog.InfoContext(ctx, "✅ Stream supervisor started")

	// 7. Clock and strategy reload loops
	go cache.RunClock(ctx, time.Duration(cfg.Engine.ClockIntervalMS)*time.Millisecond)
	go cache.RunStrategyReload(ctx, bootstrap.Storage, time.Duration(cfg.Engine.StrategyReloadSec)*time.Second)

	// 8. Strategy engine (The Hotpath Loop)
	eng := engine.New(
		cache,
		bootstrap.Gateway,
		bootstrap.Storage,
		time.Duration(cfg.Engine.PassIntervalMS)*time.Millisecond,
		bootstrap.Live,
		metrics,
	)
	go eng.Run(ctx)
	slog.InfoContext(ctx, "✅ Strategy engine started")

	// 9. HTTP API
	server := api.NewServer(cache, bootstrap.Storage, metrics, cfg.DefaultStakeDecimal())
	go func() {
		if err := server.Run(ctx, cfg.API.Addr); err != nil {
			slog.Error("API server failed", slog.Any("error", err))
		}
	}()

	slog.InfoContext(ctx, "✨ Racebot fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")
}
