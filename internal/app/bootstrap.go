package app

import (
	"log/slog"
	"os"

	"racebot/internal/infra"
	"racebot/internal/infra/exchange"
	"racebot/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config    *infra.Config
	Storage   *storage.Storage
	Client    *exchange.Client
	Catalogue *exchange.Catalogue
	Gateway   *exchange.Gateway
	Live      bool
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB, exchange)
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping Racebot...")

	// 1. Load Config
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized", slog.String("path", cfg.Storage.Path))

	// 4. Exchange REST stack
	b.Client = exchange.NewClient(cfg)
	b.Catalogue = exchange.NewCatalogue(b.Client, cfg)
	b.Gateway = exchange.NewGateway(b.Client)

	// 5. Live-order eligibility is decided once, by hostname
	hostname, err := os.Hostname()
	if err != nil {
		slog.Warn("hostname lookup failed, real orders disabled", slog.Any("error", err))
	}
	b.Live = cfg.IsLiveHost(hostname)
	if b.Live {
		slog.Info("⚠️ Live order submission ENABLED", slog.String("host", hostname))
	} else {
		slog.Info("✅ Dummy mode, no real orders will be placed", slog.String("host", hostname))
	}

	return nil
}
