// Package app wires configuration, storage, providers, and services into a
// single shared core used by cmd/shisan-server.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/interfaces"
	"github.com/mkoyama/shisan/internal/providers"
	"github.com/mkoyama/shisan/internal/services/comps"
	"github.com/mkoyama/shisan/internal/services/pricecache"
	"github.com/mkoyama/shisan/internal/services/quote"
	"github.com/mkoyama/shisan/internal/services/rebalance"
	"github.com/mkoyama/shisan/internal/storage/badger"
)

// App holds all initialized services and storage.
type App struct {
	Config  *common.Config
	Logger  *common.Logger
	Storage interfaces.StorageManager

	Providers        *providers.Registry
	PriceCache       interfaces.PriceCache
	QuoteService     interfaces.QuoteService
	CompsService     interfaces.CompsService
	RebalanceService interfaces.RebalanceService

	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, providers, and all services. configPath may be
// empty, in which case SHISAN_CONFIG and then the binary directory are tried.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("SHISAN_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "shisan.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/shisan.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage path to binary directory
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}

	logger := common.NewLogger(config.Logging.Level)

	storageManager, err := badger.NewManager(logger, config.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	registry := providers.NewRegistry(config, logger)

	priceCache := pricecache.NewService(storageManager.CacheStorage(), logger)
	quoteService := quote.NewService(priceCache, registry.Stock, registry.Fx, registry.Metal, logger)
	compsService := comps.NewService(storageManager, priceCache, logger)
	rebalanceService := rebalance.NewService(storageManager, logger, config)

	a := &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		Providers:        registry,
		PriceCache:       priceCache,
		QuoteService:     quoteService,
		CompsService:     compsService,
		RebalanceService: rebalanceService,
		StartupTime:      startupStart,
	}

	logger.Info().
		Str("environment", config.Environment).
		Bool("market_enabled", config.Market.Enabled).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing storage")
		}
		a.Storage = nil
	}
}
