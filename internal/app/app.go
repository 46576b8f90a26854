// Package app wires configuration, clients, storage, and services into a
// single application core shared by the server binary and tests.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/skew/internal/clients/eodhd"
	"github.com/bobmcallan/skew/internal/clients/fmp"
	"github.com/bobmcallan/skew/internal/clients/gemini"
	"github.com/bobmcallan/skew/internal/common"
	"github.com/bobmcallan/skew/internal/interfaces"
	"github.com/bobmcallan/skew/internal/services/criteria"
	"github.com/bobmcallan/skew/internal/services/marketdata"
	"github.com/bobmcallan/skew/internal/services/recommend"
	badgerstore "github.com/bobmcallan/skew/internal/storage/badger"
	"github.com/bobmcallan/skew/internal/storage/memory"
)

// App holds all initialized clients, storage, and services.
type App struct {
	Config                *common.Config
	Logger                *common.Logger
	Cache                 interfaces.CacheStorage
	EODHDClient           interfaces.MarketDataClient
	FMPClient             interfaces.MarketDataClient
	GeminiClient          interfaces.GeminiClient
	MarketDataService     interfaces.MarketDataService
	CriteriaService       interfaces.CriteriaService
	RecommendationService interfaces.RecommendationService
	StartupTime           time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes clients, storage, and services from configuration.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	binDir := getBinaryDir()

	// Load configuration - check provided path, SKEW_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("SKEW_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "skew.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/skew.toml" // fallback for development
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

	a := &App{
		Config:      config,
		Logger:      logger,
		StartupTime: startupStart,
	}

	if err := a.initCache(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	a.initClients(ctx)

	a.initServices()

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// initCache selects the cache backend from config. Badger is the durable
// default; memory is used for ephemeral or test deployments.
func (a *App) initCache() error {
	switch a.Config.Storage.Backend {
	case "memory":
		a.Cache = memory.NewCache()
		a.Logger.Info().Msg("Using in-memory cache backend")
	default:
		store, err := badgerstore.NewStore(a.Logger, a.Config.Storage.Path)
		if err != nil {
			return fmt.Errorf("failed to initialize badger storage: %w", err)
		}
		a.Cache = badgerstore.NewCacheStorage(store, a.Logger)
	}
	return nil
}

// initClients resolves API keys and builds the market data and AI clients.
// Missing keys degrade the corresponding capability instead of failing startup.
func (a *App) initClients(ctx context.Context) {
	eodhdKey, err := common.ResolveAPIKey("eodhd_api_key", a.Config.Clients.EODHD.APIKey)
	if err != nil {
		a.Logger.Warn().Msg("EODHD API key not configured - primary market data unavailable")
	}
	if eodhdKey != "" {
		a.EODHDClient = eodhd.NewClient(eodhdKey,
			eodhd.WithBaseURL(a.Config.Clients.EODHD.BaseURL),
			eodhd.WithLogger(a.Logger),
			eodhd.WithRateLimit(a.Config.Clients.EODHD.RateLimit),
			eodhd.WithTimeout(a.Config.Clients.EODHD.GetTimeout()),
		)
	}

	fmpKey, err := common.ResolveAPIKey("fmp_api_key", a.Config.Clients.FMP.APIKey)
	if err != nil {
		a.Logger.Warn().Msg("FMP API key not configured - secondary market data unavailable")
	}
	if fmpKey != "" {
		a.FMPClient = fmp.NewClient(fmpKey,
			fmp.WithBaseURL(a.Config.Clients.FMP.BaseURL),
			fmp.WithLogger(a.Logger),
			fmp.WithRateLimit(a.Config.Clients.FMP.RateLimit),
			fmp.WithTimeout(a.Config.Clients.FMP.GetTimeout()),
		)
	}

	if !a.Config.Clients.Gemini.Enabled {
		a.Logger.Info().Msg("Gemini client disabled by configuration - using deterministic allocation only")
		return
	}

	geminiKey, err := common.ResolveAPIKey("gemini_api_key", a.Config.Clients.Gemini.APIKey)
	if err != nil {
		a.Logger.Warn().Msg("Gemini API key not configured - AI allocation will be unavailable")
		return
	}

	geminiClient, err := gemini.NewClient(ctx, geminiKey,
		gemini.WithLogger(a.Logger),
		gemini.WithModel(a.Config.Clients.Gemini.Model),
	)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		return
	}
	a.GeminiClient = geminiClient
}

func (a *App) initServices() {
	// When the primary provider is unconfigured the secondary takes its
	// slot, so a single-key deployment still serves market data.
	primary, secondary := a.EODHDClient, a.FMPClient
	if primary == nil {
		primary, secondary = a.FMPClient, nil
	}
	marketService := marketdata.NewService(primary, secondary, a.Cache, a.Logger)

	defaults := criteria.DefaultsFromConfig(a.Config.Criteria)
	criteriaService := criteria.NewService(&defaults, a.Logger)

	filter := recommend.NewFilter(a.Config.Targets.Allocations, a.Config.Targets.MaxPerAsset, a.Logger)

	a.MarketDataService = marketService
	a.CriteriaService = criteriaService
	a.RecommendationService = recommend.NewService(
		marketService,
		criteriaService,
		filter,
		a.GeminiClient,
		a.Config.Clients.Gemini.GetTimeout(),
		a.Logger,
	)
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing cache storage")
		}
		a.Cache = nil
	}
}
