package providers

import (
	"github.com/mkoyama/shisan/internal/clients/googlefinance"
	"github.com/mkoyama/shisan/internal/clients/tanaka"
	"github.com/mkoyama/shisan/internal/clients/yahoo"
	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/interfaces"
)

// Registry holds the wired provider set. Providers are composed once at
// construction time from config; business logic never consults global state
// to decide whether market data is on.
type Registry struct {
	Stock interfaces.StockProvider
	Fx    interfaces.FxProvider
	Metal interfaces.MetalProvider
}

// NewRegistry builds the provider set from configuration. With market data
// disabled every slot holds a noop provider and all quote requests fail with
// ErrMarketDisabled.
func NewRegistry(cfg *common.Config, logger *common.Logger) *Registry {
	if !cfg.Market.Enabled {
		logger.Info().Msg("Market data disabled, wiring noop providers")
		return &Registry{
			Stock: NoopStockProvider{},
			Fx:    NoopFxProvider{},
			Metal: NoopMetalProvider{},
		}
	}

	yahooClient := yahoo.NewClient(
		yahoo.WithBaseURL(cfg.Clients.Yahoo.BaseURL),
		yahoo.WithRateLimit(cfg.Clients.Yahoo.RateLimit),
		yahoo.WithTimeout(cfg.Clients.Yahoo.GetTimeout()),
		yahoo.WithLogger(logger),
	)
	googleClient := googlefinance.NewClient(
		googlefinance.WithBaseURL(cfg.Clients.GoogleFinance.BaseURL),
		googlefinance.WithTimeout(cfg.Clients.GoogleFinance.GetTimeout()),
		googlefinance.WithLogger(logger),
	)
	tanakaClient := tanaka.NewClient(
		tanaka.WithBaseURL(cfg.Clients.Tanaka.BaseURL),
		tanaka.WithTimeout(cfg.Clients.Tanaka.GetTimeout()),
		tanaka.WithLogger(logger),
	)

	logger.Info().
		Str("stock", "composite(yahoo, google-finance)").
		Str("fx", "multi-source(yahoo, google-finance)").
		Str("metal", tanakaClient.Name()).
		Str("primary", cfg.Market.Primary).
		Msg("Market data providers wired")

	return &Registry{
		Stock: NewCompositeStockProvider(logger, cfg.Market.Primary, yahooClient, googleClient),
		Fx:    NewMultiSourceFxProvider(logger, yahooClient, googleClient),
		Metal: tanakaClient,
	}
}
