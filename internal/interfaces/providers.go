// Package interfaces defines service contracts for Shisan
package interfaces

import (
	"context"

	"github.com/mkoyama/shisan/internal/models"
)

// StockProvider supplies a single stock quote from one upstream.
// Implementations fail with common.ErrUpstreamUnavailable on network or
// parse failure, or common.ErrMarketDisabled when the subsystem is off.
type StockProvider interface {
	// Name identifies the upstream ("yahoo", "google-finance", "composite", "noop")
	Name() string

	// GetQuote retrieves a quote for the symbol. market is a hint
	// (models.MarketJP or models.MarketUS) used for symbol formatting and
	// expected-currency selection.
	GetQuote(ctx context.Context, symbol, market string) (*models.PricePoint, error)
}

// FxProvider supplies a conversion rate for a currency pair like "USDJPY".
type FxProvider interface {
	Name() string
	GetRate(ctx context.Context, pair string) (*models.PricePoint, error)
}

// MetalProvider supplies a precious-metal price in JPY per gram.
type MetalProvider interface {
	Name() string
	GetPrice(ctx context.Context, metal string) (*models.PricePoint, error)
}
