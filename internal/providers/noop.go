// Package providers composes upstream clients into the quote provider set:
// noop providers for offline mode, composite providers that reconcile
// disagreement between upstreams, and the factory that wires them.
package providers

import (
	"context"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/interfaces"
	"github.com/mkoyama/shisan/internal/models"
)

// NoopStockProvider fails every call with ErrMarketDisabled. Wired when the
// market-data subsystem is administratively off.
type NoopStockProvider struct{}

var _ interfaces.StockProvider = (*NoopStockProvider)(nil)

func (NoopStockProvider) Name() string { return "noop" }

func (NoopStockProvider) GetQuote(_ context.Context, _, _ string) (*models.PricePoint, error) {
	return nil, common.ErrMarketDisabled
}

// NoopFxProvider fails every call with ErrMarketDisabled.
type NoopFxProvider struct{}

var _ interfaces.FxProvider = (*NoopFxProvider)(nil)

func (NoopFxProvider) Name() string { return "noop" }

func (NoopFxProvider) GetRate(_ context.Context, _ string) (*models.PricePoint, error) {
	return nil, common.ErrMarketDisabled
}

// NoopMetalProvider fails every call with ErrMarketDisabled.
type NoopMetalProvider struct{}

var _ interfaces.MetalProvider = (*NoopMetalProvider)(nil)

func (NoopMetalProvider) Name() string { return "noop" }

func (NoopMetalProvider) GetPrice(_ context.Context, _ string) (*models.PricePoint, error) {
	return nil, common.ErrMarketDisabled
}
