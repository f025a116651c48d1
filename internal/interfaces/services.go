package interfaces

import (
	"context"
	"time"

	"github.com/mkoyama/shisan/internal/models"
)

// FetchFunc produces a fresh cache payload from upstream.
type FetchFunc func(ctx context.Context) ([]byte, error)

// PriceCache is a TTL-keyed cache over arbitrary market-fact keys with
// in-flight request coalescing and stale-on-failure fallback.
type PriceCache interface {
	// FetchWithCache returns the cached payload when fresh, otherwise invokes
	// fetchFn (at most once per key at any instant across concurrent callers).
	// On fetch failure an expired entry is returned with Stale=true; with no
	// entry at all the failure propagates.
	FetchWithCache(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFunc) (*models.CachedPayload, error)

	// FxRateJPY returns the cached <currency>JPY rate. JPY itself is 1.
	// A missing or unusable cached rate is common.ErrFxRateNotFound.
	FxRateJPY(ctx context.Context, currency string) (float64, error)
}

// QuoteService fronts the providers with the price cache.
type QuoteService interface {
	GetStockQuote(ctx context.Context, exchange, symbol string) (*models.CachedQuote, error)
	GetFxRate(ctx context.Context, pair string) (*models.CachedQuote, error)
	GetMetalPrice(ctx context.Context, metal string) (*models.CachedQuote, error)
}

// CompsService manages comparable sales and produces estimates from them.
type CompsService interface {
	List(ctx context.Context, assetID string, limit int) ([]models.ComparableSale, error)
	Add(ctx context.Context, assetID string, sale *models.ComparableSale) (*models.ComparableSale, error)
	Update(ctx context.Context, id string, patch *models.ComparableSale) (*models.ComparableSale, error)
	Delete(ctx context.Context, id string) error

	// EstimateForAsset runs the estimator over the asset's stored sales.
	EstimateForAsset(ctx context.Context, assetID, method string, halfLifeDays int) (*models.EstimateResult, error)

	// CommitValuation persists an estimate as a new valuation row. It performs
	// no re-validation; callers must re-estimate immediately before committing.
	CommitValuation(ctx context.Context, assetID string, estimate *models.EstimateResult) error
}

// RebalanceService compares current vs target allocation and plans trades.
type RebalanceService interface {
	GetTargets(ctx context.Context) ([]models.TargetAllocation, error)
	SetTargets(ctx context.Context, targets []models.TargetAllocation) error
	GetTolerancePct(ctx context.Context) (float64, error)
	SetTolerancePct(ctx context.Context, v float64) error

	// CurrentByClass builds the per-request snapshot from
	// latest-valuation-or-book-value per asset.
	CurrentByClass(ctx context.Context) (*models.CurrentAllocation, error)

	// Plan computes the breach report and trade list for the current state.
	Plan(ctx context.Context, adjustTo string, minTradeJPY float64) (*models.PlanResult, error)
}
