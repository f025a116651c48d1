package providers

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/interfaces"
	"github.com/mkoyama/shisan/internal/models"
)

// AgreementThreshold is the relative price difference below which two
// upstream quotes are considered to agree. Above it neither source is
// trusted and the composite answers with their mean.
const AgreementThreshold = 0.08

// CompositeStockProvider fans a quote request out to all underlying
// providers concurrently and reconciles whatever resolves.
type CompositeStockProvider struct {
	providers []interfaces.StockProvider
	primary   string // preferred source when quotes agree
	logger    *common.Logger
}

var _ interfaces.StockProvider = (*CompositeStockProvider)(nil)

// NewCompositeStockProvider creates a composite over the given providers.
// primary names the source preferred when candidates agree within threshold.
func NewCompositeStockProvider(logger *common.Logger, primary string, providers ...interfaces.StockProvider) *CompositeStockProvider {
	return &CompositeStockProvider{
		providers: providers,
		primary:   primary,
		logger:    logger,
	}
}

// Name identifies this provider.
func (c *CompositeStockProvider) Name() string { return "composite" }

// GetQuote queries every underlying provider concurrently and selects one
// quote. Each provider bounds its own call; a slow provider delays only the
// composite's return, never the other fetches.
func (c *CompositeStockProvider) GetQuote(ctx context.Context, symbol, market string) (*models.PricePoint, error) {
	results := make([]*models.PricePoint, len(c.providers))

	var wg sync.WaitGroup
	for i, p := range c.providers {
		wg.Add(1)
		go func(i int, p interfaces.StockProvider) {
			defer wg.Done()
			point, err := p.GetQuote(ctx, symbol, market)
			if err != nil {
				c.logger.Debug().Err(err).
					Str("provider", p.Name()).
					Str("symbol", symbol).
					Msg("Composite member failed")
				return
			}
			if point.Valid() {
				point.Source = p.Name()
				results[i] = point
			}
		}(i, p)
	}
	wg.Wait()

	var resolved []*models.PricePoint
	for _, r := range results {
		if r != nil {
			resolved = append(resolved, r)
		}
	}

	return c.selectBest(symbol, market, resolved)
}

func (c *CompositeStockProvider) selectBest(symbol, market string, resolved []*models.PricePoint) (*models.PricePoint, error) {
	if len(resolved) == 0 {
		return nil, fmt.Errorf("%w: no provider returned a quote for %s", common.ErrUpstreamUnavailable, symbol)
	}
	if len(resolved) == 1 {
		return resolved[0], nil
	}

	// Prefer the subset quoting in the market's expected currency
	expected := models.ExpectedCurrency(market)
	var candidates []*models.PricePoint
	for _, q := range resolved {
		if q.Currency == expected {
			candidates = append(candidates, q)
		}
	}
	if len(candidates) == 0 {
		candidates = resolved
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	p1, p2 := candidates[0].Price, candidates[1].Price
	diff := math.Abs(p1-p2) / ((p1 + p2) / 2)

	if diff <= AgreementThreshold {
		// Close enough: prefer the designated primary source when present
		for _, q := range candidates {
			if q.Source == c.primary {
				return q, nil
			}
		}
		return candidates[0], nil
	}

	// Diverging sources: answer with the mean as a conservative synthetic
	// quote attributed to neither upstream
	c.logger.Warn().
		Str("symbol", symbol).
		Float64("p1", p1).
		Float64("p2", p2).
		Float64("diff_pct", diff*100).
		Msg("Composite quotes diverge, using mean")

	return &models.PricePoint{
		Price:    (p1 + p2) / 2,
		Currency: candidates[0].Currency,
		AsOf:     time.Now().UTC(),
		Source:   c.Name(),
	}, nil
}

// MultiSourceFxProvider fans an FX rate request out to all underlying
// providers and returns the rate closest to the median of the resolved set.
type MultiSourceFxProvider struct {
	providers []interfaces.FxProvider
	logger    *common.Logger
}

var _ interfaces.FxProvider = (*MultiSourceFxProvider)(nil)

// NewMultiSourceFxProvider creates a multi-source FX provider.
func NewMultiSourceFxProvider(logger *common.Logger, providers ...interfaces.FxProvider) *MultiSourceFxProvider {
	return &MultiSourceFxProvider{providers: providers, logger: logger}
}

// Name identifies this provider.
func (m *MultiSourceFxProvider) Name() string { return "multi-source" }

// GetRate queries every source concurrently and picks the resolved rate
// closest to the median price.
func (m *MultiSourceFxProvider) GetRate(ctx context.Context, pair string) (*models.PricePoint, error) {
	results := make([]*models.PricePoint, len(m.providers))

	var wg sync.WaitGroup
	for i, p := range m.providers {
		wg.Add(1)
		go func(i int, p interfaces.FxProvider) {
			defer wg.Done()
			point, err := p.GetRate(ctx, pair)
			if err != nil {
				m.logger.Debug().Err(err).
					Str("provider", p.Name()).
					Str("pair", pair).
					Msg("FX source failed")
				return
			}
			if point.Valid() {
				point.Source = p.Name()
				results[i] = point
			}
		}(i, p)
	}
	wg.Wait()

	var resolved []*models.PricePoint
	for _, r := range results {
		if r != nil {
			resolved = append(resolved, r)
		}
	}

	if len(resolved) == 0 {
		return nil, fmt.Errorf("%w: no FX source returned a rate for %s", common.ErrUpstreamUnavailable, pair)
	}
	if len(resolved) == 1 {
		return resolved[0], nil
	}

	prices := make([]float64, len(resolved))
	for i, r := range resolved {
		prices[i] = r.Price
	}
	sort.Float64s(prices)
	median := prices[len(prices)/2]

	best := resolved[0]
	for _, r := range resolved[1:] {
		if math.Abs(r.Price-median) < math.Abs(best.Price-median) {
			best = r
		}
	}
	return best, nil
}
