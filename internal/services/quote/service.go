// Package quote fronts the market-data providers with the price cache.
// Keys are namespaced per fact type and each namespace carries its own TTL.
package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/interfaces"
	"github.com/mkoyama/shisan/internal/models"
)

// Compile-time interface check
var _ interfaces.QuoteService = (*Service)(nil)

// Service implements QuoteService.
type Service struct {
	cache  interfaces.PriceCache
	stock  interfaces.StockProvider
	fx     interfaces.FxProvider
	metal  interfaces.MetalProvider
	logger *common.Logger
}

// NewService creates a new quote service over the given providers.
func NewService(cache interfaces.PriceCache, stock interfaces.StockProvider, fx interfaces.FxProvider, metal interfaces.MetalProvider, logger *common.Logger) *Service {
	return &Service{
		cache:  cache,
		stock:  stock,
		fx:     fx,
		metal:  metal,
		logger: logger,
	}
}

// GetStockQuote returns the cached-or-fetched quote for a listed stock.
// exchange is "JP" or "US"; it doubles as the market hint for the provider.
func (s *Service) GetStockQuote(ctx context.Context, exchange, symbol string) (*models.CachedQuote, error) {
	exchange = strings.ToUpper(strings.TrimSpace(exchange))
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, common.NewValidationError("symbol", "must not be empty")
	}
	if exchange != models.MarketJP && exchange != models.MarketUS {
		return nil, common.NewValidationError("exchange", "must be JP or US, got %q", exchange)
	}

	return s.cachedFetch(ctx, models.StockKey(exchange, symbol), common.FreshnessStockQuote, func(ctx context.Context) ([]byte, error) {
		point, err := s.stock.GetQuote(ctx, symbol, exchange)
		if err != nil {
			return nil, err
		}
		return json.Marshal(point)
	})
}

// GetFxRate returns the cached-or-fetched rate for a pair like "USDJPY".
func (s *Service) GetFxRate(ctx context.Context, pair string) (*models.CachedQuote, error) {
	pair = strings.ToUpper(strings.TrimSpace(pair))
	if len(pair) != 6 {
		return nil, common.NewValidationError("pair", "must be a 6-letter currency pair, got %q", pair)
	}

	return s.cachedFetch(ctx, models.FxKey(pair), common.FreshnessFxRate, func(ctx context.Context) ([]byte, error) {
		point, err := s.fx.GetRate(ctx, pair)
		if err != nil {
			return nil, err
		}
		return json.Marshal(point)
	})
}

// GetMetalPrice returns the cached-or-fetched price for a precious metal in
// JPY per gram.
func (s *Service) GetMetalPrice(ctx context.Context, metal string) (*models.CachedQuote, error) {
	metal = strings.ToLower(strings.TrimSpace(metal))
	if metal == "" {
		return nil, common.NewValidationError("metal", "must not be empty")
	}

	return s.cachedFetch(ctx, models.MetalKey(metal), common.FreshnessMetalPrice, func(ctx context.Context) ([]byte, error) {
		point, err := s.metal.GetPrice(ctx, metal)
		if err != nil {
			return nil, err
		}
		return json.Marshal(point)
	})
}

func (s *Service) cachedFetch(ctx context.Context, key string, ttl time.Duration, fetchFn interfaces.FetchFunc) (*models.CachedQuote, error) {
	cached, err := s.cache.FetchWithCache(ctx, key, ttl, fetchFn)
	if err != nil {
		return nil, err
	}

	var point models.PricePoint
	if err := json.Unmarshal(cached.Payload, &point); err != nil {
		return nil, fmt.Errorf("corrupt cache payload for '%s': %w", key, err)
	}

	if cached.Stale {
		s.logger.Warn().Str("key", key).Time("fetched_at", cached.FetchedAt).Msg("Serving stale quote")
	}

	return &models.CachedQuote{PricePoint: point, Stale: cached.Stale}, nil
}
