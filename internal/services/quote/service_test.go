package quote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/interfaces"
	"github.com/mkoyama/shisan/internal/models"
	"github.com/mkoyama/shisan/internal/providers"
	"github.com/mkoyama/shisan/internal/services/pricecache"
)

// memCacheStorage keeps cache entries in a map.
type memCacheStorage struct {
	entries map[string]*models.CacheEntry
}

func (m *memCacheStorage) Get(_ context.Context, key string) (*models.CacheEntry, error) {
	if e, ok := m.entries[key]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (m *memCacheStorage) Put(_ context.Context, entry *models.CacheEntry) error {
	cp := *entry
	m.entries[entry.Key] = &cp
	return nil
}

var _ interfaces.CacheStorage = (*memCacheStorage)(nil)

type stubStock struct {
	point *models.PricePoint
	err   error
	calls int
}

func (s *stubStock) Name() string { return "stub" }

func (s *stubStock) GetQuote(context.Context, string, string) (*models.PricePoint, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	cp := *s.point
	return &cp, nil
}

func newTestQuoteService(stock interfaces.StockProvider) *Service {
	logger := common.NewSilentLogger()
	cache := pricecache.NewService(&memCacheStorage{entries: make(map[string]*models.CacheEntry)}, logger)
	return NewService(cache, stock, providers.NoopFxProvider{}, providers.NoopMetalProvider{}, logger)
}

func TestGetStockQuoteValidation(t *testing.T) {
	svc := newTestQuoteService(&stubStock{})
	ctx := context.Background()

	_, err := svc.GetStockQuote(ctx, "JP", "")
	assert.True(t, common.IsValidation(err))

	_, err = svc.GetStockQuote(ctx, "LSE", "VOD")
	assert.True(t, common.IsValidation(err))
}

func TestGetStockQuoteCachesSecondCall(t *testing.T) {
	stock := &stubStock{point: &models.PricePoint{
		Price:    3100,
		Currency: "JPY",
		AsOf:     time.Now().UTC(),
		Source:   "stub",
	}}
	svc := newTestQuoteService(stock)
	ctx := context.Background()

	first, err := svc.GetStockQuote(ctx, "jp", "7203")
	require.NoError(t, err)
	assert.Equal(t, 3100.0, first.Price)
	assert.False(t, first.Stale)

	second, err := svc.GetStockQuote(ctx, "JP", "7203")
	require.NoError(t, err)
	assert.Equal(t, first.Price, second.Price)
	assert.Equal(t, 1, stock.calls, "second call must be served from cache")
}

func TestGetStockQuoteMarketDisabledPassesThrough(t *testing.T) {
	svc := newTestQuoteService(&stubStock{err: common.ErrMarketDisabled})

	_, err := svc.GetStockQuote(context.Background(), "US", "AAPL")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMarketDisabled)
}

func TestGetFxRateValidation(t *testing.T) {
	svc := newTestQuoteService(&stubStock{})

	_, err := svc.GetFxRate(context.Background(), "USD")
	assert.True(t, common.IsValidation(err))

	_, err = svc.GetMetalPrice(context.Background(), "  ")
	assert.True(t, common.IsValidation(err))
}
