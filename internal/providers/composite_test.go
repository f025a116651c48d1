package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/models"
)

// fakeStockProvider returns a canned quote or error.
type fakeStockProvider struct {
	name  string
	point *models.PricePoint
	err   error
	delay time.Duration
}

func (f *fakeStockProvider) Name() string { return f.name }

func (f *fakeStockProvider) GetQuote(ctx context.Context, _, _ string) (*models.PricePoint, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.point
	return &cp, nil
}

type fakeFxProvider struct {
	name  string
	point *models.PricePoint
	err   error
}

func (f *fakeFxProvider) Name() string { return f.name }

func (f *fakeFxProvider) GetRate(_ context.Context, _ string) (*models.PricePoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.point
	return &cp, nil
}

func quote(price float64, currency string) *models.PricePoint {
	return &models.PricePoint{Price: price, Currency: currency, AsOf: time.Now().UTC()}
}

func TestCompositeAllProvidersFail(t *testing.T) {
	c := NewCompositeStockProvider(common.NewSilentLogger(), "yahoo",
		&fakeStockProvider{name: "yahoo", err: errors.New("timeout")},
		&fakeStockProvider{name: "google-finance", err: errors.New("parse error")},
	)

	_, err := c.GetQuote(context.Background(), "AAPL", models.MarketUS)
	require.Error(t, err)
	assert.True(t, common.IsUpstreamUnavailable(err))
}

func TestCompositeSingleSurvivorWins(t *testing.T) {
	c := NewCompositeStockProvider(common.NewSilentLogger(), "yahoo",
		&fakeStockProvider{name: "yahoo", err: errors.New("timeout")},
		&fakeStockProvider{name: "google-finance", point: quote(230.5, "USD")},
	)

	got, err := c.GetQuote(context.Background(), "AAPL", models.MarketUS)
	require.NoError(t, err)
	assert.Equal(t, 230.5, got.Price)
	assert.Equal(t, "google-finance", got.Source)
}

// Candidates quoting the market's expected currency beat others regardless
// of order.
func TestCompositePrefersExpectedCurrency(t *testing.T) {
	c := NewCompositeStockProvider(common.NewSilentLogger(), "yahoo",
		&fakeStockProvider{name: "yahoo", point: quote(1.53, "USD")},
		&fakeStockProvider{name: "google-finance", point: quote(3100, "JPY")},
	)

	got, err := c.GetQuote(context.Background(), "7203", models.MarketJP)
	require.NoError(t, err)
	assert.Equal(t, "JPY", got.Currency)
	assert.Equal(t, 3100.0, got.Price)
}

func TestCompositeAgreementPrefersPrimary(t *testing.T) {
	// 230 vs 232: ~0.9% apart, well within the agreement threshold.
	c := NewCompositeStockProvider(common.NewSilentLogger(), "google-finance",
		&fakeStockProvider{name: "yahoo", point: quote(230, "USD")},
		&fakeStockProvider{name: "google-finance", point: quote(232, "USD")},
	)

	got, err := c.GetQuote(context.Background(), "AAPL", models.MarketUS)
	require.NoError(t, err)
	assert.Equal(t, "google-finance", got.Source)
	assert.Equal(t, 232.0, got.Price)
}

func TestCompositeDivergenceReturnsMean(t *testing.T) {
	// 100 vs 120: 18% apart, neither source is trusted.
	c := NewCompositeStockProvider(common.NewSilentLogger(), "yahoo",
		&fakeStockProvider{name: "yahoo", point: quote(100, "USD")},
		&fakeStockProvider{name: "google-finance", point: quote(120, "USD")},
	)

	got, err := c.GetQuote(context.Background(), "XYZ", models.MarketUS)
	require.NoError(t, err)
	assert.Equal(t, 110.0, got.Price)
	assert.Equal(t, "composite", got.Source)
}

// A slow member delays only the composite's return; its quote still counts.
func TestCompositeWaitsForSlowMember(t *testing.T) {
	c := NewCompositeStockProvider(common.NewSilentLogger(), "yahoo",
		&fakeStockProvider{name: "yahoo", point: quote(230, "USD"), delay: 30 * time.Millisecond},
		&fakeStockProvider{name: "google-finance", point: quote(231, "USD")},
	)

	got, err := c.GetQuote(context.Background(), "AAPL", models.MarketUS)
	require.NoError(t, err)
	assert.Equal(t, "yahoo", got.Source)
}

func TestMultiSourceFxPicksClosestToMedian(t *testing.T) {
	m := NewMultiSourceFxProvider(common.NewSilentLogger(),
		&fakeFxProvider{name: "yahoo", point: quote(151.2, "JPY")},
		&fakeFxProvider{name: "google-finance", point: quote(151.5, "JPY")},
	)

	got, err := m.GetRate(context.Background(), "USDJPY")
	require.NoError(t, err)
	// Median of {151.2, 151.5} picks the upper value; the closest survivor is
	// the one at exactly that price.
	assert.Equal(t, 151.5, got.Price)
}

func TestMultiSourceFxAllFail(t *testing.T) {
	m := NewMultiSourceFxProvider(common.NewSilentLogger(),
		&fakeFxProvider{name: "yahoo", err: errors.New("down")},
		&fakeFxProvider{name: "google-finance", err: errors.New("down")},
	)

	_, err := m.GetRate(context.Background(), "USDJPY")
	require.Error(t, err)
	assert.True(t, common.IsUpstreamUnavailable(err))
}

func TestNoopProvidersReturnMarketDisabled(t *testing.T) {
	ctx := context.Background()

	_, err := NoopStockProvider{}.GetQuote(ctx, "AAPL", models.MarketUS)
	assert.ErrorIs(t, err, common.ErrMarketDisabled)

	_, err = NoopFxProvider{}.GetRate(ctx, "USDJPY")
	assert.ErrorIs(t, err, common.ErrMarketDisabled)

	_, err = NoopMetalProvider{}.GetPrice(ctx, "gold")
	assert.ErrorIs(t, err, common.ErrMarketDisabled)
}

func TestRegistryDisabledWiresNoops(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Market.Enabled = false

	reg := NewRegistry(cfg, common.NewSilentLogger())
	_, err := reg.Stock.GetQuote(context.Background(), "AAPL", models.MarketUS)
	assert.ErrorIs(t, err, common.ErrMarketDisabled)
}
