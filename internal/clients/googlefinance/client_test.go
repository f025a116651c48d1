package googlefinance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL))
}

func TestGetQuoteJPUsesTokyoExchange(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/7203:TYO", r.URL.Path)
		fmt.Fprint(w, `<div data-last-price="3100.0" data-currency-code="JPY"></div>`)
	})

	point, err := c.GetQuote(context.Background(), "7203", models.MarketJP)
	require.NoError(t, err)
	assert.Equal(t, 3100.0, point.Price)
	assert.Equal(t, "JPY", point.Currency)
	assert.Equal(t, "google-finance", point.Source)
}

func TestGetQuoteUSFallsBackToNYSE(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/IBM:NASDAQ":
			http.NotFound(w, r)
		case "/IBM:NYSE":
			fmt.Fprint(w, `<div data-last-price="245.10" data-currency-code="USD"></div>`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	point, err := c.GetQuote(context.Background(), "IBM", models.MarketUS)
	require.NoError(t, err)
	assert.Equal(t, 245.10, point.Price)
}

func TestGetQuoteClassPatternFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div class="YMlKec fxKbKc">$1,234.56</div><span>Currency in USD</span>`)
	})

	point, err := c.GetQuote(context.Background(), "AAPL", models.MarketUS)
	require.NoError(t, err)
	assert.Equal(t, 1234.56, point.Price)
	assert.Equal(t, "USD", point.Currency)
}

func TestGetQuoteMissingCurrencyDefaultsToMarket(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div data-last-price="3100.0"></div>`)
	})

	point, err := c.GetQuote(context.Background(), "7203", models.MarketJP)
	require.NoError(t, err)
	assert.Equal(t, "JPY", point.Currency)
}

func TestGetRateBuildsPairURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/USD-JPY", r.URL.Path)
		fmt.Fprint(w, `<div data-last-price="151.25"></div>`)
	})

	point, err := c.GetRate(context.Background(), "usdjpy")
	require.NoError(t, err)
	assert.Equal(t, 151.25, point.Price)
	assert.Equal(t, "JPY", point.Currency)
}

func TestGetRateValidatesPair(t *testing.T) {
	c := NewClient()
	_, err := c.GetRate(context.Background(), "USD")
	require.Error(t, err)
	assert.True(t, common.IsValidation(err))
}

func TestGetQuoteParseFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>captcha</body></html>`)
	})

	_, err := c.GetQuote(context.Background(), "AAPL", models.MarketUS)
	require.Error(t, err)
	assert.True(t, common.IsUpstreamUnavailable(err))
}
