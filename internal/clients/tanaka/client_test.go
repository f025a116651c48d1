package tanaka

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoyama/shisan/internal/common"
)

const priceTable = `
<html><body>
<table class="souba-table">
<tr><th>金</th><td>14,829</td><td>+45</td></tr>
<tr><th>プラチナ</th><td>5,412</td><td>-12</td></tr>
<tr><th>銀</th><td>182.5</td><td>+0.4</td></tr>
</table>
</body></html>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL))
}

func TestGetPriceParsesTable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, priceTable)
	})

	cases := map[string]float64{
		"gold":     14829,
		"platinum": 5412,
		"silver":   182.5,
	}
	for metal, want := range cases {
		point, err := c.GetPrice(context.Background(), metal)
		require.NoError(t, err, metal)
		assert.Equal(t, want, point.Price, metal)
		assert.Equal(t, "JPY", point.Currency)
		assert.Equal(t, "tanaka", point.Source)
	}
}

// Markup variations break the strict pattern; the proximity scan still finds
// a plausible per-gram number near the label.
func TestGetPriceProximityFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div><span class="label">金</span><div class="price-wrap"><b>14,829</b>円/g</div></div>`)
	})

	point, err := c.GetPrice(context.Background(), "gold")
	require.NoError(t, err)
	assert.Equal(t, 14829.0, point.Price)
}

// The fallback must not latch onto numbers outside the plausible range, like
// a year in surrounding text.
func TestGetPriceRejectsImplausibleNumbers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div>金 2026年3月10日 相場表 14,829円</div>`)
	})

	point, err := c.GetPrice(context.Background(), "gold")
	require.NoError(t, err)
	assert.Equal(t, 14829.0, point.Price)
}

func TestGetPriceUnsupportedMetal(t *testing.T) {
	c := NewClient()
	_, err := c.GetPrice(context.Background(), "rhodium")
	require.Error(t, err)
	assert.True(t, common.IsValidation(err))
}

func TestGetPriceHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})

	_, err := c.GetPrice(context.Background(), "gold")
	require.Error(t, err)
	assert.True(t, common.IsUpstreamUnavailable(err))
}

func TestGetPriceParseFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>no table today</body></html>`)
	})

	_, err := c.GetPrice(context.Background(), "gold")
	require.Error(t, err)
	assert.True(t, common.IsUpstreamUnavailable(err))
}
