// Package yahoo provides a client for the Yahoo Finance chart API
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/interfaces"
	"github.com/mkoyama/shisan/internal/models"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 5 // requests per second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Client fetches stock quotes and FX rates from the Yahoo Finance chart API.
// It implements both interfaces.StockProvider and interfaces.FxProvider.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// Compile-time interface checks
var (
	_ interfaces.StockProvider = (*Client)(nil)
	_ interfaces.FxProvider    = (*Client)(nil)
)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name identifies this upstream.
func (c *Client) Name() string { return "yahoo" }

// chartResponse mirrors the subset of the chart API response we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetQuote retrieves a stock quote. Tokyo-listed symbols get a ".T" suffix;
// everything else is passed through as-is.
func (c *Client) GetQuote(ctx context.Context, symbol, market string) (*models.PricePoint, error) {
	yahooSymbol := symbol
	if market == models.MarketJP && !strings.Contains(symbol, ".") {
		yahooSymbol = symbol + ".T"
	}
	return c.fetchChart(ctx, yahooSymbol)
}

// GetRate retrieves an FX rate for a pair like "USDJPY".
func (c *Client) GetRate(ctx context.Context, pair string) (*models.PricePoint, error) {
	return c.fetchChart(ctx, strings.ToUpper(pair)+"=X")
}

func (c *Client) fetchChart(ctx context.Context, symbol string) (*models.PricePoint, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo request for %s: %v", common.ErrUpstreamUnavailable, symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: yahoo returned HTTP %d for %s", common.ErrUpstreamUnavailable, resp.StatusCode, symbol)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo read body for %s: %v", common.ErrUpstreamUnavailable, symbol, err)
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: yahoo parse for %s: %v", common.ErrUpstreamUnavailable, symbol, err)
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo error for %s: %s", common.ErrUpstreamUnavailable, symbol, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: yahoo empty result for %s", common.ErrUpstreamUnavailable, symbol)
	}

	meta := parsed.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("%w: yahoo non-positive price for %s", common.ErrUpstreamUnavailable, symbol)
	}

	asOf := time.Now().UTC()
	if meta.RegularMarketTime > 0 {
		asOf = time.Unix(meta.RegularMarketTime, 0).UTC()
	}

	c.logger.Debug().
		Str("symbol", symbol).
		Float64("price", meta.RegularMarketPrice).
		Str("currency", meta.Currency).
		Msg("Yahoo quote fetched")

	return &models.PricePoint{
		Price:    meta.RegularMarketPrice,
		Currency: strings.ToUpper(meta.Currency),
		AsOf:     asOf,
		Source:   c.Name(),
	}, nil
}
