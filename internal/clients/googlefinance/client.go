// Package googlefinance provides a scraping client for Google Finance quote pages
package googlefinance

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/interfaces"
	"github.com/mkoyama/shisan/internal/models"
)

const (
	DefaultBaseURL = "https://www.google.com/finance/quote"
	DefaultTimeout = 15 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Extraction patterns, tried in order. The data-last-price attribute is the
// stable one; the class-based patterns cover older page renders.
var (
	reLastPrice  = regexp.MustCompile(`data-last-price="([0-9.,]+)"`)
	reMainPrice  = regexp.MustCompile(`<div[^>]*class="[^"]*YMlKec[^"]*"[^>]*>[^0-9]*([0-9.,]+)</div>`)
	reAltPrice   = regexp.MustCompile(`<div[^>]*class="[^"]*fxKbKc[^"]*"[^>]*>[^0-9]*([0-9.,]+)</div>`)
	reCurrCode   = regexp.MustCompile(`data-currency-code="([A-Z]{3})"`)
	reCurrInText = regexp.MustCompile(`(?i)Currency in ([A-Z]{3})`)
)

// Client scrapes stock quotes and FX rates from Google Finance. It implements
// both interfaces.StockProvider and interfaces.FxProvider.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
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

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Google Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name identifies this upstream.
func (c *Client) Name() string { return "google-finance" }

// GetQuote retrieves a stock quote. Tokyo-listed symbols are looked up on
// TYO; US symbols try NASDAQ first and fall back to NYSE.
func (c *Client) GetQuote(ctx context.Context, symbol, market string) (*models.PricePoint, error) {
	exchanges := []string{"NASDAQ", "NYSE"}
	if market == models.MarketJP {
		exchanges = []string{"TYO"}
	}

	var lastErr error
	for _, exchange := range exchanges {
		point, err := c.fetchPage(ctx, fmt.Sprintf("%s/%s:%s", c.baseURL, symbol, exchange))
		if err == nil {
			if point.Currency == "" {
				point.Currency = models.ExpectedCurrency(market)
			}
			return point, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// GetRate retrieves an FX rate for a pair like "USDJPY" via the
// "USD-JPY" quote page.
func (c *Client) GetRate(ctx context.Context, pair string) (*models.PricePoint, error) {
	p := strings.ToUpper(pair)
	if len(p) != 6 {
		return nil, common.NewValidationError("pair", "must be a 6-letter currency pair, got %q", pair)
	}

	point, err := c.fetchPage(ctx, fmt.Sprintf("%s/%s-%s", c.baseURL, p[:3], p[3:]))
	if err != nil {
		return nil, err
	}
	point.Currency = p[3:]
	return point, nil
}

func (c *Client) fetchPage(ctx context.Context, url string) (*models.PricePoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: google finance request: %v", common.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: google finance returned HTTP %d", common.ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: google finance read body: %v", common.ErrUpstreamUnavailable, err)
	}

	html := string(body)
	price, ok := extractPrice(html)
	if !ok {
		return nil, fmt.Errorf("%w: google finance parse failed for %s", common.ErrUpstreamUnavailable, url)
	}

	c.logger.Debug().Str("url", url).Float64("price", price).Msg("Google Finance quote scraped")

	return &models.PricePoint{
		Price:     price,
		Currency:  extractCurrency(html),
		AsOf:      time.Now().UTC(),
		Source:    c.Name(),
		SourceURL: url,
	}, nil
}

func extractPrice(html string) (float64, bool) {
	for _, re := range []*regexp.Regexp{reLastPrice, reMainPrice, reAltPrice} {
		if m := re.FindStringSubmatch(html); m != nil {
			if v, err := parseNumber(m[1]); err == nil && v > 0 {
				return v, true
			}
		}
	}
	return 0, false
}

func extractCurrency(html string) string {
	if m := reCurrCode.FindStringSubmatch(html); m != nil {
		return m[1]
	}
	if m := reCurrInText.FindStringSubmatch(html); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

// parseNumber handles "1,234.56" style grouping. Google renders with comma
// thousands separators and a dot decimal point on the locales we request.
func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}
