// Package tanaka provides a client for Tanaka Kikinzoku's published
// precious-metal store prices (JPY per gram, tax included).
package tanaka

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
	DefaultBaseURL = "https://gold.tanaka.co.jp/commodity/souba/"
	DefaultTimeout = 12 * time.Second

	userAgent = "shisan/1.0 (+https://github.com/mkoyama/shisan)"
)

// metalLabels maps metal names to the row label on the price table.
var metalLabels = map[string]string{
	"gold":     "金",
	"platinum": "プラチナ",
	"silver":   "銀",
}

// Plausible JPY-per-gram ranges used to reject junk numbers picked up by the
// proximity fallback. Silver trades two orders of magnitude below gold.
var metalRanges = map[string][2]float64{
	"gold":     {1000, 100000},
	"platinum": {1000, 100000},
	"silver":   {10, 10000},
}

var reNumber = regexp.MustCompile(`([0-9]{1,3}(?:,[0-9]{3})*(?:\.[0-9]+)?)`)

// Client scrapes metal prices from the Tanaka price page.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
}

// Compile-time interface check
var _ interfaces.MetalProvider = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
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

// NewClient creates a new Tanaka client
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
func (c *Client) Name() string { return "tanaka" }

// GetPrice retrieves the store price for a metal in JPY per gram.
func (c *Client) GetPrice(ctx context.Context, metal string) (*models.PricePoint, error) {
	m := strings.ToLower(strings.TrimSpace(metal))
	label, ok := metalLabels[m]
	if !ok {
		return nil, common.NewValidationError("metal", "unsupported metal %q", metal)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "ja-JP,ja;q=0.9,en-US;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: tanaka request: %v", common.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: tanaka returned HTTP %d", common.ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: tanaka read body: %v", common.ErrUpstreamUnavailable, err)
	}

	price, ok := extractMetalPrice(string(body), label, metalRanges[m])
	if !ok {
		return nil, fmt.Errorf("%w: tanaka parse failed for %s", common.ErrUpstreamUnavailable, m)
	}

	c.logger.Debug().Str("metal", m).Float64("price_jpy_per_g", price).Msg("Tanaka metal price fetched")

	return &models.PricePoint{
		Price:     price,
		Currency:  "JPY",
		AsOf:      time.Now().UTC(),
		Source:    c.Name(),
		SourceURL: c.baseURL,
	}, nil
}

// extractMetalPrice finds the price cell for the labeled metal row. The page
// layout shifts between renders, so after the strict table pattern fails we
// scan a window after the first label occurrence for a plausible number.
func extractMetalPrice(html, label string, bounds [2]float64) (float64, bool) {
	// Normalize whitespace so patterns survive layout changes
	norm := strings.Join(strings.Fields(html), " ")

	strict := regexp.MustCompile(
		`<th[^>]*>\s*` + regexp.QuoteMeta(label) + `\s*</th>\s*<td[^>]*>\s*([0-9]{1,3}(?:,[0-9]{3})*(?:\.[0-9]+)?)`)
	if m := strict.FindStringSubmatch(norm); m != nil {
		if v, err := parseGroupedNumber(m[1]); err == nil && inBounds(v, bounds) {
			return v, true
		}
	}

	idx := strings.Index(norm, label)
	if idx < 0 {
		return 0, false
	}
	window := norm[idx:min(idx+1200, len(norm))]
	for _, m := range reNumber.FindAllStringSubmatch(window, -1) {
		if v, err := parseGroupedNumber(m[1]); err == nil && inBounds(v, bounds) {
			return v, true
		}
	}
	return 0, false
}

func parseGroupedNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

func inBounds(v float64, bounds [2]float64) bool {
	return v >= bounds[0] && v <= bounds[1]
}
