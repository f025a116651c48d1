// Package models defines the data structures for Shisan
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Market hints for instrument keys. Domestic instruments are expected to
// quote in JPY, everything else in USD.
const (
	MarketJP = "JP"
	MarketUS = "US"
)

// PricePoint is a single observed market fact from one upstream. Ephemeral;
// it is only ever folded into a cache entry or a committed valuation.
type PricePoint struct {
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	AsOf      time.Time `json:"asOf"`
	Source    string    `json:"source,omitempty"`
	SourceURL string    `json:"sourceUrl,omitempty"`
}

// Valid reports whether the point carries a usable positive price.
func (p *PricePoint) Valid() bool {
	return p != nil && p.Price > 0
}

// ExpectedCurrency returns the currency a quote should be denominated in for
// the given market hint.
func ExpectedCurrency(market string) string {
	if market == MarketJP {
		return "JPY"
	}
	return "USD"
}

// CacheEntry is one row of the price cache. One entry per key, latest wins;
// staleness is a read-time property of (now, ttl), never a deletion trigger.
type CacheEntry struct {
	Key       string          `badgerhold:"key" json:"key"`
	Payload   json.RawMessage `json:"payload"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// CachedPayload is what the cache hands back to callers: the stored payload
// plus the staleness tag callers use to show a staleness indicator.
type CachedPayload struct {
	Payload   json.RawMessage `json:"payload"`
	Stale     bool            `json:"stale"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// CachedQuote is a PricePoint decoded from a cache payload with its
// staleness tag attached.
type CachedQuote struct {
	PricePoint
	Stale bool `json:"stale"`
}

// Cache key helpers. The key space is namespaced by fact type; keys are plain
// strings so the cache itself stays ignorant of what it holds.

// StockKey builds a cache key like "stock:US:AAPL" or "stock:JP:7203".
func StockKey(exchange, symbol string) string {
	return fmt.Sprintf("stock:%s:%s", strings.ToUpper(exchange), strings.ToUpper(symbol))
}

// FxKey builds a cache key like "fx:USDJPY".
func FxKey(pair string) string {
	return "fx:" + strings.ToUpper(pair)
}

// MetalKey builds a cache key like "precious_metal:gold".
func MetalKey(metal string) string {
	return "precious_metal:" + strings.ToLower(metal)
}
