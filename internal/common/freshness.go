package common

import "time"

// Freshness TTLs per cache namespace. Staleness is evaluated at read time
// against these; entries are never deleted from storage.
const (
	FreshnessStockQuote = 15 * time.Minute
	FreshnessFxRate     = 5 * time.Minute
	FreshnessMetalPrice = 1 * time.Hour // Tanaka updates store prices once per business day
)

// IsFresh returns true if the payload fetched at fetchedAt is still within
// ttl at instant now. An age exactly equal to ttl counts as fresh.
func IsFresh(fetchedAt, now time.Time, ttl time.Duration) bool {
	if fetchedAt.IsZero() {
		return false
	}
	return now.Sub(fetchedAt) <= ttl
}
