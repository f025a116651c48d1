// Package pricecache provides a TTL-keyed price cache with in-flight request
// coalescing and stale-on-failure fallback. It is the only component in the
// valuation core with a concurrency contract: at most one upstream fetch per
// key at any instant, regardless of caller concurrency.
package pricecache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/interfaces"
	"github.com/mkoyama/shisan/internal/models"
)

// Compile-time interface check
var _ interfaces.PriceCache = (*Service)(nil)

// inflight is the pending-computation handle shared by coalesced callers.
type inflight struct {
	done chan struct{}
	res  *models.CachedPayload
	err  error
}

// Service implements PriceCache over a CacheStorage.
type Service struct {
	storage interfaces.CacheStorage
	logger  *common.Logger

	mu         sync.Mutex
	fetchLocks map[string]*inflight

	now func() time.Time // injectable clock for testing
}

// NewService creates a new price cache service.
func NewService(storage interfaces.CacheStorage, logger *common.Logger) *Service {
	return &Service{
		storage:    storage,
		logger:     logger,
		fetchLocks: make(map[string]*inflight),
		now:        time.Now,
	}
}

// FetchWithCache returns the cached payload for key when it is younger than
// ttl. Otherwise it invokes fetchFn, stores the result, and returns it. While
// a fetch for key is in flight every concurrent caller joins the same result.
// On fetch failure a (possibly expired) entry is served with Stale=true; with
// no entry at all the failure propagates.
func (s *Service) FetchWithCache(ctx context.Context, key string, ttl time.Duration, fetchFn interfaces.FetchFunc) (*models.CachedPayload, error) {
	s.mu.Lock()
	if fl, ok := s.fetchLocks[key]; ok {
		s.mu.Unlock()
		select {
		case <-fl.done:
			return fl.res, fl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Unlock()

	cached, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if cached != nil && common.IsFresh(cached.FetchedAt, s.now(), ttl) {
		return &models.CachedPayload{
			Payload:   cached.Payload,
			Stale:     false,
			FetchedAt: cached.FetchedAt,
		}, nil
	}

	// Register the in-flight marker. A caller that raced us here wins the
	// registration and we join its result instead.
	s.mu.Lock()
	if fl, ok := s.fetchLocks[key]; ok {
		s.mu.Unlock()
		select {
		case <-fl.done:
			return fl.res, fl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	fl := &inflight{done: make(chan struct{})}
	s.fetchLocks[key] = fl
	s.mu.Unlock()

	fl.res, fl.err = s.fetch(ctx, key, cached, fetchFn)

	// The marker must be gone before anyone wakes up, so a caller arriving
	// after settlement always triggers a fresh TTL check.
	s.mu.Lock()
	delete(s.fetchLocks, key)
	s.mu.Unlock()
	close(fl.done)

	return fl.res, fl.err
}

func (s *Service) fetch(ctx context.Context, key string, cached *models.CacheEntry, fetchFn interfaces.FetchFunc) (*models.CachedPayload, error) {
	payload, err := fetchFn(ctx)
	if err != nil {
		if cached != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Fetch failed, serving stale cache")
			return &models.CachedPayload{
				Payload:   cached.Payload,
				Stale:     true,
				FetchedAt: cached.FetchedAt,
			}, nil
		}
		return nil, err
	}

	fetchedAt := s.now()
	entry := &models.CacheEntry{
		Key:       key,
		Payload:   payload,
		FetchedAt: fetchedAt,
	}
	if err := s.storage.Put(ctx, entry); err != nil {
		return nil, err
	}

	return &models.CachedPayload{
		Payload:   payload,
		Stale:     false,
		FetchedAt: fetchedAt,
	}, nil
}

// fxPayload tolerates the payload shapes different FX providers store.
type fxPayload struct {
	Price float64 `json:"price"`
	Rate  float64 `json:"rate"`
	Value float64 `json:"value"`
}

// FxRateJPY returns the cached <currency>JPY conversion rate. JPY itself is
// always 1. The rate is read from whatever entry is cached, however old; a
// missing or unusable entry is ErrFxRateNotFound, never an implicit 1:1.
func (s *Service) FxRateJPY(ctx context.Context, currency string) (float64, error) {
	ccy := strings.ToUpper(strings.TrimSpace(currency))
	if ccy == "" || ccy == "JPY" {
		return 1, nil
	}

	entry, err := s.storage.Get(ctx, models.FxKey(ccy+"JPY"))
	if err != nil {
		return 0, err
	}
	if entry == nil {
		return 0, common.ErrFxRateNotFound
	}

	var p fxPayload
	if err := json.Unmarshal(entry.Payload, &p); err != nil {
		return 0, common.ErrFxRateNotFound
	}

	for _, rate := range []float64{p.Price, p.Rate, p.Value} {
		if rate > 0 {
			return rate, nil
		}
	}
	return 0, common.ErrFxRateNotFound
}
