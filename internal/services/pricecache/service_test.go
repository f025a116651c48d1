package pricecache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/models"
)

// memCacheStorage is a simple in-memory CacheStorage for tests.
type memCacheStorage struct {
	mu      sync.Mutex
	entries map[string]*models.CacheEntry
	gets    int
	puts    int
}

func newMemCacheStorage() *memCacheStorage {
	return &memCacheStorage{entries: make(map[string]*models.CacheEntry)}
}

func (m *memCacheStorage) Get(_ context.Context, key string) (*models.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if e, ok := m.entries[key]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (m *memCacheStorage) Put(_ context.Context, entry *models.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	cp := *entry
	m.entries[entry.Key] = &cp
	return nil
}

func newTestService(storage *memCacheStorage) *Service {
	return NewService(storage, common.NewSilentLogger())
}

func TestFetchWithCacheMissFetchesAndStores(t *testing.T) {
	storage := newMemCacheStorage()
	svc := newTestService(storage)

	res, err := svc.FetchWithCache(context.Background(), "stock:US:AAPL", 15*time.Minute, func(ctx context.Context) ([]byte, error) {
		return []byte(`{"price":230.5}`), nil
	})
	require.NoError(t, err)
	assert.False(t, res.Stale)
	assert.JSONEq(t, `{"price":230.5}`, string(res.Payload))
	assert.Equal(t, 1, storage.puts)
}

func TestFetchWithCacheFreshHitSkipsFetch(t *testing.T) {
	storage := newMemCacheStorage()
	svc := newTestService(storage)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	_, err := svc.FetchWithCache(context.Background(), "fx:USDJPY", 5*time.Minute, func(ctx context.Context) ([]byte, error) {
		return []byte(`{"rate":151.2}`), nil
	})
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(4 * time.Minute) }
	res, err := svc.FetchWithCache(context.Background(), "fx:USDJPY", 5*time.Minute, func(ctx context.Context) ([]byte, error) {
		t.Fatal("fetchFn must not run on a fresh hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.False(t, res.Stale)
	assert.Equal(t, base, res.FetchedAt)
}

// A hit exactly at age == ttl is still fresh; one second past it refetches.
func TestFetchWithCacheTTLBoundary(t *testing.T) {
	storage := newMemCacheStorage()
	svc := newTestService(storage)

	ttl := 15 * time.Minute
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	_, err := svc.FetchWithCache(context.Background(), "stock:JP:7203", ttl, func(ctx context.Context) ([]byte, error) {
		return []byte(`{"price":3100}`), nil
	})
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(ttl) }
	res, err := svc.FetchWithCache(context.Background(), "stock:JP:7203", ttl, func(ctx context.Context) ([]byte, error) {
		t.Fatal("age == ttl is still within the window")
		return nil, nil
	})
	require.NoError(t, err)
	assert.False(t, res.Stale)

	fetched := false
	svc.now = func() time.Time { return base.Add(ttl + time.Second) }
	res, err = svc.FetchWithCache(context.Background(), "stock:JP:7203", ttl, func(ctx context.Context) ([]byte, error) {
		fetched = true
		return []byte(`{"price":3120}`), nil
	})
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.False(t, res.Stale)
}

func TestFetchWithCacheStaleOnFailure(t *testing.T) {
	storage := newMemCacheStorage()
	svc := newTestService(storage)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	_, err := svc.FetchWithCache(context.Background(), "precious_metal:gold", time.Hour, func(ctx context.Context) ([]byte, error) {
		return []byte(`{"price":14800}`), nil
	})
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(2 * time.Hour) }
	res, err := svc.FetchWithCache(context.Background(), "precious_metal:gold", time.Hour, func(ctx context.Context) ([]byte, error) {
		return nil, common.ErrUpstreamUnavailable
	})
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.JSONEq(t, `{"price":14800}`, string(res.Payload))
	assert.Equal(t, base, res.FetchedAt)
}

func TestFetchWithCacheFailureWithoutEntryPropagates(t *testing.T) {
	svc := newTestService(newMemCacheStorage())

	_, err := svc.FetchWithCache(context.Background(), "stock:US:MSFT", time.Minute, func(ctx context.Context) ([]byte, error) {
		return nil, common.ErrUpstreamUnavailable
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUpstreamUnavailable))
}

// N concurrent callers on a cold key must produce exactly one upstream fetch,
// and every caller gets the same payload.
func TestFetchWithCacheCoalescesConcurrentCallers(t *testing.T) {
	storage := newMemCacheStorage()
	svc := newTestService(storage)

	const callers = 32
	var fetches atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	fetchFn := func(ctx context.Context) ([]byte, error) {
		if fetches.Add(1) == 1 {
			close(started)
		}
		<-release
		return []byte(`{"price":42}`), nil
	}

	var wg sync.WaitGroup
	results := make([]*models.CachedPayload, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.FetchWithCache(context.Background(), "stock:US:NVDA", time.Minute, fetchFn)
		}(i)
	}

	// Let the winning caller enter the fetch, give the rest a moment to pile
	// up on the in-flight marker, then release.
	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), fetches.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		assert.JSONEq(t, `{"price":42}`, string(results[i].Payload))
	}
	assert.Equal(t, 1, storage.puts)
}

func TestFetchWithCacheJoinRespectsContextCancel(t *testing.T) {
	svc := newTestService(newMemCacheStorage())

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		svc.FetchWithCache(context.Background(), "fx:EURJPY", time.Minute, func(ctx context.Context) ([]byte, error) {
			close(started)
			<-release
			return []byte(`{"rate":160}`), nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.FetchWithCache(ctx, "fx:EURJPY", time.Minute, func(ctx context.Context) ([]byte, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	close(release)
}

func TestFxRateJPY(t *testing.T) {
	storage := newMemCacheStorage()
	svc := newTestService(storage)
	ctx := context.Background()

	// JPY is always 1 without any storage lookup
	rate, err := svc.FxRateJPY(ctx, "JPY")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)

	// No cached entry is a hard failure
	_, err = svc.FxRateJPY(ctx, "USD")
	assert.ErrorIs(t, err, common.ErrFxRateNotFound)

	// Any of price/rate/value fields carries the rate
	storage.Put(ctx, &models.CacheEntry{Key: "fx:USDJPY", Payload: []byte(`{"price":151.25}`), FetchedAt: time.Now()})
	rate, err = svc.FxRateJPY(ctx, "usd")
	require.NoError(t, err)
	assert.Equal(t, 151.25, rate)

	storage.Put(ctx, &models.CacheEntry{Key: "fx:EURJPY", Payload: []byte(`{"rate":163.4}`), FetchedAt: time.Now()})
	rate, err = svc.FxRateJPY(ctx, "EUR")
	require.NoError(t, err)
	assert.Equal(t, 163.4, rate)

	// Unusable payload is not silently 1:1
	storage.Put(ctx, &models.CacheEntry{Key: "fx:GBPJPY", Payload: []byte(`{"note":"no rate here"}`), FetchedAt: time.Now()})
	_, err = svc.FxRateJPY(ctx, "GBP")
	assert.ErrorIs(t, err, common.ErrFxRateNotFound)
}
