package interfaces

import (
	"context"

	"github.com/mkoyama/shisan/internal/models"
)

// CacheStorage persists price cache entries. Writes are idempotent upserts
// keyed by a single key; Get returns (nil, nil) when no entry exists.
type CacheStorage interface {
	Get(ctx context.Context, key string) (*models.CacheEntry, error)
	Put(ctx context.Context, entry *models.CacheEntry) error
}

// CompsStorage persists comparable-sale records.
type CompsStorage interface {
	Save(ctx context.Context, sale *models.ComparableSale) error
	Get(ctx context.Context, id string) (*models.ComparableSale, error)
	Delete(ctx context.Context, id string) error

	// ListByAsset returns sales for an asset, newest sale date first,
	// capped at limit (0 means no cap).
	ListByAsset(ctx context.Context, assetID string, limit int) ([]models.ComparableSale, error)
}

// ValuationStorage persists committed valuations.
type ValuationStorage interface {
	Save(ctx context.Context, v *models.Valuation) error

	// LatestForAsset returns the most recent valuation for the asset, or
	// (nil, nil) when none exists.
	LatestForAsset(ctx context.Context, assetID string) (*models.Valuation, error)
}

// AssetStorage persists the asset register.
type AssetStorage interface {
	Save(ctx context.Context, a *models.Asset) error
	Get(ctx context.Context, id string) (*models.Asset, error)
	List(ctx context.Context) ([]models.Asset, error)
	Delete(ctx context.Context, id string) error
}

// SettingsStorage persists process-wide scalar settings and target allocations.
type SettingsStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error

	GetTargets(ctx context.Context) ([]models.TargetAllocation, error)
	SaveTargets(ctx context.Context, targets []models.TargetAllocation) error
}

// StorageManager aggregates the storage areas behind one lifecycle.
type StorageManager interface {
	CacheStorage() CacheStorage
	CompsStorage() CompsStorage
	ValuationStorage() ValuationStorage
	AssetStorage() AssetStorage
	SettingsStorage() SettingsStorage
	Close() error
}
