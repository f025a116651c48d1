package badger

import (
	"context"
	"fmt"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

type cacheStorage struct {
	store  *Store
	logger *common.Logger
}

// NewCacheStorage creates a CacheStorage backed by BadgerHold.
func NewCacheStorage(store *Store, logger *common.Logger) *cacheStorage {
	return &cacheStorage{store: store, logger: logger}
}

func (s *cacheStorage) Get(_ context.Context, key string) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	err := s.store.db.Get(key, &entry)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache entry '%s': %w", key, err)
	}
	return &entry, nil
}

func (s *cacheStorage) Put(_ context.Context, entry *models.CacheEntry) error {
	if err := s.store.db.Upsert(entry.Key, entry); err != nil {
		return fmt.Errorf("failed to put cache entry '%s': %w", entry.Key, err)
	}
	return nil
}
