package badger

import (
	"context"
	"fmt"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

type assetStorage struct {
	store  *Store
	logger *common.Logger
}

// NewAssetStorage creates an AssetStorage backed by BadgerHold.
func NewAssetStorage(store *Store, logger *common.Logger) *assetStorage {
	return &assetStorage{store: store, logger: logger}
}

func (s *assetStorage) Save(_ context.Context, a *models.Asset) error {
	if err := s.store.db.Upsert(a.ID, a); err != nil {
		return fmt.Errorf("failed to save asset '%s': %w", a.ID, err)
	}
	return nil
}

func (s *assetStorage) Get(_ context.Context, id string) (*models.Asset, error) {
	var a models.Asset
	err := s.store.db.Get(id, &a)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("asset '%s' not found", id)
		}
		return nil, fmt.Errorf("failed to get asset '%s': %w", id, err)
	}
	return &a, nil
}

func (s *assetStorage) List(_ context.Context) ([]models.Asset, error) {
	var assets []models.Asset
	if err := s.store.db.Find(&assets, nil); err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, nil
}

func (s *assetStorage) Delete(_ context.Context, id string) error {
	err := s.store.db.Delete(id, models.Asset{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete asset '%s': %w", id, err)
	}
	return nil
}
