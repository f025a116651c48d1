package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

type compsStorage struct {
	store  *Store
	logger *common.Logger
}

// NewCompsStorage creates a CompsStorage backed by BadgerHold.
func NewCompsStorage(store *Store, logger *common.Logger) *compsStorage {
	return &compsStorage{store: store, logger: logger}
}

func (s *compsStorage) Save(_ context.Context, sale *models.ComparableSale) error {
	if err := s.store.db.Upsert(sale.ID, sale); err != nil {
		return fmt.Errorf("failed to save comparable sale '%s': %w", sale.ID, err)
	}
	return nil
}

func (s *compsStorage) Get(_ context.Context, id string) (*models.ComparableSale, error) {
	var sale models.ComparableSale
	err := s.store.db.Get(id, &sale)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("comparable sale '%s' not found", id)
		}
		return nil, fmt.Errorf("failed to get comparable sale '%s': %w", id, err)
	}
	return &sale, nil
}

func (s *compsStorage) Delete(_ context.Context, id string) error {
	err := s.store.db.Delete(id, models.ComparableSale{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete comparable sale '%s': %w", id, err)
	}
	return nil
}

func (s *compsStorage) ListByAsset(_ context.Context, assetID string, limit int) ([]models.ComparableSale, error) {
	var sales []models.ComparableSale
	if err := s.store.db.Find(&sales, badgerhold.Where("AssetID").Eq(assetID).Index("AssetID")); err != nil {
		return nil, fmt.Errorf("failed to list comparable sales for asset '%s': %w", assetID, err)
	}

	// Newest sale date first; ID as tiebreak for a stable order
	sort.Slice(sales, func(i, j int) bool {
		if sales[i].SaleDate != sales[j].SaleDate {
			return sales[i].SaleDate > sales[j].SaleDate
		}
		return sales[i].ID > sales[j].ID
	})

	if limit > 0 && len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}
