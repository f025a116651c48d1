package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

type valuationStorage struct {
	store  *Store
	logger *common.Logger
}

// NewValuationStorage creates a ValuationStorage backed by BadgerHold.
func NewValuationStorage(store *Store, logger *common.Logger) *valuationStorage {
	return &valuationStorage{store: store, logger: logger}
}

func (s *valuationStorage) Save(_ context.Context, v *models.Valuation) error {
	if err := s.store.db.Upsert(v.ID, v); err != nil {
		return fmt.Errorf("failed to save valuation '%s': %w", v.ID, err)
	}
	return nil
}

func (s *valuationStorage) LatestForAsset(_ context.Context, assetID string) (*models.Valuation, error) {
	var valuations []models.Valuation
	if err := s.store.db.Find(&valuations, badgerhold.Where("AssetID").Eq(assetID).Index("AssetID")); err != nil {
		return nil, fmt.Errorf("failed to list valuations for asset '%s': %w", assetID, err)
	}
	if len(valuations) == 0 {
		return nil, nil
	}

	// Latest as-of date wins; creation time breaks same-day ties
	sort.Slice(valuations, func(i, j int) bool {
		if valuations[i].AsOf != valuations[j].AsOf {
			return valuations[i].AsOf > valuations[j].AsOf
		}
		return valuations[i].CreatedAt.After(valuations[j].CreatedAt)
	})
	return &valuations[0], nil
}
