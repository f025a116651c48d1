package badger

import (
	"context"
	"fmt"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SettingEntry is a process-wide scalar setting stored as a key/value pair.
type SettingEntry struct {
	Key   string `badgerhold:"key"`
	Value string
}

type settingsStorage struct {
	store  *Store
	logger *common.Logger
}

// NewSettingsStorage creates a SettingsStorage backed by BadgerHold.
func NewSettingsStorage(store *Store, logger *common.Logger) *settingsStorage {
	return &settingsStorage{store: store, logger: logger}
}

func (s *settingsStorage) Get(_ context.Context, key string) (string, error) {
	var entry SettingEntry
	err := s.store.db.Get(key, &entry)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return "", fmt.Errorf("%w: '%s'", common.ErrSettingNotFound, key)
		}
		return "", fmt.Errorf("failed to get setting '%s': %w", key, err)
	}
	return entry.Value, nil
}

func (s *settingsStorage) Set(_ context.Context, key, value string) error {
	entry := SettingEntry{Key: key, Value: value}
	if err := s.store.db.Upsert(key, &entry); err != nil {
		return fmt.Errorf("failed to set setting '%s': %w", key, err)
	}
	return nil
}

func (s *settingsStorage) GetTargets(_ context.Context) ([]models.TargetAllocation, error) {
	var targets []models.TargetAllocation
	if err := s.store.db.Find(&targets, nil); err != nil {
		return nil, fmt.Errorf("failed to list target allocations: %w", err)
	}
	return targets, nil
}

// SaveTargets replaces the full target set. Classes absent from the new set
// are removed rather than left behind at their old percentage.
func (s *settingsStorage) SaveTargets(_ context.Context, targets []models.TargetAllocation) error {
	if err := s.store.db.DeleteMatching(&models.TargetAllocation{}, nil); err != nil {
		return fmt.Errorf("failed to clear target allocations: %w", err)
	}
	for _, t := range targets {
		t := t
		if err := s.store.db.Upsert(t.Class, &t); err != nil {
			return fmt.Errorf("failed to save target for class '%s': %w", t.Class, err)
		}
	}
	return nil
}
