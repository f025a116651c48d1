package badger

import (
	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/interfaces"
)

// Manager aggregates the storage areas over a single BadgerHold store.
type Manager struct {
	store      *Store
	cache      interfaces.CacheStorage
	comps      interfaces.CompsStorage
	valuations interfaces.ValuationStorage
	assets     interfaces.AssetStorage
	settings   interfaces.SettingsStorage
}

// Compile-time interface check
var _ interfaces.StorageManager = (*Manager)(nil)

// NewManager opens the store at path and wires the storage areas.
func NewManager(logger *common.Logger, path string) (*Manager, error) {
	store, err := NewStore(logger, path)
	if err != nil {
		return nil, err
	}

	return &Manager{
		store:      store,
		cache:      NewCacheStorage(store, logger),
		comps:      NewCompsStorage(store, logger),
		valuations: NewValuationStorage(store, logger),
		assets:     NewAssetStorage(store, logger),
		settings:   NewSettingsStorage(store, logger),
	}, nil
}

func (m *Manager) CacheStorage() interfaces.CacheStorage         { return m.cache }
func (m *Manager) CompsStorage() interfaces.CompsStorage         { return m.comps }
func (m *Manager) ValuationStorage() interfaces.ValuationStorage { return m.valuations }
func (m *Manager) AssetStorage() interfaces.AssetStorage         { return m.assets }
func (m *Manager) SettingsStorage() interfaces.SettingsStorage   { return m.settings }

// Close closes the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}
