package listview

import (
	"context"
	"fmt"
	"sync"
)

// InMemorySettingsStore provides a concurrency-safe default settings store.
type InMemorySettingsStore struct {
	mu   sync.RWMutex
	data map[string]TableSetting
}

// NewInMemorySettingsStore creates an empty store.
func NewInMemorySettingsStore() *InMemorySettingsStore {
	return &InMemorySettingsStore{
		data: make(map[string]TableSetting),
	}
}

// LoadSetting returns the stored setting if present.
func (s *InMemorySettingsStore) LoadSetting(_ context.Context, owner, table string) (TableSetting, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	setting, ok := s.data[s.key(owner, table)]
	if !ok {
		return TableSetting{}, false, nil
	}
	return cloneSetting(setting), true, nil
}

// SaveSetting persists a setting for an owner.
func (s *InMemorySettingsStore) SaveSetting(_ context.Context, owner string, setting TableSetting) error {
	if owner == "" {
		return fmt.Errorf("settings store requires owner")
	}
	if setting.Table == "" {
		return errInvalidTable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[s.key(owner, setting.Table)] = cloneSetting(setting)
	return nil
}

func (s *InMemorySettingsStore) key(owner, table string) string {
	return owner + "::" + table
}

func cloneSetting(setting TableSetting) TableSetting {
	setting.Columns = append([]ColumnRule(nil), setting.Columns...)
	setting.PinnedFields = append([]string(nil), setting.PinnedFields...)
	setting.ExportColumns = append([]ColumnRule(nil), setting.ExportColumns...)
	return setting
}
