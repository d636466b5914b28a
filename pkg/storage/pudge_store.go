package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/recoilme/pudge"

	"github.com/goliatone/go-listview/components/listview"
)

// PudgeStore is a file backed key-value cache of table settings, the local
// tier of the settings repository.
type PudgeStore struct {
	db *pudge.Db
}

// OpenPudge opens or creates the cache file.
func OpenPudge(path string) (*PudgeStore, error) {
	db, err := pudge.Open(path, &pudge.Config{SyncInterval: 1})
	if err != nil {
		return nil, fmt.Errorf("storage: open cache %s: %w", path, err)
	}
	return &PudgeStore{db: db}, nil
}

// Close flushes and closes the cache file.
func (s *PudgeStore) Close() error {
	return s.db.Close()
}

func pudgeKey(owner, table string) string {
	return owner + "|" + table
}

// LoadSetting reads a cached setting. Undecodable entries are reported as an
// error so the caller can treat them as absent.
func (s *PudgeStore) LoadSetting(_ context.Context, owner, table string) (listview.TableSetting, bool, error) {
	key := pudgeKey(owner, table)
	has, err := s.db.Has(key)
	if err != nil {
		return listview.TableSetting{}, false, fmt.Errorf("storage: cache lookup: %w", err)
	}
	if !has {
		return listview.TableSetting{}, false, nil
	}
	var raw []byte
	if err := s.db.Get(key, &raw); err != nil {
		return listview.TableSetting{}, false, fmt.Errorf("storage: cache read: %w", err)
	}
	var setting listview.TableSetting
	if err := json.Unmarshal(raw, &setting); err != nil {
		return listview.TableSetting{}, false, fmt.Errorf("storage: decode cached %s: %w", key, err)
	}
	setting.Table = table
	return setting, true, nil
}

// SaveSetting writes a setting to the cache.
func (s *PudgeStore) SaveSetting(_ context.Context, owner string, setting listview.TableSetting) error {
	raw, err := json.Marshal(setting)
	if err != nil {
		return fmt.Errorf("storage: encode setting: %w", err)
	}
	if err := s.db.Set(pudgeKey(owner, setting.Table), raw); err != nil {
		return fmt.Errorf("storage: cache write: %w", err)
	}
	return nil
}

// Purge drops every cached setting of an owner and returns how many entries
// were removed.
func (s *PudgeStore) Purge(owner string) (int, error) {
	prefix := owner + "|"
	keys, err := s.db.Keys([]byte(prefix+"*"), 0, 0, true)
	if err != nil {
		return 0, fmt.Errorf("storage: cache keys: %w", err)
	}
	removed := 0
	for _, key := range keys {
		if !strings.HasPrefix(string(key), prefix) {
			continue
		}
		if err := s.db.Delete(string(key)); err != nil {
			return removed, fmt.Errorf("storage: cache delete: %w", err)
		}
		removed++
	}
	return removed, nil
}
