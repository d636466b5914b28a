package listview

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// TableSetting is the persisted per-owner configuration of one table.
type TableSetting struct {
	Table         string       `json:"table"`
	Columns       []ColumnRule `json:"columns,omitempty"`
	Sorting       Sort         `json:"sorting"`
	PinnedFields  []string     `json:"pinned_fields,omitempty"`
	ExportColumns []ColumnRule `json:"export_columns,omitempty"`
	PerPage       int          `json:"per_page,omitempty"`
	Version       int64        `json:"version"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// SettingPatch is a partial update; nil fields are left untouched.
type SettingPatch struct {
	Columns       *[]ColumnRule `json:"columns,omitempty"`
	Sorting       *Sort         `json:"sorting,omitempty"`
	PinnedFields  *[]string     `json:"pinned_fields,omitempty"`
	ExportColumns *[]ColumnRule `json:"export_columns,omitempty"`
	PerPage       *int          `json:"per_page,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p SettingPatch) IsZero() bool {
	return p.Columns == nil && p.Sorting == nil && p.PinnedFields == nil && p.ExportColumns == nil && p.PerPage == nil
}

// Apply returns a copy of the setting with the patch merged in.
func (p SettingPatch) Apply(setting TableSetting) TableSetting {
	if p.Columns != nil {
		setting.Columns = append([]ColumnRule(nil), (*p.Columns)...)
	}
	if p.Sorting != nil {
		setting.Sorting = p.Sorting.Normalize()
	}
	if p.PinnedFields != nil {
		setting.PinnedFields = append([]string(nil), (*p.PinnedFields)...)
	}
	if p.ExportColumns != nil {
		setting.ExportColumns = append([]ColumnRule(nil), (*p.ExportColumns)...)
	}
	if p.PerPage != nil {
		setting.PerPage = *p.PerPage
	}
	return setting
}

// SettingsRepository is the single entry point for table settings. It keeps a
// local cache tier and a remote tier; the copy with the higher version wins on
// load (remote on ties) and writes go local first, then remote.
type SettingsRepository struct {
	local     SettingsStore
	remote    SettingsStore
	validator SettingsValidator
	logger    zerolog.Logger
	now       func() time.Time
}

// SettingsRepositoryOptions configures a SettingsRepository.
type SettingsRepositoryOptions struct {
	Local     SettingsStore
	Remote    SettingsStore
	Validator SettingsValidator
	Logger    *zerolog.Logger
	Now       func() time.Time
}

// NewSettingsRepository builds a repository. A nil local tier defaults to an
// in-memory store; the remote tier is optional.
func NewSettingsRepository(opts SettingsRepositoryOptions) *SettingsRepository {
	repo := &SettingsRepository{
		local:     opts.Local,
		remote:    opts.Remote,
		validator: opts.Validator,
		logger:    zerolog.Nop(),
		now:       opts.Now,
	}
	if repo.local == nil {
		repo.local = NewInMemorySettingsStore()
	}
	if repo.validator == nil {
		repo.validator = NewSchemaSettingsValidator()
	}
	if opts.Logger != nil {
		repo.logger = *opts.Logger
	}
	if repo.now == nil {
		repo.now = time.Now
	}
	return repo
}

// Load resolves the setting for an owner/table. Unknown entries return an
// empty setting for the table.
func (r *SettingsRepository) Load(ctx context.Context, owner, table string) (TableSetting, error) {
	if table == "" {
		return TableSetting{}, errInvalidTable
	}
	empty := TableSetting{Table: table}
	if owner == "" {
		return empty, nil
	}

	local, localOK, err := r.local.LoadSetting(ctx, owner, table)
	if err != nil {
		r.logger.Warn().Err(err).Str("owner", owner).Str("table", table).Msg("listview: local settings unreadable, ignoring")
		localOK = false
	}
	if r.remote == nil {
		if !localOK {
			return empty, nil
		}
		return local, nil
	}

	remote, remoteOK, err := r.remote.LoadSetting(ctx, owner, table)
	if err != nil {
		r.logger.Warn().Err(err).Str("owner", owner).Str("table", table).Msg("listview: remote settings unavailable, using local copy")
		if !localOK {
			return empty, nil
		}
		return local, nil
	}

	switch {
	case remoteOK && (!localOK || remote.Version >= local.Version):
		if err := r.local.SaveSetting(ctx, owner, remote); err != nil {
			r.logger.Warn().Err(err).Str("table", table).Msg("listview: refresh local settings cache")
		}
		return remote, nil
	case localOK:
		if err := r.remote.SaveSetting(ctx, owner, local); err != nil {
			r.logger.Warn().Err(err).Str("table", table).Msg("listview: push newer local settings")
		}
		return local, nil
	default:
		return empty, nil
	}
}

// Save merges a patch onto the current setting, bumps its version and writes
// it through both tiers.
func (r *SettingsRepository) Save(ctx context.Context, owner, table string, patch SettingPatch) (TableSetting, error) {
	if owner == "" {
		return TableSetting{}, errMissingOwner
	}
	current, err := r.Load(ctx, owner, table)
	if err != nil {
		return TableSetting{}, err
	}
	next := patch.Apply(current)
	next.Table = table
	next.Version = current.Version + 1
	next.UpdatedAt = r.now().UTC()
	if err := r.validator.ValidateSetting(next); err != nil {
		return TableSetting{}, err
	}
	if err := r.local.SaveSetting(ctx, owner, next); err != nil {
		return TableSetting{}, fmt.Errorf("listview: save local settings: %w", err)
	}
	if r.remote != nil {
		if err := r.remote.SaveSetting(ctx, owner, next); err != nil {
			return next, fmt.Errorf("listview: save remote settings: %w", err)
		}
	}
	return next, nil
}
