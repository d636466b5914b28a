package listview

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the list view Service. Collaborators are interfaces so
// hosts can swap the backend, the settings tiers and the transports.
type Options struct {
	Source         Source
	Tables         TableRegistry
	Settings       *SettingsRepository
	LocalSettings  SettingsStore
	RemoteSettings SettingsStore
	Writer         SpreadsheetWriter
	Recorder       ExportRecorder
	Notifier       Notifier
	RefreshHook    RefreshHook
	Telemetry      Telemetry
	Translator     TranslationService
	Logger         *zerolog.Logger
	Scheduler      Scheduler
	PollInterval   time.Duration
	ExportPageSize int
	Now            func() time.Time
}

// Service resolves list views: capability-gated columns reconciled against
// persisted settings, filter chips, remote rows and the viewer's selection.
type Service struct {
	opts     Options
	logger   zerolog.Logger
	settings *SettingsRepository
	exporter *Exporter

	mu         sync.Mutex
	selections map[string]*selectionEntry
}

type selectionEntry struct {
	set     *SelectionSet
	filters FilterState
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	if opts.Tables == nil {
		opts.Tables = NewRegistry()
	}
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}
	if opts.RefreshHook == nil {
		opts.RefreshHook = noopRefreshHook{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	settings := opts.Settings
	if settings == nil {
		settings = NewSettingsRepository(SettingsRepositoryOptions{
			Local:  opts.LocalSettings,
			Remote: opts.RemoteSettings,
			Logger: &logger,
			Now:    opts.Now,
		})
	}
	return &Service{
		opts:     opts,
		logger:   logger,
		settings: settings,
		exporter: NewExporter(ExporterOptions{
			Source:    opts.Source,
			Writer:    opts.Writer,
			Recorder:  opts.Recorder,
			Notifier:  opts.Notifier,
			Telemetry: opts.Telemetry,
			Logger:    &logger,
			PageSize:  opts.ExportPageSize,
			Now:       opts.Now,
		}),
		selections: map[string]*selectionEntry{},
	}
}

// ListRequest carries the viewer-controlled list state. A nil Sort falls
// back to the persisted sort, then the table default.
type ListRequest struct {
	Table   string      `json:"table"`
	Page    int         `json:"page,omitempty"`
	PerPage int         `json:"per_page,omitempty"`
	Query   string      `json:"q,omitempty"`
	Filters FilterState `json:"filters,omitempty"`
	Sort    *Sort       `json:"sort,omitempty"`
}

// ViewRow is a rendered row.
type ViewRow struct {
	ID       string `json:"id"`
	Cells    []Cell `json:"cells"`
	Selected bool   `json:"selected"`
}

// View is a render-ready list.
type View struct {
	Table        string    `json:"table"`
	Columns      []Column  `json:"columns"`
	Headers      []string  `json:"headers"`
	Chips        []Chip    `json:"chips"`
	Rows         []ViewRow `json:"rows"`
	TotalCount   int       `json:"total_count"`
	Page         int       `json:"page"`
	PerPage      int       `json:"per_page"`
	Sort         Sort      `json:"sort"`
	PinnedFields []string  `json:"pinned_fields,omitempty"`
	Selection    Selection `json:"selection"`
}

// Tables lists the tables the viewer may open.
func (s *Service) Tables(viewer ViewerContext) []TableDefinition {
	var out []TableDefinition
	for _, def := range s.opts.Tables.Tables() {
		if viewer.Can(def.Capability) {
			out = append(out, def)
		}
	}
	return out
}

// List fetches one page and renders it for the viewer. A server error resets
// the persisted sort before the error is returned.
func (s *Service) List(ctx context.Context, viewer ViewerContext, req ListRequest) (View, error) {
	if s.opts.Source == nil {
		return View{}, errMissingSource
	}
	def, err := s.table(viewer, req.Table)
	if err != nil {
		return View{}, err
	}
	owner := viewer.SettingsOwner()
	setting, err := s.settings.Load(ctx, owner, def.Name)
	if err != nil {
		return View{}, err
	}
	columns := s.reconcileColumns(ctx, viewer, def, setting)
	state := resolveState(def, setting, req)
	selection := s.selectionFor(viewer, def.Name, state.Filters)

	result, err := s.opts.Source.FetchPage(ctx, state.request(def))
	if err != nil {
		s.fetchFailed(ctx, viewer, def, state.Sort, err)
		return View{}, fmt.Errorf("listview: list %s: %w", def.Name, err)
	}

	loc := viewer.Location()
	enabled := EnabledColumns(columns)
	view := View{
		Table:        def.Name,
		Columns:      columns,
		Headers:      make([]string, len(enabled)),
		Chips:        DeriveChips(s.filterSpecs(ctx, viewer, def), state.Filters, loc),
		Rows:         make([]ViewRow, len(result.Rows)),
		TotalCount:   result.TotalCount,
		Page:         state.Page,
		PerPage:      state.PerPage,
		Sort:         state.Sort,
		PinnedFields: setting.PinnedFields,
		Selection:    selection.Snapshot(),
	}
	for i, col := range enabled {
		view.Headers[i] = col.LabelFor(viewer.Locale)
	}
	for i, row := range result.Rows {
		cells := make([]Cell, len(enabled))
		for c, col := range enabled {
			cells[c] = col.RenderCell(row, loc)
		}
		id := row.ID()
		view.Rows[i] = ViewRow{ID: id, Cells: cells, Selected: selection.Has(id)}
	}
	s.recordTelemetry(ctx, "listview.list", map[string]any{
		"table":  def.Name,
		"viewer": viewer.UserID,
		"page":   state.Page,
		"rows":   len(result.Rows),
	})
	return view, nil
}

// RemoveChip drops the filter behind a chip from the request. Clearing a
// scalar filter resets the request to the first page.
func (s *Service) RemoveChip(req ListRequest, chip Chip) ListRequest {
	filters, resetPage := RemoveChip(req.Filters, chip)
	req.Filters = filters
	if resetPage {
		req.Page = 1
	}
	return req
}

// Settings returns the persisted setting for the viewer and table.
func (s *Service) Settings(ctx context.Context, viewer ViewerContext, table string) (TableSetting, error) {
	def, err := s.table(viewer, table)
	if err != nil {
		return TableSetting{}, err
	}
	return s.settings.Load(ctx, viewer.SettingsOwner(), def.Name)
}

// SaveColumns persists a column rule. The rule is normalized against the
// table columns first and nothing is written when it matches storage.
func (s *Service) SaveColumns(ctx context.Context, viewer ViewerContext, table string, rule []ColumnRule) (TableSetting, error) {
	def, err := s.table(viewer, table)
	if err != nil {
		return TableSetting{}, err
	}
	current, err := s.settings.Load(ctx, viewer.SettingsOwner(), def.Name)
	if err != nil {
		return TableSetting{}, err
	}
	normalized := RuleFromColumns(Reconcile(VisibleColumns(def.Columns, viewer), rule))
	normalized = keepHiddenRules(normalized, current.Columns, def.Columns, viewer)
	if rulesEqual(current.Columns, normalized) {
		return current, nil
	}
	return s.save(ctx, viewer, def, "columns", SettingPatch{Columns: &normalized})
}

// SaveExportColumns persists the custom export rule. An empty rule reverts
// exports to the list columns.
func (s *Service) SaveExportColumns(ctx context.Context, viewer ViewerContext, table string, rule []ColumnRule) (TableSetting, error) {
	def, err := s.table(viewer, table)
	if err != nil {
		return TableSetting{}, err
	}
	normalized := []ColumnRule{}
	if len(rule) > 0 {
		normalized = RuleFromColumns(Reconcile(VisibleColumns(def.Columns, viewer), rule))
	}
	return s.save(ctx, viewer, def, "export_columns", SettingPatch{ExportColumns: &normalized})
}

// SaveSorting persists the active sort. The zero Sort clears it.
func (s *Service) SaveSorting(ctx context.Context, viewer ViewerContext, table string, sort Sort) (TableSetting, error) {
	def, err := s.table(viewer, table)
	if err != nil {
		return TableSetting{}, err
	}
	sort = sort.Normalize()
	return s.save(ctx, viewer, def, "sorting", SettingPatch{Sorting: &sort})
}

// SavePinnedFields persists pinned column ids.
func (s *Service) SavePinnedFields(ctx context.Context, viewer ViewerContext, table string, fields []string) (TableSetting, error) {
	def, err := s.table(viewer, table)
	if err != nil {
		return TableSetting{}, err
	}
	pinned := make([]string, 0, len(fields))
	seen := map[string]struct{}{}
	for _, f := range fields {
		if _, dup := seen[f]; dup || f == "" {
			continue
		}
		seen[f] = struct{}{}
		pinned = append(pinned, f)
	}
	return s.save(ctx, viewer, def, "pinned_fields", SettingPatch{PinnedFields: &pinned})
}

// SavePerPage persists the page size.
func (s *Service) SavePerPage(ctx context.Context, viewer ViewerContext, table string, perPage int) (TableSetting, error) {
	def, err := s.table(viewer, table)
	if err != nil {
		return TableSetting{}, err
	}
	return s.save(ctx, viewer, def, "per_page", SettingPatch{PerPage: &perPage})
}

// Select applies a selection action for the viewer.
func (s *Service) Select(ctx context.Context, viewer ViewerContext, table string, action SelectionAction, ids []string) (Selection, error) {
	def, err := s.table(viewer, table)
	if err != nil {
		return Selection{}, err
	}
	set := s.selectionFor(viewer, def.Name, nil)
	if err := set.Apply(action, ids); err != nil {
		return Selection{}, err
	}
	snapshot := set.Snapshot()
	s.recordTelemetry(ctx, "listview.selection", map[string]any{
		"table":    def.Name,
		"action":   string(action),
		"selected": len(snapshot.Selected),
		"all":      snapshot.SelectAll,
	})
	return snapshot, nil
}

// Selection returns the viewer's selection for a table.
func (s *Service) Selection(viewer ViewerContext, table string) (Selection, error) {
	def, err := s.table(viewer, table)
	if err != nil {
		return Selection{}, err
	}
	return s.selectionFor(viewer, def.Name, nil).Snapshot(), nil
}

// ExportRequestOptions selects what to export. The viewer's selection
// decides between every matching row and the selected ids.
type ExportRequestOptions struct {
	Table   string      `json:"table"`
	Query   string      `json:"q,omitempty"`
	Filters FilterState `json:"filters,omitempty"`
	Sort    *Sort       `json:"sort,omitempty"`
}

// Export writes every matching row to a workbook. Columns follow the saved
// export rule when one exists, otherwise the list columns.
func (s *Service) Export(ctx context.Context, viewer ViewerContext, req ExportRequestOptions) (ExportResult, error) {
	def, err := s.table(viewer, req.Table)
	if err != nil {
		return ExportResult{}, err
	}
	setting, err := s.settings.Load(ctx, viewer.SettingsOwner(), def.Name)
	if err != nil {
		return ExportResult{}, err
	}
	rule := setting.Columns
	if len(setting.ExportColumns) > 0 {
		rule = setting.ExportColumns
	}
	state := resolveState(def, setting, ListRequest{Query: req.Query, Filters: req.Filters, Sort: req.Sort})
	all, ids := s.selectionFor(viewer, def.Name, nil).Targets()
	if !all && len(ids) == 0 {
		all = true
	}
	return s.exporter.Export(ctx, ExportRequest{
		Table:     def,
		Columns:   Reconcile(VisibleColumns(def.Columns, viewer), rule),
		Viewer:    viewer,
		Query:     state.Query,
		Filters:   state.Filters,
		Sort:      state.Sort,
		SelectAll: all,
		IDs:       ids,
	})
}

// Watch builds a poller for the viewer's list state. Server errors during
// polling clear the persisted sort.
func (s *Service) Watch(ctx context.Context, viewer ViewerContext, req ListRequest) (*Poller, error) {
	def, err := s.table(viewer, req.Table)
	if err != nil {
		return nil, err
	}
	setting, err := s.settings.Load(ctx, viewer.SettingsOwner(), def.Name)
	if err != nil {
		return nil, err
	}
	return NewPoller(PollerOptions{
		Table:     def,
		Source:    s.opts.Source,
		State:     resolveState(def, setting, req),
		Interval:  s.opts.PollInterval,
		Scheduler: s.opts.Scheduler,
		Hook:      s.opts.RefreshHook,
		Notifier:  s.opts.Notifier,
		Telemetry: s.opts.Telemetry,
		Logger:    &s.logger,
		OnSortReset: func(ctx context.Context) {
			s.clearSort(ctx, viewer, def)
		},
	})
}

// NotifyListUpdated exposes refresh hook invocation for commands/transports.
func (s *Service) NotifyListUpdated(ctx context.Context, event ListEvent) error {
	if err := s.opts.RefreshHook.ListUpdated(ctx, event); err != nil {
		return err
	}
	s.recordTelemetry(ctx, "listview.event", map[string]any{
		"table":  event.Table,
		"reason": event.Reason,
	})
	return nil
}

func (s *Service) table(viewer ViewerContext, name string) (TableDefinition, error) {
	if name == "" {
		return TableDefinition{}, errInvalidTable
	}
	def, ok := s.opts.Tables.Table(name)
	if !ok {
		return TableDefinition{}, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	if !viewer.Can(def.Capability) {
		return TableDefinition{}, fmt.Errorf("%w: %s", ErrForbidden, name)
	}
	return def, nil
}

func (s *Service) save(ctx context.Context, viewer ViewerContext, def TableDefinition, field string, patch SettingPatch) (TableSetting, error) {
	setting, err := s.settings.Save(ctx, viewer.SettingsOwner(), def.Name, patch)
	if err != nil {
		return setting, err
	}
	s.recordTelemetry(ctx, "listview.settings.save", map[string]any{
		"table":   def.Name,
		"field":   field,
		"version": setting.Version,
	})
	if err := s.opts.RefreshHook.ListUpdated(ctx, ListEvent{Table: def.Name, Reason: "settings"}); err != nil {
		s.logger.Warn().Err(err).Str("table", def.Name).Msg("listview: refresh hook failed")
	}
	return setting, nil
}

// reconcileColumns merges the persisted rule and writes the normalized rule
// back when reconciliation changed it.
func (s *Service) reconcileColumns(ctx context.Context, viewer ViewerContext, def TableDefinition, setting TableSetting) []Column {
	columns := Reconcile(VisibleColumns(def.Columns, viewer), setting.Columns)
	if len(setting.Columns) == 0 || viewer.SettingsOwner() == "" {
		return columns
	}
	rule := keepHiddenRules(RuleFromColumns(columns), setting.Columns, def.Columns, viewer)
	if rulesEqual(rule, setting.Columns) {
		return columns
	}
	if _, err := s.settings.Save(ctx, viewer.SettingsOwner(), def.Name, SettingPatch{Columns: &rule}); err != nil {
		s.logger.Warn().Err(err).Str("table", def.Name).Msg("listview: write back reconciled columns")
	}
	return columns
}

func (s *Service) filterSpecs(ctx context.Context, viewer ViewerContext, def TableDefinition) []FilterSpec {
	if s.opts.Translator == nil {
		return def.Filters
	}
	specs := make([]FilterSpec, len(def.Filters))
	for i, spec := range def.Filters {
		key := "listview." + def.Name + ".filters." + spec.Key
		spec.Label = translateOrFallback(ctx, s.opts.Translator, key, viewer.Locale, spec.Label)
		specs[i] = spec
	}
	return specs
}

func (s *Service) fetchFailed(ctx context.Context, viewer ViewerContext, def TableDefinition, sort Sort, err error) {
	if IsServerError(err) && !sort.IsZero() {
		s.clearSort(ctx, viewer, def)
	}
	s.logger.Error().Err(err).Str("table", def.Name).Msg("listview: fetch failed")
	s.opts.Notifier.Notify(ctx, Notification{Level: LevelError, Table: def.Name, Message: UserMessage(err)})
	s.recordTelemetry(ctx, "listview.list.error", map[string]any{
		"table": def.Name,
		"error": err.Error(),
	})
}

func (s *Service) clearSort(ctx context.Context, viewer ViewerContext, def TableDefinition) {
	if viewer.SettingsOwner() == "" {
		return
	}
	empty := Sort{}
	if _, err := s.settings.Save(ctx, viewer.SettingsOwner(), def.Name, SettingPatch{Sorting: &empty}); err != nil {
		s.logger.Warn().Err(err).Str("table", def.Name).Msg("listview: reset sort")
	}
}

// selectionFor returns the viewer's selection for a table. A non-nil filter
// state that differs from the one the selection was made under clears it.
func (s *Service) selectionFor(viewer ViewerContext, table string, filters FilterState) *SelectionSet {
	owner := viewer.SettingsOwner()
	if owner == "" {
		owner = "anonymous"
	}
	key := owner + "|" + table
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.selections[key]
	if !ok {
		entry = &selectionEntry{set: NewSelectionSet(), filters: filters.Clone()}
		s.selections[key] = entry
		return entry.set
	}
	if filters != nil && !entry.filters.Equal(filters) {
		entry.set.DeselectAll()
		entry.filters = filters.Clone()
	}
	return entry.set
}

func (s *Service) recordTelemetry(ctx context.Context, event string, payload map[string]any) {
	s.opts.Telemetry.Record(ctx, event, payload)
}

func resolveState(def TableDefinition, setting TableSetting, req ListRequest) ListState {
	state := ListState{
		Page:    req.Page,
		PerPage: req.PerPage,
		Query:   req.Query,
		Filters: req.Filters.Active(),
	}
	switch {
	case req.Sort != nil:
		state.Sort = req.Sort.Normalize()
	case !setting.Sorting.IsZero():
		state.Sort = setting.Sorting
	default:
		state.Sort = def.DefaultSort
	}
	if state.Page < 1 {
		state.Page = 1
	}
	if state.PerPage <= 0 {
		state.PerPage = setting.PerPage
	}
	if state.PerPage <= 0 {
		state.PerPage = def.DefaultPerPage
	}
	return state
}
