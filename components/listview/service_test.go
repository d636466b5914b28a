package listview

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTelemetry struct {
	events []string
}

func (s *stubTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	s.events = append(s.events, event)
}

type stubTranslator struct{}

func (stubTranslator) Translate(_ context.Context, key, locale string, _ map[string]any) (string, error) {
	if locale == "es" && key == "listview.bets.filters.status" {
		return "Estado", nil
	}
	return "", errors.New("missing translation")
}

func betsViewer() ViewerContext {
	return ViewerContext{UserID: "u1", Capabilities: []string{CapViewClients}}
}

func newTestService(source Source, opts Options) (*Service, *InMemorySettingsStore) {
	local := NewInMemorySettingsStore()
	opts.Source = source
	opts.LocalSettings = local
	return NewService(opts), local
}

func TestServiceListRendersView(t *testing.T) {
	source := &scriptedSource{fn: func(int, PageRequest) (PageResult, error) {
		return PageResult{Rows: []Row{{"id": "b1", "status": "2", "bet_type": "live", "stake": 5.5}}, TotalCount: 31}, nil
	}}
	telemetry := &stubTelemetry{}
	svc, _ := newTestService(source, Options{Telemetry: telemetry})

	view, err := svc.List(context.Background(), betsViewer(), ListRequest{
		Table:   "bets",
		Page:    2,
		Filters: FilterState{"status": {Text: "2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 31, view.TotalCount)
	assert.Equal(t, 2, view.Page)
	assert.Equal(t, 50, view.PerPage)
	require.Len(t, view.Chips, 1)
	assert.Equal(t, "Settled Win", view.Chips[0].DisplayValue)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "b1", view.Rows[0].ID)
	assert.Len(t, view.Rows[0].Cells, len(view.Headers))

	var risk bool
	for _, col := range view.Columns {
		if col.ID == "risk_score" {
			risk = true
		}
	}
	assert.False(t, risk, "capability gated column must be hidden")
	assert.Contains(t, telemetry.events, "listview.list")

	req := source.calls()[0]
	assert.Equal(t, "/bets", req.Resource)
	assert.Equal(t, 2, req.Page)
}

func TestServiceListUsesPersistedSettings(t *testing.T) {
	source := &scriptedSource{fn: func(int, PageRequest) (PageResult, error) { return PageResult{}, nil }}
	svc, _ := newTestService(source, Options{})
	ctx := context.Background()
	viewer := betsViewer()

	_, err := svc.SaveSorting(ctx, viewer, "bets", Sort{Field: "stake", Direction: SortAsc})
	require.NoError(t, err)
	_, err = svc.SavePerPage(ctx, viewer, "bets", 10)
	require.NoError(t, err)
	_, err = svc.SaveColumns(ctx, viewer, "bets", []ColumnRule{{ID: "stake", Enabled: true, Order: 0}, {ID: "id", Enabled: false, Order: 1}})
	require.NoError(t, err)

	view, err := svc.List(ctx, viewer, ListRequest{Table: "bets"})
	require.NoError(t, err)
	assert.Equal(t, Sort{Field: "stake", Direction: SortAsc}, view.Sort)
	assert.Equal(t, 10, view.PerPage)
	assert.Equal(t, "stake", view.Columns[0].ID)
	assert.Equal(t, "Stake", view.Headers[0])
	assert.False(t, view.Columns[1].Enabled)
	assert.Equal(t, "stake:asc", source.calls()[0].Sort.Param())
}

func TestServiceSaveColumnsSkipsUnchangedRule(t *testing.T) {
	svc, _ := newTestService(&scriptedSource{}, Options{})
	ctx := context.Background()
	rule := []ColumnRule{{ID: "stake", Enabled: true, Order: 0}}

	first, err := svc.SaveColumns(ctx, betsViewer(), "bets", rule)
	require.NoError(t, err)
	second, err := svc.SaveColumns(ctx, betsViewer(), "bets", rule)
	require.NoError(t, err)
	assert.Equal(t, first.Version, second.Version)
	assert.Len(t, first.Columns, len(VisibleColumns(betsTable(t).Columns, betsViewer())))
}

func TestServiceListWritesBackReconciledRule(t *testing.T) {
	source := &scriptedSource{fn: func(int, PageRequest) (PageResult, error) { return PageResult{}, nil }}
	svc, local := newTestService(source, Options{})
	ctx := context.Background()
	require.NoError(t, local.SaveSetting(ctx, "user:u1", TableSetting{
		Table:   "bets",
		Columns: []ColumnRule{{ID: "retired_column", Enabled: true, Order: 0}, {ID: "stake", Enabled: true, Order: 1}},
		Version: 4,
	}))

	_, err := svc.List(ctx, betsViewer(), ListRequest{Table: "bets"})
	require.NoError(t, err)
	stored, ok, err := local.LoadSetting(ctx, "user:u1", "bets")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(5), stored.Version)
	for _, r := range stored.Columns {
		assert.NotEqual(t, "retired_column", r.ID)
	}
	assert.Equal(t, "stake", stored.Columns[0].ID)
}

func TestServiceSharedOwnerKeepsGatedColumns(t *testing.T) {
	source := &scriptedSource{fn: func(int, PageRequest) (PageResult, error) { return PageResult{}, nil }}
	remote := NewInMemorySettingsStore()
	svc, _ := newTestService(source, Options{RemoteSettings: remote})
	ctx := context.Background()
	admin := ViewerContext{CompanyID: "acme", Capabilities: []string{"*"}}
	agent := ViewerContext{CompanyID: "acme", Capabilities: []string{CapViewClients}}
	require.Equal(t, admin.SettingsOwner(), agent.SettingsOwner())

	saved, err := svc.SaveColumns(ctx, admin, "bets", []ColumnRule{{ID: "risk_score", Enabled: true, Order: 0}})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.List(ctx, agent, ListRequest{Table: "bets"})
		require.NoError(t, err)
		view, err := svc.List(ctx, admin, ListRequest{Table: "bets"})
		require.NoError(t, err)
		require.Equal(t, "risk_score", view.Columns[0].ID)
		assert.True(t, view.Columns[0].Enabled)
		assert.Equal(t, 0, view.Columns[0].Order)
	}

	stored, ok, err := remote.LoadSetting(ctx, admin.SettingsOwner(), "bets")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, saved.Version, stored.Version)
	assert.True(t, rulesEqual(saved.Columns, stored.Columns))

	again, err := svc.SaveColumns(ctx, agent, "bets", []ColumnRule{{ID: "stake", Enabled: true, Order: 0}})
	require.NoError(t, err)
	var kept bool
	for _, r := range again.Columns {
		if r.ID == "risk_score" {
			kept = r.Enabled && r.Order == 0
		}
	}
	assert.True(t, kept, "agent save must keep the admin-only rule entry")
}

func TestServiceListServerErrorResetsPersistedSort(t *testing.T) {
	source := &scriptedSource{fn: func(int, PageRequest) (PageResult, error) {
		return PageResult{}, statusErr{status: 500, msg: "Internal Server Error"}
	}}
	notifier := &recordingNotifier{}
	svc, _ := newTestService(source, Options{Notifier: notifier})
	ctx := context.Background()
	_, err := svc.SaveSorting(ctx, betsViewer(), "bets", Sort{Field: "odds", Direction: SortDesc})
	require.NoError(t, err)

	_, err = svc.List(ctx, betsViewer(), ListRequest{Table: "bets"})
	require.Error(t, err)
	assert.True(t, IsServerError(err))

	setting, err := svc.Settings(ctx, betsViewer(), "bets")
	require.NoError(t, err)
	assert.True(t, setting.Sorting.IsZero())
	require.Len(t, notifier.all(), 1)
	assert.Equal(t, "Internal Server Error", notifier.all()[0].Message)
}

func TestServiceTableAccess(t *testing.T) {
	svc, _ := newTestService(&scriptedSource{}, Options{})
	ctx := context.Background()
	_, err := svc.List(ctx, betsViewer(), ListRequest{Table: "nope"})
	assert.ErrorIs(t, err, ErrUnknownTable)
	_, err = svc.List(ctx, betsViewer(), ListRequest{Table: "members"})
	assert.ErrorIs(t, err, ErrForbidden)

	names := map[string]bool{}
	for _, def := range svc.Tables(betsViewer()) {
		names[def.Name] = true
	}
	assert.True(t, names["bets"])
	assert.False(t, names["members"])
}

func TestServiceSelectionLifecycle(t *testing.T) {
	source := &scriptedSource{fn: func(int, PageRequest) (PageResult, error) {
		return PageResult{Rows: []Row{{"id": "b1"}, {"id": "b2"}}, TotalCount: 2}, nil
	}}
	svc, _ := newTestService(source, Options{})
	ctx := context.Background()
	viewer := betsViewer()

	_, err := svc.List(ctx, viewer, ListRequest{Table: "bets"})
	require.NoError(t, err)
	sel, err := svc.Select(ctx, viewer, "bets", ActionSelectPage, []string{"b1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, sel.Selected)

	view, err := svc.List(ctx, viewer, ListRequest{Table: "bets", Page: 2})
	require.NoError(t, err)
	assert.True(t, view.Rows[0].Selected, "selection survives page navigation")
	assert.False(t, view.Rows[1].Selected)

	view, err = svc.List(ctx, viewer, ListRequest{Table: "bets", Filters: FilterState{"status": {Text: "1"}}})
	require.NoError(t, err)
	assert.Empty(t, view.Selection.Selected, "filter change clears the selection")

	_, err = svc.Select(ctx, viewer, "bets", "invert", nil)
	assert.Error(t, err)
}

func TestServiceExportUsesSelectionAndExportRule(t *testing.T) {
	source := &scriptedSource{fn: func(int, PageRequest) (PageResult, error) {
		return PageResult{Rows: []Row{{"id": "b2", "stake": 3, "status": 1}}, TotalCount: 1}, nil
	}}
	svc, _ := newTestService(source, Options{Writer: &countingWriter{}})
	ctx := context.Background()
	viewer := betsViewer()

	_, err := svc.Select(ctx, viewer, "bets", ActionSelectPage, []string{"b2"})
	require.NoError(t, err)
	rule := []ColumnRule{{ID: "status", Enabled: true, Order: 0}, {ID: "stake", Enabled: true, Order: 1}}
	for _, col := range betsTable(t).Columns {
		if col.ID != "status" && col.ID != "stake" {
			rule = append(rule, ColumnRule{ID: col.ID, Enabled: false, Order: len(rule)})
		}
	}
	_, err = svc.SaveExportColumns(ctx, viewer, "bets", rule)
	require.NoError(t, err)

	result, err := svc.Export(ctx, viewer, ExportRequestOptions{Table: "bets"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Status", "Stake"}, result.Headers)
	assert.Equal(t, [][]string{{"Open", "3.00"}}, result.Records)
	assert.Equal(t, []string{"b2"}, source.calls()[0].IDs)

	_, err = svc.Select(ctx, viewer, "bets", ActionSelectAll, nil)
	require.NoError(t, err)
	_, err = svc.Export(ctx, viewer, ExportRequestOptions{Table: "bets"})
	require.NoError(t, err)
	assert.Nil(t, source.calls()[1].IDs)
}

func TestServiceTranslatesFilterLabels(t *testing.T) {
	source := &scriptedSource{fn: func(int, PageRequest) (PageResult, error) { return PageResult{}, nil }}
	svc, _ := newTestService(source, Options{Translator: stubTranslator{}})
	viewer := betsViewer()
	viewer.Locale = "es"
	view, err := svc.List(context.Background(), viewer, ListRequest{Table: "bets", Filters: FilterState{"status": {Text: "4"}, "bet_type": {Text: "live"}}})
	require.NoError(t, err)
	require.Len(t, view.Chips, 2)
	assert.Equal(t, "Bet Type", view.Chips[0].Label)
	assert.Equal(t, "Estado", view.Chips[1].Label)
	assert.Equal(t, "Void", view.Chips[1].DisplayValue)
}

func TestServiceRemoveChipResetsPage(t *testing.T) {
	svc, _ := newTestService(&scriptedSource{}, Options{})
	req := ListRequest{Table: "bets", Page: 4, Filters: FilterState{"status": {Text: "1"}}}
	next := svc.RemoveChip(req, Chip{Key: "status", Value: "1", Index: -1})
	assert.Equal(t, 1, next.Page)
	assert.Empty(t, next.Filters)
}

func TestServiceWatchBuildsPoller(t *testing.T) {
	source := &scriptedSource{fn: func(int, PageRequest) (PageResult, error) { return PageResult{}, nil }}
	sched := newManualScheduler()
	svc, _ := newTestService(source, Options{Scheduler: sched})
	poller, err := svc.Watch(context.Background(), betsViewer(), ListRequest{Table: "bets", PerPage: 20})
	require.NoError(t, err)
	require.NoError(t, poller.Start(context.Background()))
	defer poller.Stop()
	assert.Equal(t, 20, source.calls()[0].PerPage)
	assert.Equal(t, 1, sched.active())
}
