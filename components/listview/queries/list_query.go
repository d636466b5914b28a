package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	listview "github.com/goliatone/go-listview/components/listview"
)

// ListInput identifies a list request for a viewer.
type ListInput struct {
	Viewer  listview.ViewerContext
	Request listview.ListRequest
}

type listService interface {
	List(ctx context.Context, viewer listview.ViewerContext, req listview.ListRequest) (listview.View, error)
}

// ListQuery renders one page of a list view.
type ListQuery struct {
	service listService
}

// NewListQuery builds the query.
func NewListQuery(service listService) *ListQuery {
	return &ListQuery{service: service}
}

var _ gocommand.Querier[ListInput, listview.View] = (*ListQuery)(nil)

// Query resolves the view.
func (q *ListQuery) Query(ctx context.Context, input ListInput) (listview.View, error) {
	return q.service.List(ctx, input.Viewer, input.Request)
}

// TableInput identifies a table for a viewer.
type TableInput struct {
	Viewer listview.ViewerContext
	Table  string
}

type settingsService interface {
	Settings(ctx context.Context, viewer listview.ViewerContext, table string) (listview.TableSetting, error)
}

// SettingsQuery returns the persisted table setting.
type SettingsQuery struct {
	service settingsService
}

// NewSettingsQuery builds the query.
func NewSettingsQuery(service settingsService) *SettingsQuery {
	return &SettingsQuery{service: service}
}

var _ gocommand.Querier[TableInput, listview.TableSetting] = (*SettingsQuery)(nil)

// Query loads the setting.
func (q *SettingsQuery) Query(ctx context.Context, input TableInput) (listview.TableSetting, error) {
	return q.service.Settings(ctx, input.Viewer, input.Table)
}

type selectionService interface {
	Selection(viewer listview.ViewerContext, table string) (listview.Selection, error)
}

// SelectionQuery returns the viewer's selection.
type SelectionQuery struct {
	service selectionService
}

// NewSelectionQuery builds the query.
func NewSelectionQuery(service selectionService) *SelectionQuery {
	return &SelectionQuery{service: service}
}

var _ gocommand.Querier[TableInput, listview.Selection] = (*SelectionQuery)(nil)

// Query snapshots the selection.
func (q *SelectionQuery) Query(_ context.Context, input TableInput) (listview.Selection, error) {
	return q.service.Selection(input.Viewer, input.Table)
}
