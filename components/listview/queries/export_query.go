package queries

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	listview "github.com/goliatone/go-listview/components/listview"
)

// ExportInput requests a workbook for the viewer.
type ExportInput struct {
	Viewer  listview.ViewerContext
	Options listview.ExportRequestOptions
}

type exportService interface {
	Export(ctx context.Context, viewer listview.ViewerContext, req listview.ExportRequestOptions) (listview.ExportResult, error)
}

// ExportQuery produces an export. It returns the workbook bytes, so it is a
// query rather than a fire-and-forget command.
type ExportQuery struct {
	service exportService
}

// NewExportQuery builds the query.
func NewExportQuery(service exportService) *ExportQuery {
	return &ExportQuery{service: service}
}

var _ gocommand.Querier[ExportInput, listview.ExportResult] = (*ExportQuery)(nil)

// Query runs the export.
func (q *ExportQuery) Query(ctx context.Context, input ExportInput) (listview.ExportResult, error) {
	if input.Options.Table == "" {
		return listview.ExportResult{}, errors.New("export query requires table")
	}
	return q.service.Export(ctx, input.Viewer, input.Options)
}

type tablesService interface {
	Tables(viewer listview.ViewerContext) []listview.TableDefinition
}

// TablesQuery lists the tables a viewer may open.
type TablesQuery struct {
	service tablesService
}

// NewTablesQuery builds the query.
func NewTablesQuery(service tablesService) *TablesQuery {
	return &TablesQuery{service: service}
}

var _ gocommand.Querier[listview.ViewerContext, []listview.TableDefinition] = (*TablesQuery)(nil)

// Query lists visible tables.
func (q *TablesQuery) Query(_ context.Context, viewer listview.ViewerContext) ([]listview.TableDefinition, error) {
	return q.service.Tables(viewer), nil
}
