package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	listview "github.com/goliatone/go-listview/components/listview"
)

var errMissingService = errors.New("settings command requires service")

// SaveColumnsInput carries a column rule edited in the column settings modal.
type SaveColumnsInput struct {
	Viewer  listview.ViewerContext `json:"viewer"`
	Table   string                 `json:"table"`
	Columns []listview.ColumnRule  `json:"columns"`
	Export  bool                   `json:"export,omitempty"`
}

type columnService interface {
	SaveColumns(ctx context.Context, viewer listview.ViewerContext, table string, rule []listview.ColumnRule) (listview.TableSetting, error)
	SaveExportColumns(ctx context.Context, viewer listview.ViewerContext, table string, rule []listview.ColumnRule) (listview.TableSetting, error)
}

// SaveColumnsCommand persists list or export column rules.
type SaveColumnsCommand struct {
	service   columnService
	telemetry Telemetry
}

// NewSaveColumnsCommand creates the command.
func NewSaveColumnsCommand(service columnService, telemetry Telemetry) *SaveColumnsCommand {
	return &SaveColumnsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SaveColumnsInput] = (*SaveColumnsCommand)(nil)

// Execute stores the rule. Export rules are stored separately from the list
// rule.
func (c *SaveColumnsCommand) Execute(ctx context.Context, msg SaveColumnsInput) error {
	if c.service == nil {
		return errMissingService
	}
	if msg.Table == "" {
		return errors.New("columns command requires table")
	}
	save := c.service.SaveColumns
	event := "listview.columns.save"
	if msg.Export {
		save = c.service.SaveExportColumns
		event = "listview.export_columns.save"
	}
	if _, err := save(ctx, msg.Viewer, msg.Table, msg.Columns); err != nil {
		return err
	}
	c.telemetry.Record(ctx, event, settingFields(msg.Viewer, msg.Table, map[string]any{
		"columns": len(msg.Columns),
	}))
	return nil
}

// SaveSortingInput carries the active sort.
type SaveSortingInput struct {
	Viewer  listview.ViewerContext `json:"viewer"`
	Table   string                 `json:"table"`
	Sorting listview.Sort          `json:"sorting"`
}

type sortingService interface {
	SaveSorting(ctx context.Context, viewer listview.ViewerContext, table string, sort listview.Sort) (listview.TableSetting, error)
}

// SaveSortingCommand persists the viewer's sort.
type SaveSortingCommand struct {
	service   sortingService
	telemetry Telemetry
}

// NewSaveSortingCommand creates the command.
func NewSaveSortingCommand(service sortingService, telemetry Telemetry) *SaveSortingCommand {
	return &SaveSortingCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SaveSortingInput] = (*SaveSortingCommand)(nil)

// Execute stores the sort; an empty field clears it.
func (c *SaveSortingCommand) Execute(ctx context.Context, msg SaveSortingInput) error {
	if c.service == nil {
		return errMissingService
	}
	if _, err := c.service.SaveSorting(ctx, msg.Viewer, msg.Table, msg.Sorting); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "listview.sorting.save", settingFields(msg.Viewer, msg.Table, map[string]any{
		"sorting": msg.Sorting.Param(),
	}))
	return nil
}

// SavePinnedFieldsInput carries pinned column ids.
type SavePinnedFieldsInput struct {
	Viewer listview.ViewerContext `json:"viewer"`
	Table  string                 `json:"table"`
	Fields []string               `json:"fields"`
}

type pinnedService interface {
	SavePinnedFields(ctx context.Context, viewer listview.ViewerContext, table string, fields []string) (listview.TableSetting, error)
}

// SavePinnedFieldsCommand persists pinned columns.
type SavePinnedFieldsCommand struct {
	service   pinnedService
	telemetry Telemetry
}

// NewSavePinnedFieldsCommand creates the command.
func NewSavePinnedFieldsCommand(service pinnedService, telemetry Telemetry) *SavePinnedFieldsCommand {
	return &SavePinnedFieldsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SavePinnedFieldsInput] = (*SavePinnedFieldsCommand)(nil)

// Execute stores the pinned fields.
func (c *SavePinnedFieldsCommand) Execute(ctx context.Context, msg SavePinnedFieldsInput) error {
	if c.service == nil {
		return errMissingService
	}
	if _, err := c.service.SavePinnedFields(ctx, msg.Viewer, msg.Table, msg.Fields); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "listview.pinned.save", settingFields(msg.Viewer, msg.Table, map[string]any{
		"pinned": len(msg.Fields),
	}))
	return nil
}

// SavePerPageInput carries the page size.
type SavePerPageInput struct {
	Viewer  listview.ViewerContext `json:"viewer"`
	Table   string                 `json:"table"`
	PerPage int                    `json:"per_page"`
}

type perPageService interface {
	SavePerPage(ctx context.Context, viewer listview.ViewerContext, table string, perPage int) (listview.TableSetting, error)
}

// SavePerPageCommand persists the viewer's page size.
type SavePerPageCommand struct {
	service   perPageService
	telemetry Telemetry
}

// NewSavePerPageCommand creates the command.
func NewSavePerPageCommand(service perPageService, telemetry Telemetry) *SavePerPageCommand {
	return &SavePerPageCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SavePerPageInput] = (*SavePerPageCommand)(nil)

// Execute stores the page size.
func (c *SavePerPageCommand) Execute(ctx context.Context, msg SavePerPageInput) error {
	if c.service == nil {
		return errMissingService
	}
	if msg.PerPage <= 0 {
		return errors.New("per page command requires a positive page size")
	}
	if _, err := c.service.SavePerPage(ctx, msg.Viewer, msg.Table, msg.PerPage); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "listview.per_page.save", settingFields(msg.Viewer, msg.Table, map[string]any{
		"per_page": msg.PerPage,
	}))
	return nil
}
