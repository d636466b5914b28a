package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	listview "github.com/goliatone/go-listview/components/listview"
)

// SelectRowsInput applies a selection action to the viewer's selection.
type SelectRowsInput struct {
	Viewer listview.ViewerContext   `json:"viewer"`
	Table  string                   `json:"table"`
	Action listview.SelectionAction `json:"action"`
	IDs    []string                 `json:"ids,omitempty"`
}

type selectionService interface {
	Select(ctx context.Context, viewer listview.ViewerContext, table string, action listview.SelectionAction, ids []string) (listview.Selection, error)
}

// SelectRowsCommand wraps Service.Select.
type SelectRowsCommand struct {
	service   selectionService
	telemetry Telemetry
}

// NewSelectRowsCommand creates the command.
func NewSelectRowsCommand(service selectionService, telemetry Telemetry) *SelectRowsCommand {
	return &SelectRowsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SelectRowsInput] = (*SelectRowsCommand)(nil)

// Execute applies the action.
func (c *SelectRowsCommand) Execute(ctx context.Context, msg SelectRowsInput) error {
	if c.service == nil {
		return errors.New("selection command requires service")
	}
	if msg.Action == "" {
		return errors.New("selection command requires action")
	}
	sel, err := c.service.Select(ctx, msg.Viewer, msg.Table, msg.Action, msg.IDs)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "listview.selection.apply", map[string]any{
		"table":      msg.Table,
		"action":     string(msg.Action),
		"selected":   len(sel.Selected),
		"select_all": sel.SelectAll,
	})
	return nil
}
