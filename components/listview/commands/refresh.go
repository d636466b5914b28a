package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	listview "github.com/goliatone/go-listview/components/listview"
)

// RefreshListInput emits a refresh event for a table.
type RefreshListInput struct {
	Event listview.ListEvent
}

type refreshNotifier interface {
	NotifyListUpdated(ctx context.Context, event listview.ListEvent) error
}

// RefreshListCommand triggers refresh hooks so subscribed views reload.
type RefreshListCommand struct {
	service   refreshNotifier
	telemetry Telemetry
}

// NewRefreshListCommand creates the command.
func NewRefreshListCommand(service refreshNotifier, telemetry Telemetry) *RefreshListCommand {
	return &RefreshListCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RefreshListInput] = (*RefreshListCommand)(nil)

// Execute notifies the service refresh hooks.
func (c *RefreshListCommand) Execute(ctx context.Context, msg RefreshListInput) error {
	if c.service == nil {
		return errors.New("refresh command requires service")
	}
	if msg.Event.Table == "" {
		return errors.New("refresh command requires table")
	}
	if msg.Event.Reason == "" {
		msg.Event.Reason = "refresh"
	}
	if err := c.service.NotifyListUpdated(ctx, msg.Event); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "listview.refresh", map[string]any{
		"table":  msg.Event.Table,
		"reason": msg.Event.Reason,
	})
	return nil
}
