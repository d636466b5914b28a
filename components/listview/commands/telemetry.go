package commands

import (
	"context"

	"github.com/goliatone/go-listview/components/listview"
)

// Telemetry is the sink commands report to.
type Telemetry = listview.Telemetry

type discardTelemetry struct{}

func (discardTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return discardTelemetry{}
	}
	return t
}

// settingFields starts a settings event payload keyed by table and owner.
func settingFields(viewer listview.ViewerContext, table string, extra map[string]any) map[string]any {
	fields := map[string]any{"table": table, "owner": viewer.SettingsOwner()}
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}
