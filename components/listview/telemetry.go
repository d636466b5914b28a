package listview

import "context"

// Telemetry records list view events for observability.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}

type noopRefreshHook struct{}

func (noopRefreshHook) ListUpdated(context.Context, ListEvent) error { return nil }

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Notification) {}
