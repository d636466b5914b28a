package listview

import (
	core "github.com/goliatone/go-listview/components/listview"
)

// Service exposes the underlying components/listview.Service type.
type Service = core.Service

// Options re-export for convenience.
type Options = core.Options

// ViewerContext identifies who is looking at a table.
type ViewerContext = core.ViewerContext

// TableDefinition re-export for menu and manifest tooling.
type TableDefinition = core.TableDefinition

// NewService proxies to the internal constructor.
func NewService(opts Options) *Service {
	return core.NewService(opts)
}

// DefaultLabel derives a display label from a snake or camel case id.
func DefaultLabel(id string) string {
	return core.DefaultLabel(id)
}
