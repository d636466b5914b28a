package goadmin

import (
	"context"
	"errors"
	"fmt"

	listviewpkg "github.com/goliatone/go-listview/pkg/listview"
)

// MenuBuilder ensures list view entries exist within the admin navigation.
type MenuBuilder interface {
	EnsureMenuItem(ctx context.Context, menuCode string, item MenuItem) error
}

// MenuItem captures list view link metadata.
type MenuItem struct {
	Label    string
	Route    string
	Icon     string
	Position int
}

// Config wires the list view service into an admin shell.
type Config struct {
	EnableListViews bool
	MenuCode        string
	MenuBuilder     MenuBuilder
	Service         *listviewpkg.Service
	// Viewer decides which tables get a menu entry.
	Viewer listviewpkg.ViewerContext
	// RoutePrefix is joined with the table name, e.g. admin.lists.bets.
	RoutePrefix string
	Icon        string
	// Icons overrides the icon per table name.
	Icons map[string]string
}

// Admin exposes helpers for go-admin style applications.
type Admin struct {
	cfg Config
}

// New creates an Admin helper that can seed list view menus.
func New(cfg Config) (*Admin, error) {
	if cfg.EnableListViews && cfg.Service == nil {
		return nil, errors.New("goadmin: list view service is required when enabled")
	}
	if cfg.MenuCode == "" {
		cfg.MenuCode = "admin.main"
	}
	if cfg.RoutePrefix == "" {
		cfg.RoutePrefix = "admin.lists"
	}
	if cfg.Icon == "" {
		cfg.Icon = "table"
	}
	return &Admin{cfg: cfg}, nil
}

// ListViews exposes the configured service when enabled.
func (a *Admin) ListViews() *listviewpkg.Service {
	if !a.cfg.EnableListViews {
		return nil
	}
	return a.cfg.Service
}

// MenuItems returns one entry per table the configured viewer may open,
// in table name order.
func (a *Admin) MenuItems() []MenuItem {
	if !a.cfg.EnableListViews {
		return nil
	}
	tables := a.cfg.Service.Tables(a.cfg.Viewer)
	items := make([]MenuItem, 0, len(tables))
	for idx, def := range tables {
		icon := a.cfg.Icon
		if custom, ok := a.cfg.Icons[def.Name]; ok {
			icon = custom
		}
		items = append(items, MenuItem{
			Label:    listviewpkg.DefaultLabel(def.Name),
			Route:    fmt.Sprintf("%s.%s", a.cfg.RoutePrefix, def.Name),
			Icon:     icon,
			Position: idx,
		})
	}
	return items
}

// Bootstrap seeds menu entries when list view support is enabled.
func (a *Admin) Bootstrap(ctx context.Context) error {
	if !a.cfg.EnableListViews || a.cfg.MenuBuilder == nil {
		return nil
	}
	for _, item := range a.MenuItems() {
		if err := a.cfg.MenuBuilder.EnsureMenuItem(ctx, a.cfg.MenuCode, item); err != nil {
			return fmt.Errorf("goadmin: seed %s: %w", item.Route, err)
		}
	}
	return nil
}
