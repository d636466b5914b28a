package goadmin_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-listview/pkg/goadmin"
	listviewpkg "github.com/goliatone/go-listview/pkg/listview"
)

type stubMenuBuilder struct {
	items []goadmin.MenuItem
	err   error
}

func (s *stubMenuBuilder) EnsureMenuItem(_ context.Context, _ string, item goadmin.MenuItem) error {
	if s.err != nil {
		return s.err
	}
	s.items = append(s.items, item)
	return nil
}

func TestAdminBootstrapSeedsOneItemPerVisibleTable(t *testing.T) {
	builder := &stubMenuBuilder{}
	service := listviewpkg.NewService(listviewpkg.Options{})
	admin, err := goadmin.New(goadmin.Config{
		EnableListViews: true,
		Service:         service,
		MenuBuilder:     builder,
		Viewer:          listviewpkg.ViewerContext{UserID: "u1", Capabilities: []string{"*"}},
		Icons:           map[string]string{"bets": "ticket"},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := admin.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap returned error: %v", err)
	}
	tables := service.Tables(listviewpkg.ViewerContext{Capabilities: []string{"*"}})
	if len(builder.items) != len(tables) || len(tables) == 0 {
		t.Fatalf("expected %d menu items, got %d", len(tables), len(builder.items))
	}
	for idx, item := range builder.items {
		if item.Position != idx {
			t.Fatalf("item %s has position %d, want %d", item.Route, item.Position, idx)
		}
		if item.Route == "admin.lists.bets" && item.Icon != "ticket" {
			t.Fatalf("expected bets icon override, got %s", item.Icon)
		}
		if item.Route == "admin.lists.ip_addresses" && item.Label != "IP Addresses" {
			t.Fatalf("unexpected label %q", item.Label)
		}
	}
	if admin.ListViews() == nil {
		t.Fatalf("expected list view service")
	}
}

func TestAdminBootstrapHidesGatedTables(t *testing.T) {
	builder := &stubMenuBuilder{}
	service := listviewpkg.NewService(listviewpkg.Options{})
	admin, err := goadmin.New(goadmin.Config{
		EnableListViews: true,
		Service:         service,
		MenuBuilder:     builder,
		Viewer:          listviewpkg.ViewerContext{UserID: "u1"},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	all := len(service.Tables(listviewpkg.ViewerContext{Capabilities: []string{"*"}}))
	if got := len(admin.MenuItems()); got >= all {
		t.Fatalf("expected capability gated tables to be hidden, got %d of %d", got, all)
	}
}

func TestAdminBootstrapWrapsBuilderErrors(t *testing.T) {
	boom := errors.New("boom")
	admin, err := goadmin.New(goadmin.Config{
		EnableListViews: true,
		Service:         listviewpkg.NewService(listviewpkg.Options{}),
		MenuBuilder:     &stubMenuBuilder{err: boom},
		Viewer:          listviewpkg.ViewerContext{Capabilities: []string{"*"}},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := admin.Bootstrap(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped builder error, got %v", err)
	}
}

func TestAdminDisabledSkipsBootstrap(t *testing.T) {
	builder := &stubMenuBuilder{}
	admin, err := goadmin.New(goadmin.Config{
		EnableListViews: false,
		MenuBuilder:     builder,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := admin.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap returned error: %v", err)
	}
	if len(builder.items) != 0 {
		t.Fatalf("expected 0 calls, got %d", len(builder.items))
	}
	if admin.ListViews() != nil {
		t.Fatalf("expected nil service when disabled")
	}
}

func TestAdminRequiresServiceWhenEnabled(t *testing.T) {
	if _, err := goadmin.New(goadmin.Config{EnableListViews: true}); err == nil {
		t.Fatalf("expected error without service")
	}
}
