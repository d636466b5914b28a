package gorouter

import (
	"testing"

	"github.com/goliatone/go-listview/components/listview"
	"github.com/goliatone/go-listview/components/listview/httpapi"
)

func TestRegisterValidatesConfig(t *testing.T) {
	err := Register(Config[struct{}]{})
	if err == nil {
		t.Fatalf("expected error when router/controller missing")
	}
}

func TestRegisterRequiresTablesQuery(t *testing.T) {
	svc := listview.NewService(listview.Options{})
	err := Register(Config[struct{}]{
		Controller: listview.NewController(svc),
		API:        &httpapi.Handlers{},
	})
	if err == nil {
		t.Fatalf("expected error without router")
	}
}

func TestParseAcceptLanguage(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"es-ES,es;q=0.9": "es-es",
		" en;q=0.8, fr":  "en",
		"PT-br;q=1":      "pt-br",
	}
	for header, want := range cases {
		if got := parseAcceptLanguage(header); got != want {
			t.Fatalf("parseAcceptLanguage(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestDefaultRouteConfigKeepsOverrides(t *testing.T) {
	routes := defaultRouteConfig(RouteConfig{Rows: "/tables/:table/rows"})
	if routes.Rows != "/tables/:table/rows" {
		t.Fatalf("override lost: %q", routes.Rows)
	}
	if routes.Export != "/lists/:table/export" {
		t.Fatalf("unexpected export path %q", routes.Export)
	}
	if routes.WebSocket != "/lists/ws" {
		t.Fatalf("unexpected websocket path %q", routes.WebSocket)
	}
}
