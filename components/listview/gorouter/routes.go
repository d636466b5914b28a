package gorouter

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	router "github.com/goliatone/go-router"

	"github.com/goliatone/go-listview/components/listview"
	"github.com/goliatone/go-listview/components/listview/commands"
	"github.com/goliatone/go-listview/components/listview/httpapi"
	"github.com/goliatone/go-listview/components/listview/queries"
)

// ViewerResolver converts a router.Context into a listview.ViewerContext.
type ViewerResolver func(router.Context) listview.ViewerContext

// Config wires go-router with the list view controller, the shared
// command/query handlers and the broadcast hook.
type Config[T any] struct {
	Router         router.Router[T]
	Controller     *listview.Controller
	API            *httpapi.Handlers
	Broadcast      *listview.BroadcastHook
	ViewerResolver ViewerResolver
	BasePath       string
	Routes         RouteConfig
}

// RouteConfig customizes the relative paths used for list endpoints.
type RouteConfig struct {
	Tables    string
	Rows      string
	Settings  string
	Columns   string
	Sorting   string
	Pinned    string
	PerPage   string
	Selection string
	Export    string
	Refresh   string
	WebSocket string
}

// Register mounts list view routes (JSON, REST, xlsx download, WebSocket) on
// a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Controller == nil {
		return errors.New("gorouter: controller is required")
	}
	if cfg.API == nil || cfg.API.Tables == nil {
		return errors.New("gorouter: api tables query is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/admin"
	}
	resolver := cfg.ViewerResolver
	if resolver == nil {
		resolver = defaultViewerResolver
	}

	group := cfg.Router.Group(base)
	api := cfg.API

	group.Get(routes.Tables, router.WrapHandler(func(ctx router.Context) error {
		tables, err := api.Tables.Query(ctx.Context(), resolver(ctx))
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, tables)
	}))

	group.Get(routes.Rows, router.WrapHandler(func(ctx router.Context) error {
		viewer := resolver(ctx)
		def, err := findTable(ctx, api, viewer)
		if err != nil {
			return respondError(ctx, err)
		}
		view, err := cfg.Controller.Render(ctx.Context(), viewer, listview.ParseListRequest(def, queryValues(ctx, def)))
		if err != nil {
			return respondError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, view)
	}))

	group.Get(routes.Export, router.WrapHandler(func(ctx router.Context) error {
		viewer := resolver(ctx)
		def, err := findTable(ctx, api, viewer)
		if err != nil {
			return respondError(ctx, err)
		}
		req := listview.ParseListRequest(def, queryValues(ctx, def))
		result, err := cfg.Controller.Download(ctx.Context(), viewer, listview.ExportRequestOptions{
			Table:   def.Name,
			Query:   req.Query,
			Filters: req.Filters,
			Sort:    req.Sort,
		})
		if err != nil {
			return respondError(ctx, err)
		}
		ctx.SetHeader("Content-Type", result.ContentType)
		ctx.SetHeader("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
		ctx.SetHeader("X-Export-ID", result.ID)
		return ctx.Send(result.Data)
	}))

	if api.Settings != nil {
		group.Get(routes.Settings, router.WrapHandler(func(ctx router.Context) error {
			setting, err := api.Settings.Query(ctx.Context(), queries.TableInput{Viewer: resolver(ctx), Table: ctx.Param("table")})
			if err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, setting)
		}))
	}

	registerCommands(group, api, resolver, routes)

	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast, routes.WebSocket)
	}
	return nil
}

func registerCommands[T any](r router.Router[T], api *httpapi.Handlers, resolver ViewerResolver, routes RouteConfig) {
	if api.SaveColumns != nil {
		r.Post(routes.Columns, router.WrapHandler(func(ctx router.Context) error {
			var payload commands.SaveColumnsInput
			if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
				return respondStatus(ctx, http.StatusBadRequest, err)
			}
			payload.Viewer, payload.Table = resolver(ctx), ctx.Param("table")
			if err := api.SaveColumns.Execute(ctx.Context(), payload); err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, map[string]string{"status": "saved"})
		}))
	}

	if api.SaveSorting != nil {
		r.Post(routes.Sorting, router.WrapHandler(func(ctx router.Context) error {
			var payload commands.SaveSortingInput
			if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
				return respondStatus(ctx, http.StatusBadRequest, err)
			}
			payload.Viewer, payload.Table = resolver(ctx), ctx.Param("table")
			if err := api.SaveSorting.Execute(ctx.Context(), payload); err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, map[string]string{"status": "saved"})
		}))
	}

	if api.SavePinned != nil {
		r.Post(routes.Pinned, router.WrapHandler(func(ctx router.Context) error {
			var payload commands.SavePinnedFieldsInput
			if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
				return respondStatus(ctx, http.StatusBadRequest, err)
			}
			payload.Viewer, payload.Table = resolver(ctx), ctx.Param("table")
			if err := api.SavePinned.Execute(ctx.Context(), payload); err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, map[string]string{"status": "saved"})
		}))
	}

	if api.SavePerPage != nil {
		r.Post(routes.PerPage, router.WrapHandler(func(ctx router.Context) error {
			var payload commands.SavePerPageInput
			if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
				return respondStatus(ctx, http.StatusBadRequest, err)
			}
			payload.Viewer, payload.Table = resolver(ctx), ctx.Param("table")
			if err := api.SavePerPage.Execute(ctx.Context(), payload); err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, map[string]string{"status": "saved"})
		}))
	}

	if api.Select != nil {
		r.Post(routes.Selection, router.WrapHandler(func(ctx router.Context) error {
			var payload commands.SelectRowsInput
			if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
				return respondStatus(ctx, http.StatusBadRequest, err)
			}
			payload.Viewer, payload.Table = resolver(ctx), ctx.Param("table")
			if err := api.Select.Execute(ctx.Context(), payload); err != nil {
				return respondError(ctx, err)
			}
			if api.Selection == nil {
				return ctx.JSON(http.StatusOK, map[string]string{"status": "applied"})
			}
			sel, err := api.Selection.Query(ctx.Context(), queries.TableInput{Viewer: payload.Viewer, Table: payload.Table})
			if err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusOK, sel)
		}))
	}

	if api.Refresh != nil {
		r.Post(routes.Refresh, router.WrapHandler(func(ctx router.Context) error {
			def, err := findTable(ctx, api, resolver(ctx))
			if err != nil {
				return respondError(ctx, err)
			}
			event := listview.ListEvent{Table: def.Name, Reason: "refresh"}
			if err := api.Refresh.Execute(ctx.Context(), commands.RefreshListInput{Event: event}); err != nil {
				return respondError(ctx, err)
			}
			return ctx.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
		}))
	}
}

func registerWebSocket[T any](r router.Router[T], hook *listview.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := hook.Subscribe("")
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func findTable(ctx router.Context, api *httpapi.Handlers, viewer listview.ViewerContext) (listview.TableDefinition, error) {
	name := ctx.Param("table")
	tables, err := api.Tables.Query(ctx.Context(), viewer)
	if err != nil {
		return listview.TableDefinition{}, err
	}
	for _, def := range tables {
		if def.Name == name {
			return def, nil
		}
	}
	return listview.TableDefinition{}, listview.ErrUnknownTable
}

// queryValues collects the query parameters a table understands. List
// filters arrive comma separated.
func queryValues(ctx router.Context, def listview.TableDefinition) url.Values {
	values := url.Values{}
	keys := []string{"page", "per_page", "q", "sorting"}
	for _, spec := range def.Filters {
		keys = append(keys, spec.Key, spec.Key+"_from", spec.Key+"_to")
	}
	for _, key := range keys {
		if v := ctx.Query(key); v != "" {
			values.Set(key, v)
		}
	}
	return values
}

func defaultViewerResolver(ctx router.Context) listview.ViewerContext {
	var viewer listview.ViewerContext
	if v, ok := ctx.Locals("user_id").(string); ok {
		viewer.UserID = v
	}
	if v, ok := ctx.Locals("company_id").(string); ok {
		viewer.CompanyID = v
	}
	if roles, ok := ctx.Locals("roles").([]string); ok {
		viewer.Roles = roles
	}
	if caps, ok := ctx.Locals("capabilities").([]string); ok {
		viewer.Capabilities = caps
	}
	if tz, ok := ctx.Locals("time_zone").(string); ok {
		viewer.TimeZone = tz
	}
	viewer.Locale = inferLocale(ctx)
	return viewer
}

func inferLocale(ctx router.Context) string {
	if locale, ok := ctx.Locals("locale").(string); ok && locale != "" {
		return locale
	}
	if locale := strings.TrimSpace(ctx.Query("locale")); locale != "" {
		return strings.ToLower(locale)
	}
	return parseAcceptLanguage(ctx.Header("Accept-Language"))
}

func parseAcceptLanguage(header string) string {
	for _, token := range strings.Split(header, ",") {
		token = strings.TrimSpace(token)
		if idx := strings.Index(token, ";"); idx >= 0 {
			token = token[:idx]
		}
		if token != "" {
			return strings.ToLower(token)
		}
	}
	return ""
}

func respondError(ctx router.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, listview.ErrUnknownTable):
		status = http.StatusNotFound
	case errors.Is(err, listview.ErrForbidden):
		status = http.StatusForbidden
	case listview.IsServerError(err):
		status = http.StatusBadGateway
	}
	return respondStatus(ctx, status, err)
}

func respondStatus(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]string{
		"error":   err.Error(),
		"message": listview.UserMessage(err),
	})
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.Tables == "" {
		routes.Tables = "/lists"
	}
	if routes.Rows == "" {
		routes.Rows = "/lists/:table"
	}
	if routes.Settings == "" {
		routes.Settings = "/lists/:table/settings"
	}
	if routes.Columns == "" {
		routes.Columns = "/lists/:table/columns"
	}
	if routes.Sorting == "" {
		routes.Sorting = "/lists/:table/sorting"
	}
	if routes.Pinned == "" {
		routes.Pinned = "/lists/:table/pinned"
	}
	if routes.PerPage == "" {
		routes.PerPage = "/lists/:table/per-page"
	}
	if routes.Selection == "" {
		routes.Selection = "/lists/:table/selection"
	}
	if routes.Export == "" {
		routes.Export = "/lists/:table/export"
	}
	if routes.Refresh == "" {
		routes.Refresh = "/lists/:table/refresh"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/lists/ws"
	}
	return routes
}
