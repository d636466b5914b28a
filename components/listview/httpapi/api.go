package httpapi

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-listview/components/listview"
	"github.com/goliatone/go-listview/components/listview/commands"
	"github.com/goliatone/go-listview/components/listview/queries"
)

// ViewerResolver extracts the viewer from a request.
type ViewerResolver func(r *http.Request) (listview.ViewerContext, error)

// Handlers exposes HTTP endpoints backed by shared commands and queries.
type Handlers struct {
	Viewer ViewerResolver

	Tables    gocommand.Querier[listview.ViewerContext, []listview.TableDefinition]
	List      gocommand.Querier[queries.ListInput, listview.View]
	Settings  gocommand.Querier[queries.TableInput, listview.TableSetting]
	Selection gocommand.Querier[queries.TableInput, listview.Selection]
	Export    gocommand.Querier[queries.ExportInput, listview.ExportResult]

	SaveColumns gocommand.Commander[commands.SaveColumnsInput]
	SaveSorting gocommand.Commander[commands.SaveSortingInput]
	SavePinned  gocommand.Commander[commands.SavePinnedFieldsInput]
	SavePerPage gocommand.Commander[commands.SavePerPageInput]
	Select      gocommand.Commander[commands.SelectRowsInput]
	Refresh     gocommand.Commander[commands.RefreshListInput]
}

// ViewerFromHeaders reads the viewer from X-User-ID, X-Company-ID,
// X-Capabilities (comma separated), X-Locale and X-Timezone.
func ViewerFromHeaders(r *http.Request) (listview.ViewerContext, error) {
	viewer := listview.ViewerContext{
		UserID:    r.Header.Get("X-User-ID"),
		CompanyID: r.Header.Get("X-Company-ID"),
		Locale:    r.Header.Get("X-Locale"),
		TimeZone:  r.Header.Get("X-Timezone"),
	}
	for _, c := range strings.Split(r.Header.Get("X-Capabilities"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			viewer.Capabilities = append(viewer.Capabilities, c)
		}
	}
	if viewer.UserID == "" && viewer.CompanyID == "" {
		return viewer, errors.New("missing viewer identity")
	}
	return viewer, nil
}

func (h *Handlers) viewer(r *http.Request) (listview.ViewerContext, error) {
	if h.Viewer == nil {
		return ViewerFromHeaders(r)
	}
	return h.Viewer(r)
}

// HandleTables lists the tables visible to the viewer.
func (h *Handlers) HandleTables(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.viewer(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	tables, err := h.Tables.Query(r.Context(), viewer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

// HandleList renders one page of a table.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request, table string) {
	viewer, def, ok := h.resolveTable(w, r, table)
	if !ok {
		return
	}
	view, err := h.List.Query(r.Context(), queries.ListInput{
		Viewer:  viewer,
		Request: listview.ParseListRequest(def, r.URL.Query()),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleSettings returns the persisted setting for a table.
func (h *Handlers) HandleSettings(w http.ResponseWriter, r *http.Request, table string) {
	viewer, err := h.viewer(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	setting, err := h.Settings.Query(r.Context(), queries.TableInput{Viewer: viewer, Table: table})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

// HandleSaveColumns stores a list or export column rule.
func (h *Handlers) HandleSaveColumns(w http.ResponseWriter, r *http.Request, table string) {
	var payload commands.SaveColumnsInput
	if !h.decode(w, r, &payload, &payload.Viewer) {
		return
	}
	payload.Table = table
	h.execute(w, r, h.SaveColumns.Execute(r.Context(), payload), http.StatusNoContent)
}

// HandleSaveSorting stores the active sort.
func (h *Handlers) HandleSaveSorting(w http.ResponseWriter, r *http.Request, table string) {
	var payload commands.SaveSortingInput
	if !h.decode(w, r, &payload, &payload.Viewer) {
		return
	}
	payload.Table = table
	h.execute(w, r, h.SaveSorting.Execute(r.Context(), payload), http.StatusNoContent)
}

// HandleSavePinned stores pinned fields.
func (h *Handlers) HandleSavePinned(w http.ResponseWriter, r *http.Request, table string) {
	var payload commands.SavePinnedFieldsInput
	if !h.decode(w, r, &payload, &payload.Viewer) {
		return
	}
	payload.Table = table
	h.execute(w, r, h.SavePinned.Execute(r.Context(), payload), http.StatusNoContent)
}

// HandleSavePerPage stores the page size.
func (h *Handlers) HandleSavePerPage(w http.ResponseWriter, r *http.Request, table string) {
	var payload commands.SavePerPageInput
	if !h.decode(w, r, &payload, &payload.Viewer) {
		return
	}
	payload.Table = table
	h.execute(w, r, h.SavePerPage.Execute(r.Context(), payload), http.StatusNoContent)
}

// HandleSelection returns the current selection.
func (h *Handlers) HandleSelection(w http.ResponseWriter, r *http.Request, table string) {
	viewer, err := h.viewer(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	sel, err := h.Selection.Query(r.Context(), queries.TableInput{Viewer: viewer, Table: table})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// HandleSelect applies a selection action and answers with the new selection.
func (h *Handlers) HandleSelect(w http.ResponseWriter, r *http.Request, table string) {
	var payload commands.SelectRowsInput
	if !h.decode(w, r, &payload, &payload.Viewer) {
		return
	}
	payload.Table = table
	if err := h.Select.Execute(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	if h.Selection == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.HandleSelection(w, r, table)
}

// HandleExport streams the workbook as an attachment.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request, table string) {
	viewer, def, ok := h.resolveTable(w, r, table)
	if !ok {
		return
	}
	req := listview.ParseListRequest(def, r.URL.Query())
	result, err := h.Export.Query(r.Context(), queries.ExportInput{
		Viewer: viewer,
		Options: listview.ExportRequestOptions{
			Table:   def.Name,
			Query:   req.Query,
			Filters: req.Filters,
			Sort:    req.Sort,
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.FileName}))
	w.Header().Set("X-Export-ID", result.ID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

// HandleRefresh broadcasts a refresh event for a table the viewer can see.
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request, table string) {
	_, def, ok := h.resolveTable(w, r, table)
	if !ok {
		return
	}
	event := listview.ListEvent{Table: def.Name, Reason: "refresh"}
	h.execute(w, r, h.Refresh.Execute(r.Context(), commands.RefreshListInput{Event: event}), http.StatusAccepted)
}

func (h *Handlers) resolveTable(w http.ResponseWriter, r *http.Request, table string) (listview.ViewerContext, listview.TableDefinition, bool) {
	viewer, err := h.viewer(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return viewer, listview.TableDefinition{}, false
	}
	tables, err := h.Tables.Query(r.Context(), viewer)
	if err != nil {
		writeError(w, err)
		return viewer, listview.TableDefinition{}, false
	}
	for _, def := range tables {
		if def.Name == table {
			return viewer, def, true
		}
	}
	http.Error(w, "table not found", http.StatusNotFound)
	return viewer, listview.TableDefinition{}, false
}

// decode reads the JSON body and overrides the payload viewer with the
// request viewer.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, payload any, viewer *listview.ViewerContext) bool {
	resolved, err := h.viewer(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	*viewer = resolved
	return true
}

func (h *Handlers) execute(w http.ResponseWriter, _ *http.Request, err error, status int) {
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, listview.ErrUnknownTable):
		status = http.StatusNotFound
	case errors.Is(err, listview.ErrForbidden):
		status = http.StatusForbidden
	case listview.IsServerError(err):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{
		"error":   err.Error(),
		"message": listview.UserMessage(err),
	})
}
