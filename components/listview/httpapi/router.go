package httpapi

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// Streamer serves live list events.
type Streamer interface {
	ServeWebSocket(w http.ResponseWriter, r *http.Request)
	ServeSSE(w http.ResponseWriter, r *http.Request)
}

// RouterOptions tunes NewRouter.
type RouterOptions struct {
	Prefix         string
	AllowedOrigins []string
	Events         Streamer
}

// NewRouter mounts the handlers on a gorilla/mux router wrapped with panic
// recovery and CORS.
func NewRouter(h *Handlers, opts RouterOptions) http.Handler {
	root := mux.NewRouter()
	r := root
	if opts.Prefix != "" {
		r = root.PathPrefix(opts.Prefix).Subrouter()
	}
	table := func(fn func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			fn(w, req, mux.Vars(req)["table"])
		}
	}

	r.HandleFunc("/tables", h.HandleTables).Methods(http.MethodGet)
	r.HandleFunc("/tables/{table}/rows", table(h.HandleList)).Methods(http.MethodGet)
	r.HandleFunc("/tables/{table}/settings", table(h.HandleSettings)).Methods(http.MethodGet)
	r.HandleFunc("/tables/{table}/columns", table(h.HandleSaveColumns)).Methods(http.MethodPut)
	r.HandleFunc("/tables/{table}/sorting", table(h.HandleSaveSorting)).Methods(http.MethodPut)
	r.HandleFunc("/tables/{table}/pinned", table(h.HandleSavePinned)).Methods(http.MethodPut)
	r.HandleFunc("/tables/{table}/per-page", table(h.HandleSavePerPage)).Methods(http.MethodPut)
	r.HandleFunc("/tables/{table}/selection", table(h.HandleSelection)).Methods(http.MethodGet)
	r.HandleFunc("/tables/{table}/selection", table(h.HandleSelect)).Methods(http.MethodPost)
	r.HandleFunc("/tables/{table}/export", table(h.HandleExport)).Methods(http.MethodGet)
	r.HandleFunc("/tables/{table}/refresh", table(h.HandleRefresh)).Methods(http.MethodPost)
	if opts.Events != nil {
		r.HandleFunc("/events/ws", opts.Events.ServeWebSocket).Methods(http.MethodGet)
		r.HandleFunc("/events/sse", opts.Events.ServeSSE).Methods(http.MethodGet)
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-User-ID", "X-Company-ID", "X-Capabilities", "X-Locale", "X-Timezone"}),
		handlers.ExposedHeaders([]string{"Content-Disposition", "X-Export-ID"}),
	)
	return handlers.RecoveryHandler()(cors(root))
}
