package listview

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// BroadcastHook fans out list events and notifications to in-process
// subscribers. It satisfies both RefreshHook and Notifier.
type BroadcastHook struct {
	mu   sync.RWMutex
	subs map[int]subscriber
	next int
}

type subscriber struct {
	table string
	ch    chan ListEvent
}

// NewBroadcastHook creates a broadcast hook.
func NewBroadcastHook() *BroadcastHook {
	return &BroadcastHook{subs: make(map[int]subscriber)}
}

// ListUpdated broadcasts an event. Slow subscribers miss events rather than
// blocking the publisher.
func (h *BroadcastHook) ListUpdated(_ context.Context, event ListEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.table != "" && event.Table != "" && sub.table != event.Table {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

// Notify broadcasts a notification as a list event.
func (h *BroadcastHook) Notify(ctx context.Context, n Notification) {
	_ = h.ListUpdated(ctx, ListEvent{Table: n.Table, Reason: "notification", Notification: &n})
}

// Subscribe returns a channel of events for a table (all tables when empty)
// and a cancel func.
func (h *BroadcastHook) Subscribe(table string) (<-chan ListEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan ListEvent, 16)
	h.subs[id] = subscriber{table: table, ch: ch}
	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub.ch)
		}
	}
	return ch, cancel
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the request and streams list events as JSON. The
// optional `table` query parameter narrows the stream.
func (h *BroadcastHook) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancel := h.Subscribe(r.URL.Query().Get("table"))
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

// ServeSSE provides a Server-Sent Events endpoint for list events.
func (h *BroadcastHook) ServeSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	events, cancel := h.Subscribe(r.URL.Query().Get("table"))
	defer cancel()

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if _, err := w.Write(append(append([]byte("event: list\ndata: "), payload...), '\n', '\n')); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
