// Package livereload pushes artifact updates to connected browsers over
// server-sent events.
package livereload

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
)

// Message types.
const (
	TypeReload = "reload"
	TypeCSS    = "css"
)

// Message is one live-reload notification.
type Message struct {
	Type string `json:"type"`
	Path string `json:"path,omitempty"`
}

// PingInterval is the SSE keep-alive comment interval.
const PingInterval = 30 * time.Second

// Hub manages SSE clients. Messages go to currently connected clients only;
// nothing is queued for clients that connect later.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client
	closed   bool
	recorder metrics.Recorder
	logger   *slog.Logger
}

type client struct {
	id   string
	ch   chan Message
	done chan struct{}
}

// NewHub creates an empty hub.
func NewHub(recorder metrics.Recorder, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:  map[string]*client{},
		recorder: metrics.OrNoop(recorder),
		logger:   logger.With(slog.String("component", "livereload")),
	}
}

// ServeHTTP implements the SSE endpoint at /livereload.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	c := &client{id: uuid.NewString(), ch: make(chan Message, 8), done: make(chan struct{})}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.recorder.SetLiveReloadClients(n)
	defer h.removeClient(c.id)

	log := h.logger.With(logfields.ClientID(c.id))
	log.Debug("Client connected", logfields.RemoteAddr(r.RemoteAddr))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	bw := bufio.NewWriter(w)
	write := func(s string) bool {
		if _, err := bw.WriteString(s); err != nil {
			log.Debug("livereload write", logfields.Error(err))
			return false
		}
		if err := bw.Flush(); err != nil {
			log.Debug("livereload flush", logfields.Error(err))
			return false
		}
		flusher.Flush()
		return true
	}

	if !write(": connected\n\n") {
		return
	}

	hb := time.NewTicker(PingInterval)
	defer hb.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("Client disconnected")
			return
		case <-c.done:
			return
		case <-hb.C:
			if !write(": ping\n\n") {
				return
			}
		case msg := <-c.ch:
			data, err := json.Marshal(msg)
			if err != nil {
				log.Warn("livereload encode", logfields.Error(err))
				continue
			}
			if !write("data: " + string(data) + "\n\n") {
				return
			}
		}
	}
}

func (h *Hub) removeClient(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(c.done)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.recorder.SetLiveReloadClients(n)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every connected client and returns how many
// accepted it. Clients whose buffers are full are dropped.
func (h *Hub) Broadcast(msg Message) int {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return 0
	}
	snapshot := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	sent, dropped := 0, 0
	for _, c := range snapshot {
		select {
		case c.ch <- msg:
			sent++
		case <-c.done:
		default:
			dropped++
			h.recorder.IncLiveReloadDropped()
			h.removeClient(c.id)
		}
	}
	h.recorder.IncLiveReloadBroadcast(msg.Type)
	h.logger.Debug("livereload broadcast",
		logfields.Message(msg.Type),
		logfields.Path(msg.Path),
		slog.Int("clients", sent),
		slog.Int("dropped", dropped))
	return sent
}

// Shutdown disconnects all clients and rejects new ones.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[string]*client{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
	}
	h.recorder.SetLiveReloadClients(0)
}
