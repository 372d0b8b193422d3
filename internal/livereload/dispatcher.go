package livereload

import (
	"context"
	"log/slog"
	"path"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/events"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
)

// Dispatcher turns artifact updates into live-reload messages.
type Dispatcher struct {
	hub    *Hub
	ch     <-chan events.ArtifactsUpdated
	unsub  func()
	logger *slog.Logger
}

// NewDispatcher subscribes to events.ArtifactsUpdated on bus. Updates
// published after NewDispatcher returns are delivered once Run is called.
func NewDispatcher(hub *Hub, bus *events.Bus, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	ch, unsub := events.Subscribe[events.ArtifactsUpdated](bus, 16)
	return &Dispatcher{
		hub:    hub,
		ch:     ch,
		unsub:  unsub,
		logger: logger.With(slog.String("component", "livereload-dispatcher")),
	}
}

// Run forwards updates until ctx is done or the bus is closed.
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-d.ch:
			if !ok {
				return
			}
			for _, msg := range MessagesFor(evt) {
				n := d.hub.Broadcast(msg)
				d.logger.Debug("Dispatched update",
					slog.String("source", evt.Source),
					logfields.Message(msg.Type),
					logfields.Path(msg.Path),
					logfields.Count(n))
			}
		}
	}
}

// MessagesFor maps an update to messages: one css message per path when
// every path is a stylesheet, a single reload otherwise.
func MessagesFor(evt events.ArtifactsUpdated) []Message {
	if len(evt.Paths) == 0 {
		return nil
	}
	for _, p := range evt.Paths {
		if !strings.EqualFold(path.Ext(p), ".css") {
			return []Message{{Type: TypeReload}}
		}
	}
	msgs := make([]Message, 0, len(evt.Paths))
	for _, p := range evt.Paths {
		msgs = append(msgs, Message{Type: TypeCSS, Path: p})
	}
	return msgs
}
