// Package hub fans out live state to every connected websocket client.
//
// The Hub owns the set of live connections. It is created by the server's
// composition root and passed explicitly to every component that broadcasts;
// there is no process-wide registry. Delivery is at-most-once and
// latest-state-wins: a slow or broken connection is dropped, never retried,
// and a (re)connecting client receives only the current state snapshot.
package hub

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/NeuroPulse-App/neuropulse/internal/models"
	"github.com/NeuroPulse-App/neuropulse/internal/notify"
	"github.com/NeuroPulse-App/neuropulse/internal/state"
)

// ChatResponder handles inbound chat messages from clients. Implemented by
// the chat collaborator (genai + conversation store); nil disables chat.
type ChatResponder interface {
	HandleChat(ctx context.Context, text string) (models.ChatMessage, error)
}

// Hub manages the live connection set and event fan-out.
type Hub struct {
	store  *state.Store
	engine *notify.Engine
	chat   ChatResponder

	register   chan *Client
	unregister chan *Client
	broadcast  chan models.Event

	mu      sync.RWMutex
	clients map[*Client]struct{}

	welcomeDelay time.Duration
}

// New creates a Hub. Run must be called before clients connect.
func New(store *state.Store, engine *notify.Engine, chat ChatResponder) *Hub {
	return &Hub{
		store:        store,
		engine:       engine,
		chat:         chat,
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		broadcast:    make(chan models.Event, broadcastBufferSize),
		clients:      make(map[*Client]struct{}),
		welcomeDelay: notify.WelcomeDelay,
	}
}

const broadcastBufferSize = 16

// Run processes registration and fan-out until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	slog.Debug("Hub.Run: hub started")
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

// BroadcastBiometric pushes a biometric_update event to every connection.
func (h *Hub) BroadcastBiometric(snapshot models.BiometricSnapshot, states []models.EmotionalState) {
	ev, err := models.NewEvent(models.EventBiometricUpdate, models.BiometricUpdate{
		HeartRate:       snapshot.HeartRate,
		EEGAlpha:        snapshot.EEGAlpha,
		EmotionalStates: states,
	})
	if err != nil {
		slog.Error("Hub.BroadcastBiometric: failed to build event", "error", err)
		return
	}
	h.Broadcast(ev)
}

// BroadcastNotification pushes a notification event to every connection.
func (h *Hub) BroadcastNotification(n *models.Notification) {
	ev, err := models.NewEvent(models.EventNotification, n)
	if err != nil {
		slog.Error("Hub.BroadcastNotification: failed to build event", "error", err)
		return
	}
	h.Broadcast(ev)
}

// Broadcast queues an event for fan-out. Drops the event when the hub's own
// queue is full rather than blocking the publisher.
func (h *Hub) Broadcast(ev models.Event) {
	select {
	case h.broadcast <- ev:
	default:
		slog.Warn("Hub.Broadcast: broadcast queue full, dropping event", "type", ev.Type)
	}
}

// ConnectionCount returns the number of live connections. The notification
// engine's trigger evaluation is gated on this being nonzero.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	slog.Info("Hub.addClient: client connected", "connection_id", c.ID, "connections", count)

	// Replay current state so the client does not wait for the next tick.
	if snapshot, states, version := h.store.Current(); version > 0 {
		if ev, err := models.NewEvent(models.EventBiometricUpdate, models.BiometricUpdate{
			HeartRate:       snapshot.HeartRate,
			EEGAlpha:        snapshot.EEGAlpha,
			EmotionalStates: states,
		}); err == nil {
			c.trySend(ev)
		}
	}

	// Welcome fires once per connection, after a short settle delay,
	// independent of the random trigger policy.
	connID := c.ID
	time.AfterFunc(h.welcomeDelay, func() {
		if n := h.engine.Welcome(connID); n != nil {
			if ev, err := models.NewEvent(models.EventNotification, n); err == nil {
				c.trySend(ev)
			}
		}
	})
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.close()
		h.engine.ForgetConnection(c.ID)
		slog.Info("Hub.removeClient: client disconnected", "connection_id", c.ID, "connections", count)
	}
}

// deliver fans an event out to every client. Sends are non-blocking per
// connection: a client whose queue is full is deregistered immediately so it
// cannot stall the others.
func (h *Hub) deliver(ev models.Event) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.trySend(ev) {
			slog.Warn("Hub.deliver: client send queue full, dropping connection", "connection_id", c.ID)
			h.drop(c)
		}
	}
}

// drop requests deregistration without blocking the fan-out loop.
func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()
	if ok {
		c.close()
		h.engine.ForgetConnection(c.ID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	slog.Debug("Hub.closeAll: all connections closed")
}
