// Package hub fans out live state to every connected websocket client.
//
// This file implements the per-connection read and write pumps.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/NeuroPulse-App/neuropulse/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// sendQueueSize bounds the per-connection outbound queue. A client that
	// falls this far behind is dropped.
	sendQueueSize = 32

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	chatTimeout = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients are served from the same origin in this deployment.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one live websocket connection, owned exclusively by the Hub.
type Client struct {
	ID        string
	LiveSince time.Time

	hub  *Hub
	conn *websocket.Conn
	send chan models.Event

	closeOnce sync.Once
}

// ServeWS upgrades an HTTP request to a websocket connection and registers it
// with the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Hub.ServeWS: upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	c := &Client{
		ID:        uuid.NewString(),
		LiveSince: time.Now(),
		hub:       h,
		conn:      conn,
		send:      make(chan models.Event, sendQueueSize),
	}

	h.register <- c
	go c.writePump()
	go c.readPump()
}

// trySend queues an event without blocking. Returns false when the queue is
// full or the client is closed.
func (c *Client) trySend(ev models.Event) bool {
	defer func() {
		// Sending on a closed channel races with teardown; treat as a failed send.
		recover()
	}()
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

// close releases the connection. Safe to call more than once.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}

// writePump serializes all writes to the connection and keeps it alive with
// pings. Events drain from the send queue in FIFO order.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				slog.Debug("Client.writePump: write failed", "connection_id", c.ID, "error", err)
				c.hub.unregister <- c
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.unregister <- c
				return
			}
		}
	}
}

// readPump consumes inbound events until the connection breaks. A single
// malformed message is dropped and logged without closing the connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("Client.readPump: connection closed unexpectedly", "connection_id", c.ID, "error", err)
			}
			return
		}

		var ev models.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Warn("Client.readPump: dropping malformed message", "connection_id", c.ID, "error", err)
			continue
		}
		c.handleInbound(ev)
	}
}

// handleInbound dispatches one client event. Responses to inbound events are
// local echoes to this client only, never re-broadcast.
func (c *Client) handleInbound(ev models.Event) {
	switch ev.Type {
	case models.EventNotificationAction:
		var action models.NotificationAction
		if err := json.Unmarshal(ev.Data, &action); err != nil {
			slog.Warn("Client.handleInbound: malformed notification_action", "connection_id", c.ID, "error", err)
			return
		}
		if err := action.Validate(); err != nil {
			slog.Warn("Client.handleInbound: invalid notification_action", "connection_id", c.ID, "error", err)
			return
		}
		ack, err := c.hub.engine.HandleAction(action.NotificationID, action.ActionID)
		if err != nil {
			slog.Warn("Client.handleInbound: action rejected", "connection_id", c.ID, "error", err)
			return
		}
		if ack != nil {
			if ackEv, err := models.NewEvent(models.EventNotification, ack); err == nil {
				c.trySend(ackEv)
			}
		}

	case models.EventChatMessage:
		if c.hub.chat == nil {
			slog.Debug("Client.handleInbound: chat not configured, ignoring chat_message", "connection_id", c.ID)
			return
		}
		var msg models.ChatMessage
		if err := json.Unmarshal(ev.Data, &msg); err != nil {
			slog.Warn("Client.handleInbound: malformed chat_message", "connection_id", c.ID, "error", err)
			return
		}
		go c.respondToChat(msg.Text)

	case models.EventConfigUpdate:
		// Config changes are handled by the settings collaborator.
		slog.Debug("Client.handleInbound: ignoring config_update", "connection_id", c.ID)

	default:
		slog.Debug("Client.handleInbound: ignoring event", "connection_id", c.ID, "type", ev.Type)
	}
}

func (c *Client) respondToChat(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
	defer cancel()

	reply, err := c.hub.chat.HandleChat(ctx, text)
	if err != nil {
		slog.Error("Client.respondToChat: chat handler failed", "connection_id", c.ID, "error", err)
		return
	}
	if ev, err := models.NewEvent(models.EventChatMessage, reply); err == nil {
		c.trySend(ev)
	}
}
