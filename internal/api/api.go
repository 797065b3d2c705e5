// Package api provides HTTP handlers and the main server logic for NeuroPulse.
//
// It exposes the websocket endpoint backed by the broadcast hub plus RESTful
// endpoints for notifications, chat, and live state. The server is the
// composition root's HTTP surface; every dependency is injected.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/NeuroPulse-App/neuropulse/internal/chat"
	"github.com/NeuroPulse-App/neuropulse/internal/hub"
	"github.com/NeuroPulse-App/neuropulse/internal/notify"
	"github.com/NeuroPulse-App/neuropulse/internal/state"
	"github.com/NeuroPulse-App/neuropulse/internal/store"
)

// Timeouts for the HTTP server and request-scoped work.
const (
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Server wires the HTTP surface of NeuroPulse.
type Server struct {
	addr   string
	hub    *hub.Hub
	states *state.Store
	engine *notify.Engine
	conv   store.ConversationStore
	mem    *store.MemoryReconciler
	chat   *chat.Service

	httpServer *http.Server
}

// NewServer creates a Server. conv, mem, and chatSvc may be nil when the
// corresponding collaborator is not configured.
func NewServer(addr string, h *hub.Hub, states *state.Store, engine *notify.Engine, conv store.ConversationStore, mem *store.MemoryReconciler, chatSvc *chat.Service) *Server {
	s := &Server{
		addr:   addr,
		hub:    h,
		states: states,
		engine: engine,
		conv:   conv,
		mem:    mem,
		chat:   chatSvc,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/state", s.stateHandler)
	mux.HandleFunc("/notifications", s.notificationsHandler)
	mux.HandleFunc("/notifications/clear", s.clearNotificationsHandler)
	mux.HandleFunc("/notifications/action", s.notificationActionHandler)
	mux.HandleFunc("/messages", s.messagesHandler)
	mux.HandleFunc("/memories", s.memoriesHandler)
	mux.HandleFunc("/memories/", s.memoriesHandler)
	mux.HandleFunc("/chat", s.chatHandler)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
	return s
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
// Inability to bind the listening endpoint is the only fatal condition.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		slog.Info("Server.Run: shutting down")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
