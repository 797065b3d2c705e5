// Package api provides HTTP handlers for NeuroPulse endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/NeuroPulse-App/neuropulse/internal/models"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	healthData := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"connections": s.hub.ConnectionCount(),
		"unread":      s.engine.Unread(),
	}
	writeJSONResponse(w, http.StatusOK, healthData)
}

// stateHandler returns the current biometric snapshot and derived states (GET /state).
func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.stateHandler: processing state request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snapshot, states, version := s.states.Current()
	if version == 0 {
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("No state published yet", nil))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"snapshot":         snapshot,
		"emotional_states": states,
		"version":          version,
	}))
}

// notificationsHandler returns the notification ledger (GET /notifications).
func (s *Server) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.notificationsHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	notifications := s.engine.List()
	slog.Debug("Server.notificationsHandler: notifications fetched", "count", len(notifications))
	writeJSONResponse(w, http.StatusOK, models.Success(notifications))
}

// clearNotificationsHandler empties the ledger (POST /notifications/clear).
func (s *Server) clearNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	s.engine.ClearAll()
	slog.Info("Server.clearNotificationsHandler: ledger cleared")
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Notifications cleared", nil))
}

// notificationActionHandler applies a user response to a notification
// (POST /notifications/action).
func (s *Server) notificationActionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.notificationActionHandler: processing action", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var action models.NotificationAction
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		slog.Warn("Server.notificationActionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := action.Validate(); err != nil {
		slog.Warn("Server.notificationActionHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	ack, err := s.engine.HandleAction(action.NotificationID, action.ActionID)
	if err != nil {
		slog.Warn("Server.notificationActionHandler: action rejected", "error", err, "notification_id", action.NotificationID)
		writeJSONResponse(w, http.StatusNotFound, models.Error(err.Error()))
		return
	}

	slog.Info("Server.notificationActionHandler: action handled", "notification_id", action.NotificationID, "action_id", action.ActionID)
	writeJSONResponse(w, http.StatusOK, models.Success(ack))
}

// messagesHandler returns recent conversation history (GET /messages).
func (s *Server) messagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.conv == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Conversation store not configured"))
		return
	}

	messages, err := s.conv.GetMessages(100)
	if err != nil {
		slog.Error("Server.messagesHandler: failed to fetch messages", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch messages"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(messages))
}

// memoryRequest is the payload of POST /memories.
type memoryRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// memoriesHandler handles the keyed memory store:
// GET /memories, POST /memories, DELETE /memories/{key}.
func (s *Server) memoriesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if s.mem == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Memory store not configured"))
		return
	}

	key := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/memories"), "/")

	switch {
	case r.Method == http.MethodGet && key == "":
		items, err := s.mem.List()
		if err != nil {
			slog.Error("Server.memoriesHandler: failed to list memories", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch memories"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(items))

	case r.Method == http.MethodPost && key == "":
		var req memoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return
		}
		if req.Key == "" || req.Value == "" {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required fields: key, value"))
			return
		}
		item, err := s.mem.Add(req.Key, req.Value)
		if err != nil {
			slog.Error("Server.memoriesHandler: memory commit failed", "error", err, "key", req.Key)
			writeJSONResponse(w, http.StatusInternalServerError, models.Success(item))
			return
		}
		writeJSONResponse(w, http.StatusCreated, models.Success(item))

	case r.Method == http.MethodDelete && key != "":
		if err := s.mem.Remove(key); err != nil {
			slog.Error("Server.memoriesHandler: failed to remove memory", "error", err, "key", key)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to remove memory"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Memory removed", nil))

	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
	}
}

// chatRequest is the payload of POST /chat.
type chatRequest struct {
	Text string `json:"text"`
}

// chatHandler generates an assistant reply over HTTP (POST /chat). The same
// exchange is available over the websocket as a chat_message event.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.chat == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Chat provider not configured"))
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.chatHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Text == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: text"))
		return
	}

	reply, err := s.chat.HandleChat(r.Context(), req.Text)
	if err != nil {
		slog.Error("Server.chatHandler: chat failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to generate reply"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(reply))
}
