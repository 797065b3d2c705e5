// Package models defines the core data structures for NeuroPulse.
//
// This file defines the JSON wire envelope exchanged over the websocket
// transport between the hub and its clients.
package models

import (
	"encoding/json"
	"fmt"
)

// EventType identifies the payload carried by an Event envelope.
type EventType string

const (
	// EventBiometricUpdate carries a BiometricUpdate payload (server to client).
	EventBiometricUpdate EventType = "biometric_update"
	// EventNotification carries a Notification payload (server to client).
	EventNotification EventType = "notification"
	// EventNotificationAction carries a NotificationAction payload (client to server).
	EventNotificationAction EventType = "notification_action"
	// EventChatMessage carries chat traffic; handled by the chat collaborator.
	EventChatMessage EventType = "chat_message"
	// EventMemory carries memory-item traffic; passthrough for this core.
	EventMemory EventType = "memory"
	// EventLog carries diagnostic messages; passthrough for this core.
	EventLog EventType = "log"
	// EventConfigUpdate carries client configuration changes; ignored by this core.
	EventConfigUpdate EventType = "config_update"
)

// Event is the bidirectional JSON envelope: { "type": ..., "data": ... }.
type Event struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent marshals payload into an Event envelope of the given type.
func NewEvent(t EventType, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", t, err)
	}
	return Event{Type: t, Data: data}, nil
}

// Decode unmarshals the event's data payload into v.
func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// BiometricUpdate is the data payload of a biometric_update event.
type BiometricUpdate struct {
	HeartRate       *float64         `json:"heartRate,omitempty"`
	EEGAlpha        *float64         `json:"eegAlpha,omitempty"`
	EmotionalStates []EmotionalState `json:"emotionalStates"`
}

// NotificationAction is the data payload of a notification_action event.
type NotificationAction struct {
	NotificationID string `json:"notification_id"`
	ActionID       string `json:"action_id"`
}

// Validate checks that a notification action references both a notification and an action.
func (a *NotificationAction) Validate() error {
	if a.NotificationID == "" {
		return fmt.Errorf("notification_id is required")
	}
	if a.ActionID == "" {
		return fmt.Errorf("action_id is required")
	}
	return nil
}
