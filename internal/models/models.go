// Package models defines the core data structures for NeuroPulse.
//
// It includes biometric snapshots, derived emotional states, and the
// notification types shared across modules.
package models

import (
	"errors"
	"time"
)

// EmotionKind identifies which derived signal an EmotionalState describes.
type EmotionKind string

const (
	// EmotionKindEmotional is the primary "how are they feeling" signal.
	EmotionKindEmotional EmotionKind = "emotional"
	// EmotionKindStress is the derived stress score.
	EmotionKindStress EmotionKind = "stress"
	// EmotionKindFocus is the derived focus score.
	EmotionKindFocus EmotionKind = "focus"
	// EmotionKindEngagement is the derived engagement score (rich-band sources only).
	EmotionKindEngagement EmotionKind = "engagement"
)

// EmotionLabel is the human-readable bucket for an emotional state level.
type EmotionLabel string

const (
	EmotionLabelLow      EmotionLabel = "low"
	EmotionLabelModerate EmotionLabel = "moderate"
	EmotionLabelHigh     EmotionLabel = "high"
	EmotionLabelCalm     EmotionLabel = "calm"
	EmotionLabelStressed EmotionLabel = "stressed"
)

// ColorTag drives client-side display of an emotional state.
type ColorTag string

const (
	ColorTagCalm     ColorTag = "calm"
	ColorTagModerate ColorTag = "moderate"
	ColorTagAlert    ColorTag = "alert"
	ColorTagFocused  ColorTag = "focused"
	ColorTagEngaged  ColorTag = "engaged"
)

// EmotionalState is a normalized (kind, level, label, colorTag) tuple derived
// from a biometric snapshot. Level is always clamped to [0,100]; label and
// colorTag are a deterministic function of kind and level.
type EmotionalState struct {
	Kind     EmotionKind  `json:"kind"`
	Level    float64      `json:"level"`
	Label    EmotionLabel `json:"label"`
	ColorTag ColorTag     `json:"color_tag"`
}

// BiometricSnapshot is one timestamped set of raw biometric readings.
// Immutable once created; superseded (never mutated) by the next tick.
// Nil fields indicate the reading was unavailable for that tick.
type BiometricSnapshot struct {
	HeartRate *float64  `json:"heartRate,omitempty"`
	EEGAlpha  *float64  `json:"eegAlpha,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EEGBandPower holds per-band EEG power for rich biometric sources.
type EEGBandPower struct {
	Delta float64 `json:"delta"`
	Theta float64 `json:"theta"`
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// NotificationCategory classifies why a notification was generated.
type NotificationCategory string

const (
	// NotificationFeedbackLoop solicits a user response used to calibrate future behavior.
	NotificationFeedbackLoop NotificationCategory = "feedback_loop"
	// NotificationContextBased is triggered by the current emotional state.
	NotificationContextBased NotificationCategory = "context_based"
	// NotificationConversationBased is triggered by conversation activity or schedules.
	NotificationConversationBased NotificationCategory = "conversation_based"
	// NotificationAlert marks sustained high-stress escalations.
	NotificationAlert NotificationCategory = "alert"
)

// ResponseOption is one selectable answer attached to a notification.
type ResponseOption struct {
	Label    string `json:"label"`
	ActionID string `json:"action_id"`
}

// Notification is a stateful message emitted by the notification engine.
// Only the Read flag is ever mutated after creation.
type Notification struct {
	ID                    string               `json:"id"`
	Category              NotificationCategory `json:"category"`
	Title                 string               `json:"title"`
	Message               string               `json:"message"`
	ResponseOptions       []ResponseOption     `json:"response_options,omitempty"`
	RelatedEmotionalState *EmotionalState      `json:"related_emotional_state,omitempty"`
	Read                  bool                 `json:"read"`
	CreatedAt             time.Time            `json:"created_at"`
}

// Validation errors shared across modules.
var (
	ErrUnknownNotification   = errors.New("unknown notification id")
	ErrUnknownAction         = errors.New("unknown action id")
	ErrInvalidEmotionKind    = errors.New("invalid emotion kind")
	ErrEmptyNotificationBody = errors.New("notification title and message are required")
)

// IsValidEmotionKind checks if the given emotion kind is supported.
func IsValidEmotionKind(k EmotionKind) bool {
	switch k {
	case EmotionKindEmotional, EmotionKindStress, EmotionKindFocus, EmotionKindEngagement:
		return true
	default:
		return false
	}
}

// IsValidNotificationCategory checks if the given category is supported.
func IsValidNotificationCategory(c NotificationCategory) bool {
	switch c {
	case NotificationFeedbackLoop, NotificationContextBased, NotificationConversationBased, NotificationAlert:
		return true
	default:
		return false
	}
}

// Validate performs basic validation on a Notification structure.
func (n *Notification) Validate() error {
	if !IsValidNotificationCategory(n.Category) {
		return errors.New("invalid notification category")
	}
	if n.Title == "" || n.Message == "" {
		return ErrEmptyNotificationBody
	}
	return nil
}

// StateByKind returns the state with the given kind from a classified set,
// or false when the kind is absent.
func StateByKind(states []EmotionalState, kind EmotionKind) (EmotionalState, bool) {
	for _, s := range states {
		if s.Kind == kind {
			return s, true
		}
	}
	return EmotionalState{}, false
}

// ChatMessage is a single chat exchange persisted by the conversation store.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Text      string    `json:"text"`
	Emotion   string    `json:"emotion,omitempty"` // emotional context label at send time
	Timestamp time.Time `json:"timestamp"`
}

// MemoryLifecycle tracks the reconciliation state of a memory item.
type MemoryLifecycle string

const (
	// MemoryPending indicates the item was added optimistically and is awaiting commit.
	MemoryPending MemoryLifecycle = "pending"
	// MemoryCommitted indicates the item was durably stored.
	MemoryCommitted MemoryLifecycle = "committed"
	// MemoryFailed indicates the commit failed and the item should be rolled back.
	MemoryFailed MemoryLifecycle = "failed"
)

// MemoryItem is one keyed fact stored about the user.
type MemoryItem struct {
	Key       string          `json:"key"`
	Value     string          `json:"value"`
	State     MemoryLifecycle `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
