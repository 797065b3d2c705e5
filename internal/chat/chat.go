// Package chat bridges inbound chat messages to the completion provider and
// the conversation store.
//
// It is a collaborator of the biometric core: it reads the current emotional
// state but never influences classification.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/NeuroPulse-App/neuropulse/internal/genai"
	"github.com/NeuroPulse-App/neuropulse/internal/models"
	"github.com/NeuroPulse-App/neuropulse/internal/state"
	"github.com/NeuroPulse-App/neuropulse/internal/store"
	"github.com/google/uuid"
)

// Service handles one chat exchange end to end: persist the user message,
// generate a state-aware reply, persist and return it.
type Service struct {
	provider genai.Provider
	states   *state.Store
	conv     store.ConversationStore
}

// NewService wires a chat service. conv may be nil to skip persistence.
func NewService(provider genai.Provider, states *state.Store, conv store.ConversationStore) *Service {
	return &Service{provider: provider, states: states, conv: conv}
}

// HandleChat implements hub.ChatResponder.
func (s *Service) HandleChat(ctx context.Context, text string) (models.ChatMessage, error) {
	_, states, _ := s.states.Current()
	var emotional *models.EmotionalState
	if st, ok := models.StateByKind(states, models.EmotionKindEmotional); ok {
		emotional = &st
	}

	s.persist(models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      "user",
		Text:      text,
		Timestamp: time.Now(),
	})

	reply, err := s.provider.Respond(ctx, text, emotional)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("failed to generate reply: %w", err)
	}

	msg := models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      "assistant",
		Text:      reply.Text,
		Emotion:   reply.EmotionalContextLabel,
		Timestamp: time.Now(),
	}
	s.persist(msg)
	return msg, nil
}

func (s *Service) persist(m models.ChatMessage) {
	if s.conv == nil {
		return
	}
	if err := s.conv.AddMessage(m); err != nil {
		// Persistence failures never block the conversation.
		slog.Error("Service.persist: failed to store chat message", "error", err, "role", m.Role)
	}
}
