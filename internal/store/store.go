// Package store provides storage backends for NeuroPulse.
//
// It defines the conversation and memory keyed-store interfaces with
// in-memory, SQLite, PostgreSQL, and Redis implementations.
package store

import (
	"sort"
	"sync"

	"github.com/NeuroPulse-App/neuropulse/internal/models"
)

// ConversationStore persists chat messages.
type ConversationStore interface {
	AddMessage(m models.ChatMessage) error
	// GetMessages returns up to limit most recent messages in chronological
	// order; limit <= 0 returns everything.
	GetMessages(limit int) ([]models.ChatMessage, error)
	ClearMessages() error
}

// MemoryStore is the simple keyed store for extracted user facts.
type MemoryStore interface {
	PutMemory(item models.MemoryItem) error
	GetMemory(key string) (models.MemoryItem, bool, error)
	ListMemories() ([]models.MemoryItem, error)
	DeleteMemory(key string) error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option configures store backends.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// InMemoryStore implements ConversationStore and MemoryStore without
// persistence. Used in tests and as the zero-configuration default.
type InMemoryStore struct {
	mu       sync.Mutex
	messages []models.ChatMessage
	memories map[string]models.MemoryItem
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{memories: make(map[string]models.MemoryItem)}
}

func (s *InMemoryStore) AddMessage(m models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	return nil
}

func (s *InMemoryStore) GetMessages(limit int) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if limit > 0 && len(s.messages) > limit {
		start = len(s.messages) - limit
	}
	out := make([]models.ChatMessage, len(s.messages)-start)
	copy(out, s.messages[start:])
	return out, nil
}

func (s *InMemoryStore) ClearMessages() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	return nil
}

func (s *InMemoryStore) PutMemory(item models.MemoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories[item.Key] = item
	return nil
}

func (s *InMemoryStore) GetMemory(key string) (models.MemoryItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.memories[key]
	return item, ok, nil
}

func (s *InMemoryStore) ListMemories() ([]models.MemoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MemoryItem, 0, len(s.memories))
	for _, item := range s.memories {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *InMemoryStore) DeleteMemory(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memories, key)
	return nil
}
