// Package state holds the last-known biometric snapshot and its derived
// emotional states.
//
// The store is a single mutable slot with a version counter: one writer
// replaces the slot atomically each tick, any number of readers observe a
// consistent snapshot/states pair without blocking each other.
package state

import (
	"log/slog"
	"sync"
	"time"

	"github.com/NeuroPulse-App/neuropulse/internal/models"
)

// Store is the single shared mutable state between the signal pipeline and
// the broadcast hub.
type Store struct {
	mu       sync.RWMutex
	snapshot models.BiometricSnapshot
	states   []models.EmotionalState
	version  uint64
}

// NewStore creates an empty Store at version zero.
func NewStore() *Store {
	return &Store{}
}

// Publish atomically replaces the current snapshot and states and increments
// the version counter.
func (s *Store) Publish(snapshot models.BiometricSnapshot, states []models.EmotionalState) {
	// Copy so later mutation by the caller cannot leak into readers.
	copied := make([]models.EmotionalState, len(states))
	copy(copied, states)

	s.mu.Lock()
	s.snapshot = snapshot
	s.states = copied
	s.version++
	version := s.version
	s.mu.Unlock()

	slog.Debug("Store.Publish: state published", "version", version, "states", len(copied))
}

// Current returns the latest snapshot, states, and version. It never blocks
// writers for longer than the copy and returns identical results for
// consecutive calls without an intervening Publish.
func (s *Store) Current() (models.BiometricSnapshot, []models.EmotionalState, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	states := make([]models.EmotionalState, len(s.states))
	copy(states, s.states)
	return s.snapshot, states, s.version
}

// Version returns the current version counter without copying state.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Age reports how stale the current snapshot is. A zero snapshot reports a
// zero time and true.
func (s *Store) Age(now time.Time) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.version == 0 {
		return 0, true
	}
	return now.Sub(s.snapshot.Timestamp), false
}
