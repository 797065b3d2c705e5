// Package store provides storage backends for NeuroPulse.
//
// This file implements the optimistic memory-item lifecycle: an item is
// recorded as pending, committed to the backend, and rolled back with a
// compensating delete when the commit fails.
package store

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/NeuroPulse-App/neuropulse/internal/models"
)

// MemoryReconciler wraps a MemoryStore with the pending/committed/failed
// item lifecycle used for optimistic UI updates.
type MemoryReconciler struct {
	backend MemoryStore

	mu      sync.Mutex
	pending map[string]models.MemoryItem
}

// NewMemoryReconciler wraps backend with lifecycle bookkeeping.
func NewMemoryReconciler(backend MemoryStore) *MemoryReconciler {
	return &MemoryReconciler{
		backend: backend,
		pending: make(map[string]models.MemoryItem),
	}
}

// Add records the item as pending and attempts to commit it. On success the
// committed item is returned; on failure the pending entry is rolled back and
// the item is returned in the failed state alongside the error.
func (r *MemoryReconciler) Add(key, value string) (models.MemoryItem, error) {
	item := models.MemoryItem{
		Key:       key,
		Value:     value,
		State:     models.MemoryPending,
		CreatedAt: time.Now(),
	}

	r.mu.Lock()
	r.pending[key] = item
	r.mu.Unlock()

	committed := item
	committed.State = models.MemoryCommitted
	if err := r.backend.PutMemory(committed); err != nil {
		// Compensating rollback: drop the optimistic entry.
		r.mu.Lock()
		delete(r.pending, key)
		r.mu.Unlock()

		item.State = models.MemoryFailed
		slog.Warn("MemoryReconciler.Add: commit failed, rolled back", "key", key, "error", err)
		return item, fmt.Errorf("failed to commit memory %q: %w", key, err)
	}

	r.mu.Lock()
	delete(r.pending, key)
	r.mu.Unlock()
	return committed, nil
}

// Remove deletes a committed item. If the backend delete fails the item is
// restored so callers can surface the rollback.
func (r *MemoryReconciler) Remove(key string) error {
	prev, existed, err := r.backend.GetMemory(key)
	if err != nil {
		return err
	}
	if !existed {
		return nil
	}

	if err := r.backend.DeleteMemory(key); err != nil {
		// The delete may have partially applied; put the old value back.
		if restoreErr := r.backend.PutMemory(prev); restoreErr != nil {
			slog.Error("MemoryReconciler.Remove: rollback failed", "key", key, "error", restoreErr)
		}
		return fmt.Errorf("failed to remove memory %q: %w", key, err)
	}
	return nil
}

// List merges committed backend items with any in-flight pending items.
func (r *MemoryReconciler) List() ([]models.MemoryItem, error) {
	items, err := r.backend.ListMemories()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pending {
		items = append(items, p)
	}
	return items, nil
}
