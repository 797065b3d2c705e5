package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/NeuroPulse-App/neuropulse/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("failed to create SQLite store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreRequiresDSN(t *testing.T) {
	if _, err := NewSQLiteStore(); err == nil {
		t.Error("expected error without DSN")
	}
}

func TestSQLiteConversationRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)

	base := time.Now().Truncate(time.Millisecond)
	for i := 0; i < 4; i++ {
		msg := models.ChatMessage{
			ID:        fmt.Sprintf("msg-%d", i),
			Role:      "user",
			Text:      fmt.Sprintf("text %d", i),
			Emotion:   "calm",
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.AddMessage(msg); err != nil {
			t.Fatalf("failed to insert message %d: %v", i, err)
		}
	}

	msgs, err := s.GetMessages(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	// Chronological order, millisecond-precision timestamps preserved.
	if msgs[0].ID != "msg-0" || msgs[3].ID != "msg-3" {
		t.Errorf("messages out of order: first=%s last=%s", msgs[0].ID, msgs[3].ID)
	}
	if !msgs[0].Timestamp.Equal(base) {
		t.Errorf("timestamp changed in round trip: want %v got %v", base, msgs[0].Timestamp)
	}
	if msgs[0].Emotion != "calm" {
		t.Errorf("emotion lost in round trip: %q", msgs[0].Emotion)
	}

	// Limit returns the most recent window in chronological order.
	msgs, err = s.GetMessages(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != "msg-2" || msgs[1].ID != "msg-3" {
		t.Errorf("unexpected limited window: %v", msgs)
	}

	if err := s.ClearMessages(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msgs, _ = s.GetMessages(0)
	if len(msgs) != 0 {
		t.Errorf("expected empty table after clear, got %d", len(msgs))
	}
}

func TestSQLiteMemoryUpsert(t *testing.T) {
	s := newTestSQLiteStore(t)

	item := models.MemoryItem{Key: "tz", Value: "Europe/Berlin", State: models.MemoryCommitted, CreatedAt: time.Now()}
	if err := s.PutMemory(item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Upsert replaces the value for an existing key.
	item.Value = "Europe/Lisbon"
	if err := s.PutMemory(item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok, err := s.GetMemory("tz")
	if err != nil || !ok {
		t.Fatalf("expected stored memory, ok=%v err=%v", ok, err)
	}
	if got.Value != "Europe/Lisbon" {
		t.Errorf("expected upserted value, got %q", got.Value)
	}
	if got.State != models.MemoryCommitted {
		t.Errorf("unexpected state %s", got.State)
	}

	if _, ok, _ := s.GetMemory("missing"); ok {
		t.Error("expected miss for unknown key")
	}

	items, err := s.ListMemories()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 memory after upsert, got %d", len(items))
	}

	if err := s.DeleteMemory("tz"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := s.GetMemory("tz"); ok {
		t.Error("expected memory gone after delete")
	}
}
