// Package store provides storage backends for NeuroPulse.
//
// This file implements the SQLite-backed conversation and memory store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/NeuroPulse-App/neuropulse/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore implements ConversationStore and MemoryStore on SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN is a file path; the containing directory is created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AddMessage(m models.ChatMessage) error {
	_, err := s.db.Exec(`INSERT INTO messages (id, role, text, emotion, timestamp) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Role, m.Text, m.Emotion, m.Timestamp.UnixMilli())
	if err != nil {
		slog.Error("SQLiteStore.AddMessage failed", "error", err, "role", m.Role)
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetMessages(limit int) ([]models.ChatMessage, error) {
	query := `SELECT id, role, text, emotion, timestamp FROM messages ORDER BY timestamp DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		var ts int64
		if err := rows.Scan(&m.ID, &m.Role, &m.Text, &m.Emotion, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Timestamp = time.UnixMilli(ts)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Newest-first from the query; callers expect chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *SQLiteStore) ClearMessages() error {
	_, err := s.db.Exec(`DELETE FROM messages`)
	if err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PutMemory(item models.MemoryItem) error {
	_, err := s.db.Exec(`INSERT INTO memories (key, value, state, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, state = excluded.state`,
		item.Key, item.Value, string(item.State), item.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert memory %q: %w", item.Key, err)
	}
	return nil
}

func (s *SQLiteStore) GetMemory(key string) (models.MemoryItem, bool, error) {
	var item models.MemoryItem
	var stateStr string
	var ts int64
	err := s.db.QueryRow(`SELECT key, value, state, created_at FROM memories WHERE key = ?`, key).
		Scan(&item.Key, &item.Value, &stateStr, &ts)
	if err == sql.ErrNoRows {
		return models.MemoryItem{}, false, nil
	}
	if err != nil {
		return models.MemoryItem{}, false, fmt.Errorf("failed to read memory %q: %w", key, err)
	}
	item.State = models.MemoryLifecycle(stateStr)
	item.CreatedAt = time.UnixMilli(ts)
	return item, true, nil
}

func (s *SQLiteStore) ListMemories() ([]models.MemoryItem, error) {
	rows, err := s.db.Query(`SELECT key, value, state, created_at FROM memories ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	var out []models.MemoryItem
	for rows.Next() {
		var item models.MemoryItem
		var stateStr string
		var ts int64
		if err := rows.Scan(&item.Key, &item.Value, &stateStr, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		item.State = models.MemoryLifecycle(stateStr)
		item.CreatedAt = time.UnixMilli(ts)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteMemory(key string) error {
	_, err := s.db.Exec(`DELETE FROM memories WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete memory %q: %w", key, err)
	}
	return nil
}
