// Package store provides storage backends for NeuroPulse.
//
// This file implements the PostgreSQL-backed conversation and memory store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/NeuroPulse-App/neuropulse/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore implements ConversationStore and MemoryStore on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// Close closes the underlying database.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) AddMessage(m models.ChatMessage) error {
	_, err := s.db.Exec(`INSERT INTO messages (id, role, text, emotion, timestamp) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.Role, m.Text, m.Emotion, m.Timestamp.UnixMilli())
	if err != nil {
		slog.Error("PostgresStore.AddMessage failed", "error", err, "role", m.Role)
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMessages(limit int) ([]models.ChatMessage, error) {
	query := `SELECT id, role, text, emotion, timestamp FROM messages ORDER BY timestamp DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
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
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *PostgresStore) ClearMessages() error {
	_, err := s.db.Exec(`DELETE FROM messages`)
	if err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}

func (s *PostgresStore) PutMemory(item models.MemoryItem) error {
	_, err := s.db.Exec(`INSERT INTO memories (key, value, state, created_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, state = EXCLUDED.state`,
		item.Key, item.Value, string(item.State), item.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert memory %q: %w", item.Key, err)
	}
	return nil
}

func (s *PostgresStore) GetMemory(key string) (models.MemoryItem, bool, error) {
	var item models.MemoryItem
	var stateStr string
	var ts int64
	err := s.db.QueryRow(`SELECT key, value, state, created_at FROM memories WHERE key = $1`, key).
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

func (s *PostgresStore) ListMemories() ([]models.MemoryItem, error) {
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

func (s *PostgresStore) DeleteMemory(key string) error {
	_, err := s.db.Exec(`DELETE FROM memories WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete memory %q: %w", key, err)
	}
	return nil
}
