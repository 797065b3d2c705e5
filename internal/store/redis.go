// Package store provides storage backends for NeuroPulse.
//
// This file implements the Redis-backed memory keyed store. Memories are
// stored as JSON values under a common key prefix.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NeuroPulse-App/neuropulse/internal/models"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "mem"

// RedisMemoryStore implements MemoryStore using Redis.
type RedisMemoryStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	ctx    context.Context
}

// RedisConfig configures the Redis memory store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces keys; default "mem".
	Prefix string
	// TTL for entries; 0 means no expiry.
	TTL time.Duration
}

// NewRedisMemoryStore creates a MemoryStore backed by Redis and verifies the
// connection with a ping.
func NewRedisMemoryStore(cfg RedisConfig) (*RedisMemoryStore, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultRedisPrefix
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisMemoryStore{client: client, prefix: cfg.Prefix, ttl: cfg.TTL, ctx: ctx}, nil
}

// Close releases the underlying client.
func (s *RedisMemoryStore) Close() error {
	return s.client.Close()
}

func (s *RedisMemoryStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisMemoryStore) PutMemory(item models.MemoryItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal memory %q: %w", item.Key, err)
	}
	if err := s.client.Set(s.ctx, s.key(item.Key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store memory %q: %w", item.Key, err)
	}
	return nil
}

func (s *RedisMemoryStore) GetMemory(key string) (models.MemoryItem, bool, error) {
	data, err := s.client.Get(s.ctx, s.key(key)).Result()
	if err == redis.Nil {
		return models.MemoryItem{}, false, nil
	}
	if err != nil {
		return models.MemoryItem{}, false, fmt.Errorf("failed to read memory %q: %w", key, err)
	}
	var item models.MemoryItem
	if err := json.Unmarshal([]byte(data), &item); err != nil {
		return models.MemoryItem{}, false, fmt.Errorf("failed to decode memory %q: %w", key, err)
	}
	return item, true, nil
}

func (s *RedisMemoryStore) ListMemories() ([]models.MemoryItem, error) {
	keys, err := s.client.Keys(s.ctx, s.prefix+":*").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list memory keys: %w", err)
	}

	out := make([]models.MemoryItem, 0, len(keys))
	for _, k := range keys {
		data, err := s.client.Get(s.ctx, k).Result()
		if err == redis.Nil {
			continue // expired between KEYS and GET
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read memory %q: %w", k, err)
		}
		var item models.MemoryItem
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			return nil, fmt.Errorf("failed to decode memory %q: %w", k, err)
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *RedisMemoryStore) DeleteMemory(key string) error {
	if err := s.client.Del(s.ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete memory %q: %w", key, err)
	}
	return nil
}
