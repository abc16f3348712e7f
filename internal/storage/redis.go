package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai_receptionist/pkg"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces session keys
const DefaultKeyPrefix = "session:"

// RedisSessionStore keeps dialogue states as JSON blobs under prefix+id.
// Every save refreshes the key TTL to the inactivity window, so idle
// sessions also disappear without a sweep.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisSessionStore connects to Redis from a URL
func NewRedisSessionStore(ctx context.Context, redisURL, prefix string, ttl time.Duration) (*RedisSessionStore, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSessionStoreWithClient(client, prefix, ttl), nil
}

// NewRedisSessionStoreWithClient wraps an existing client
func NewRedisSessionStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisSessionStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultMaxAge
	}
	return &RedisSessionStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (r *RedisSessionStore) key(sessionID string) string {
	return r.prefix + sessionID
}

// Create uses SETNX so only one concurrent creator wins
func (r *RedisSessionStore) Create(ctx context.Context, state *pkg.DialogueState) error {
	if state == nil || state.SessionID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	data, err := sonic.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	created, err := r.client.SetNX(ctx, r.key(state.SessionID), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if !created {
		return fmt.Errorf("%w: %s", pkg.ErrSessionConflict, state.SessionID)
	}
	return nil
}

// Get retrieves session data from Redis
func (r *RedisSessionStore) Get(ctx context.Context, sessionID string) (*pkg.DialogueState, error) {
	data, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", pkg.ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to get session data: %w", err)
	}

	var state pkg.DialogueState
	if err := sonic.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	if state.Context == nil {
		state.Context = make(map[string]any)
	}
	return &state, nil
}

// Save stores session data and refreshes its TTL
func (r *RedisSessionStore) Save(ctx context.Context, state *pkg.DialogueState) error {
	if state == nil || state.SessionID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	data, err := sonic.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	if err := r.client.Set(ctx, r.key(state.SessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session data: %w", err)
	}
	return nil
}

// ExpireOlderThan scans the prefix and deletes idle sessions
func (r *RedisSessionStore) ExpireOlderThan(ctx context.Context, maxAge time.Duration) ([]string, error) {
	cutoff := r.now().Add(-maxAge)

	var expired []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		sessionID := strings.TrimPrefix(iter.Val(), r.prefix)

		state, err := r.Get(ctx, sessionID)
		if errors.Is(err, pkg.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return expired, err
		}
		if !state.LastActivity.Before(cutoff) {
			continue
		}

		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return expired, fmt.Errorf("failed to delete session: %w", err)
		}
		expired = append(expired, sessionID)
	}
	if err := iter.Err(); err != nil {
		return expired, fmt.Errorf("failed to scan sessions: %w", err)
	}

	return expired, nil
}

// GetTTL gets remaining TTL for a session
func (r *RedisSessionStore) GetTTL(ctx context.Context, sessionID string) (time.Duration, error) {
	ttl, err := r.client.TTL(ctx, r.key(sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get TTL: %w", err)
	}
	return ttl, nil
}

// Ping tests Redis connection
func (r *RedisSessionStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisSessionStore) Close() error {
	return r.client.Close()
}
