package rate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// RedisStorage implements Storage using Redis with native key expiry.
type RedisStorage struct {
	client *redisv9.Client
	prefix string
}

// NewRedisStorage creates a new Redis storage
func NewRedisStorage(client *redisv9.Client, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = "rate_limit"
	}
	return &RedisStorage{
		client: client,
		prefix: prefix,
	}
}

// Get retrieves the counter record for a key
func (s *RedisStorage) Get(ctx context.Context, key string) (*State, error) {
	data, err := s.client.Get(ctx, s.makeKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redisv9.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal counter state: %w", err)
	}
	return &state, nil
}

// Set stores the counter record with the given TTL
func (s *RedisStorage) Set(ctx context.Context, key string, state *State, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal counter state: %w", err)
	}

	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := s.client.Set(ctx, s.makeKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Delete removes the record for a key
func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.makeKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Close is a no-op; the client is shared
func (s *RedisStorage) Close() error {
	return nil
}

// Ping checks if the storage backend is available
func (s *RedisStorage) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *RedisStorage) makeKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}
