// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pdiddy/edusearch/pkg/types"
)

// Redis stores candidates as JSON strings with a Redis TTL so that
// several server processes share one cache.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to addr and verifies the connection with PING.
func NewRedis(ctx context.Context, addr, password string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &Redis{client: client}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Get reads and decodes the entry for key. A missing key is a miss, not
// an error.
func (r *Redis) Get(ctx context.Context, key string) ([]types.CandidateResult, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var items []types.CandidateResult
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, fmt.Errorf("decoding cached candidates: %w", err)
	}
	return items, true, nil
}

// Set encodes items and stores them under key for ttl.
func (r *Redis) Set(ctx context.Context, key string, items []types.CandidateResult, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding candidates: %w", err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the client's connections.
func (r *Redis) Close() error {
	return r.client.Close()
}
