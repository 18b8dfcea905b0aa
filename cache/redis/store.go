// Package redis provides a cache.Store backed by Redis, letting multiple
// processes share one response cache. Expiry is enforced by Redis TTLs; the
// ResponseCache additionally checks expiry on read.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/ragmesh/cache"
	backend "github.com/redis/go-redis/v9"
)

// Store implements cache.Store using Redis.
type Store struct {
	client *backend.Client
	prefix string
}

// Compile-time interface assertion.
var _ cache.Store = (*Store)(nil)

// Option customizes a Store.
type Option func(*Store)

// WithPrefix sets the key prefix for cache entries.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "ragmesh:response:",
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(fingerprint string) string {
	return s.prefix + fingerprint
}

// Get implements cache.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if err == backend.Nil {
			return nil, cache.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read from redis: %w", err)
	}
	return val, nil
}

// Set implements cache.Store. A ttl of zero stores the value without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write to redis: %w", err)
	}
	return nil
}

// Delete implements cache.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// Close releases the underlying client connection.
func (s *Store) Close() error {
	return s.client.Close()
}
