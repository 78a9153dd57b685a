// Package cache is the response cache: a thin TTL'd key-value layer over
// Redis used to absorb repeat page loads. It is an accelerator only; every
// cache failure degrades to serving the request uncached.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// DefaultTTL is how long a cached response stays fresh.
const DefaultTTL = 60 * time.Second

// Config holds connection parameters for the response cache.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	TTL      time.Duration
}

// Store is a Redis-backed TTL cache via rueidis.
type Store struct {
	client rueidis.Client
	ttl    time.Duration
}

// New creates a response cache. An empty address list is a configuration
// error; callers wanting no cache should not construct one.
func New(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Store{client: client, ttl: ttl}, nil
}

// TTL reports the configured freshness window.
func (s *Store) TTL() time.Duration { return s.ttl }

// Get retrieves a cached value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.client.B().Get().Key(key).Build()
	data, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return data, nil
}

// Set stores a value under the configured TTL.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	cmd := s.client.B().Set().Key(key).Value(string(value)).Ex(s.ttl).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}
