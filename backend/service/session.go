package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/faawibowo/pakta/backend/config"
	"github.com/redis/go-redis/v9"
)

// SessionStore tracks session tokens that were revoked before they expired.
type SessionStore interface {
	// Revoke marks the token id as unusable until the given time.
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisSessionStore keeps revoked token ids as expiring Redis keys.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

func NewRedisSessionStore(cfg *config.RedisConfig) *RedisSessionStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisSessionStore{client: rdb, prefix: cfg.Prefix}
}

// Ping checks that Redis is reachable.
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

func (s *RedisSessionStore) key(tokenID string) string {
	return s.prefix + tokenID
}

func (s *RedisSessionStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return n > 0, nil
}

// MemorySessionStore is the single-instance SessionStore.
type MemorySessionStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemorySessionStore) Revoke(_ context.Context, tokenID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !until.After(now) {
		return nil
	}
	s.revoked[tokenID] = until

	// Drop entries whose tokens have expired anyway
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
		}
	}
	return nil
}

func (s *MemorySessionStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !exp.After(s.now()) {
		delete(s.revoked, tokenID)
		return false, nil
	}
	return true, nil
}
