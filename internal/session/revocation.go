package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type memoryRevocationStore struct {
	mu    sync.Mutex
	items map[string]time.Time
}

// NewMemoryRevocationStore keeps revoked IDs in process memory. Suitable for tests
// and single-instance development setups.
func NewMemoryRevocationStore() RevocationStore {
	return &memoryRevocationStore{items: make(map[string]time.Time)}
}

func (s *memoryRevocationStore) Revoke(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	if strings.TrimSpace(jti) == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if exp, ok := s.items[jti]; ok && now.Before(exp) {
		return false, nil
	}
	s.items[jti] = now.Add(ttl)
	return true, nil
}

func (s *memoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.items[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(s.items, jti)
		return false, nil
	}
	return true, nil
}

type redisRevocationStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisRevocationStore stores revoked IDs as Redis keys that expire with the token.
func NewRedisRevocationStore(client redis.Cmdable) RevocationStore {
	return &redisRevocationStore{
		client: client,
		prefix: "auth:revoked:",
	}
}

// Revoke uses SET NX so that only one of several concurrent callers wins.
func (s *redisRevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if strings.TrimSpace(jti) == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.SetNX(ctx, s.prefix+jti, 1, ttl).Result()
}

func (s *redisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if strings.TrimSpace(jti) == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	n, err := s.client.Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
