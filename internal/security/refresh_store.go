package security

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrRefreshNotFound = errors.New("refresh token not found")

// RefreshStore remembers issued refresh tokens so they can be rotated and revoked.
type RefreshStore interface {
	Save(ctx context.Context, tokenID string, userID uuid.UUID, ttl time.Duration) error
	Check(ctx context.Context, tokenID string) (uuid.UUID, error)
	Delete(ctx context.Context, tokenID string) error
}

type RedisRefreshStore struct {
	client *redis.Client
}

func NewRedisRefreshStore(client *redis.Client) *RedisRefreshStore {
	return &RedisRefreshStore{client: client}
}

func refreshKey(tokenID string) string {
	return "refresh_token:" + tokenID
}

func (s *RedisRefreshStore) Save(ctx context.Context, tokenID string, userID uuid.UUID, ttl time.Duration) error {
	return s.client.Set(ctx, refreshKey(tokenID), userID.String(), ttl).Err()
}

func (s *RedisRefreshStore) Check(ctx context.Context, tokenID string) (uuid.UUID, error) {
	val, err := s.client.Get(ctx, refreshKey(tokenID)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrRefreshNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to check refresh token: %w", err)
	}
	return uuid.Parse(val)
}

func (s *RedisRefreshStore) Delete(ctx context.Context, tokenID string) error {
	return s.client.Del(ctx, refreshKey(tokenID)).Err()
}

type memoryRefresh struct {
	userID  uuid.UUID
	expires time.Time
}

type MemoryRefreshStore struct {
	mu     sync.Mutex
	tokens map[string]memoryRefresh
}

func NewMemoryRefreshStore() *MemoryRefreshStore {
	return &MemoryRefreshStore{tokens: make(map[string]memoryRefresh)}
}

func (s *MemoryRefreshStore) Save(_ context.Context, tokenID string, userID uuid.UUID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenID] = memoryRefresh{userID: userID, expires: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryRefreshStore) Check(_ context.Context, tokenID string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[tokenID]
	if !ok || time.Now().After(entry.expires) {
		delete(s.tokens, tokenID)
		return uuid.Nil, ErrRefreshNotFound
	}
	return entry.userID, nil
}

func (s *MemoryRefreshStore) Delete(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, tokenID)
	return nil
}
