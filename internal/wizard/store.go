package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store keeps one in-progress wizard per user.
type Store interface {
	Load(ctx context.Context, userID uuid.UUID) (Machine, bool, error)
	Save(ctx context.Context, userID uuid.UUID, m Machine) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func key(userID uuid.UUID) string {
	return "wizard:" + userID.String()
}

func (s *RedisStore) Load(ctx context.Context, userID uuid.UUID) (Machine, bool, error) {
	raw, err := s.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Machine{}, false, nil
	}
	if err != nil {
		return Machine{}, false, fmt.Errorf("failed to load wizard session: %w", err)
	}

	var m Machine
	if err := json.Unmarshal(raw, &m); err != nil {
		return Machine{}, false, fmt.Errorf("failed to decode wizard session: %w", err)
	}
	return m, true, nil
}

func (s *RedisStore) Save(ctx context.Context, userID uuid.UUID, m Machine) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode wizard session: %w", err)
	}
	if err := s.client.Set(ctx, key(userID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save wizard session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID uuid.UUID) error {
	return s.client.Del(ctx, key(userID)).Err()
}

type memoryEntry struct {
	raw     []byte
	expires time.Time
}

// MemoryStore is used when no redis address is configured. Sessions are stored
// encoded so callers never share slices with the store.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[uuid.UUID]memoryEntry
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, entries: make(map[uuid.UUID]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, userID uuid.UUID) (Machine, bool, error) {
	s.mu.Lock()
	entry, ok := s.entries[userID]
	if ok && s.ttl > 0 && s.now().After(entry.expires) {
		delete(s.entries, userID)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return Machine{}, false, nil
	}
	var m Machine
	if err := json.Unmarshal(entry.raw, &m); err != nil {
		return Machine{}, false, err
	}
	return m, true, nil
}

func (s *MemoryStore) Save(_ context.Context, userID uuid.UUID, m Machine) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = memoryEntry{raw: raw, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}
