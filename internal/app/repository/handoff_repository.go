package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/model"
	"github.com/stylhelpr/stylhelpr-backend/pkg/logger"
)

var ErrHandoffNotFound = errors.New("handoff not found")

// HandoffStore holds at most one pending handoff per user.
type HandoffStore interface {
	Put(ctx context.Context, handoff *model.Handoff, ttl time.Duration) error
	// Take returns and removes the slot. ErrHandoffNotFound when empty or expired.
	Take(ctx context.Context, userID string) (*model.Handoff, error)
}

func handoffKey(userID string) string {
	return "handoff:" + userID
}

type redisHandoffStore struct {
	client *redis.Client
}

func NewRedisHandoffStore(client *redis.Client) HandoffStore {
	return &redisHandoffStore{client: client}
}

func (s *redisHandoffStore) Put(ctx context.Context, handoff *model.Handoff, ttl time.Duration) error {
	payload, err := json.Marshal(handoff)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, handoffKey(handoff.UserID), payload, ttl).Err(); err != nil {
		logger.Error("Failed to store handoff in redis", err, map[string]interface{}{
			"user_id": handoff.UserID,
		})
		return fmt.Errorf("set handoff: %w", err)
	}
	return nil
}

func (s *redisHandoffStore) Take(ctx context.Context, userID string) (*model.Handoff, error) {
	payload, err := s.client.GetDel(ctx, handoffKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrHandoffNotFound
	}
	if err != nil {
		logger.Error("Failed to take handoff from redis", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, fmt.Errorf("getdel handoff: %w", err)
	}

	var handoff model.Handoff
	if err := json.Unmarshal(payload, &handoff); err != nil {
		return nil, fmt.Errorf("decode handoff: %w", err)
	}
	return &handoff, nil
}

// MemoryHandoffStore is the single-instance fallback used when Redis is not
// configured. The least recently written slots are evicted beyond capacity.
type MemoryHandoffStore struct {
	mu    sync.Mutex
	cache *lru.Cache
	now   func() time.Time
}

func NewMemoryHandoffStore(capacity int) (*MemoryHandoffStore, error) {
	cache, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &MemoryHandoffStore{cache: cache, now: time.Now}, nil
}

func (s *MemoryHandoffStore) Put(ctx context.Context, handoff *model.Handoff, ttl time.Duration) error {
	stored := *handoff
	if ttl > 0 && stored.ExpiresAt.IsZero() {
		stored.ExpiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.cache.Add(handoffKey(handoff.UserID), &stored)
	s.mu.Unlock()
	return nil
}

func (s *MemoryHandoffStore) Take(ctx context.Context, userID string) (*model.Handoff, error) {
	key := handoffKey(userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(key)
	if !ok {
		return nil, ErrHandoffNotFound
	}
	s.cache.Remove(key)

	handoff := v.(*model.Handoff)
	if handoff.Expired(s.now()) {
		return nil, ErrHandoffNotFound
	}
	return handoff, nil
}

// Sweep drops expired slots and returns how many were removed.
func (s *MemoryHandoffStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, key := range s.cache.Keys() {
		v, ok := s.cache.Peek(key)
		if !ok {
			continue
		}
		if v.(*model.Handoff).Expired(now) {
			s.cache.Remove(key)
			removed++
		}
	}
	return removed
}

// Len reports the number of slots currently held.
func (s *MemoryHandoffStore) Len() int {
	return s.cache.Len()
}
