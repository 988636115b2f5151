package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bluele/gcache"
	"go.uber.org/zap"
)

// MemoryStore implements Store with an in-process LRU.
type MemoryStore struct {
	lru    gcache.Cache
	logger *zap.Logger
}

// NewMemoryStore creates an LRU store holding at most maxSize entries.
func NewMemoryStore(maxSize int, logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		lru:    gcache.New(maxSize).LRU().Build(),
		logger: logger,
	}
}

// Get retrieves a cached value.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.lru.Get(key)
	if errors.Is(err, gcache.KeyNotFoundError) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Set stores a value. A non-positive ttl stores without expiry.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return s.lru.Set(key, value)
	}
	return s.lru.SetWithExpire(key, value, ttl)
}

// Delete removes a key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.lru.Remove(key)
	return nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close drops all entries.
func (s *MemoryStore) Close() error {
	s.lru.Purge()
	return nil
}

// Size returns the number of live entries.
func (s *MemoryStore) Size() int {
	return s.lru.Len(true)
}
