// Package cache provides response cache stores used by the outbound interceptor chain.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is not cached or has expired.
var ErrNotFound = errors.New("not found")

// Store caches opaque byte payloads with a per-entry TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
