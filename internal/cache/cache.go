package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte payloads with a TTL. A miss is reported through
// the boolean, not an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
