package ports

import (
	"context"
	"time"
)

// Cache is the read-side cache for the event query endpoint. Get returns
// ("", nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
