// Package cache provides the key/value store behind the reference lookup
// cache and the chat session store.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Client is the byte-oriented store both caches sit on. A ttl of zero or
// less keeps the entry until it is deleted or evicted.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Close() error
}

// Pinger is implemented by clients backed by a remote server.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Key joins key components with ':'.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
