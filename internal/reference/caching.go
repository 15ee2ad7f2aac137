package reference

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/Vinayak1844/Statathon-Project/internal/cache"
	"github.com/Vinayak1844/Statathon-Project/internal/observability"
)

const cachePrefix = "ref"

// CachingResolver is a read-through cache keyed by (kind, name) in front of
// another resolver. Only successful lookups are cached, so a name added to
// the codes table is picked up on the next request.
type CachingResolver struct {
	next   Resolver
	client cache.Client
	ttl    time.Duration
	logger *observability.Logger
}

// NewCachingResolver wraps next with client.
func NewCachingResolver(next Resolver, client cache.Client, ttl time.Duration, logger *observability.Logger) *CachingResolver {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &CachingResolver{next: next, client: client, ttl: ttl, logger: logger}
}

// Resolve serves from cache when possible and falls through otherwise. Cache
// failures are logged and never fail the lookup.
func (c *CachingResolver) Resolve(ctx context.Context, kind Kind, name string) (Code, error) {
	key := cache.Key(cachePrefix, string(kind), name)

	raw, err := c.client.Get(ctx, key)
	switch {
	case err == nil:
		if code, ok := decodeCode(raw); ok {
			return code, nil
		}
	case !errors.Is(err, cache.ErrCacheMiss):
		c.logger.Warn().Err(err).Str("key", key).Msg("Reference cache read failed")
	}

	code, err := c.next.Resolve(ctx, kind, name)
	if err != nil {
		return nil, err
	}

	if enc, ok := encodeCode(code); ok {
		if err := c.client.Set(ctx, key, enc, c.ttl); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Reference cache write failed")
		}
	}
	return code, nil
}

// Invalidate drops every cached lookup. Call it after the codes table is
// reloaded.
func (c *CachingResolver) Invalidate(ctx context.Context) error {
	return c.client.DeleteByPrefix(ctx, cachePrefix+":")
}

// encodeCode tags the value with its type so integers come back as int64
// rather than the float64 a JSON round trip would give.
func encodeCode(code Code) ([]byte, bool) {
	switch v := code.(type) {
	case int64:
		return []byte("i:" + strconv.FormatInt(v, 10)), true
	case int:
		return []byte("i:" + strconv.Itoa(v)), true
	case float64:
		return []byte("f:" + strconv.FormatFloat(v, 'g', -1, 64)), true
	case string:
		return []byte("s:" + v), true
	default:
		return nil, false
	}
}

func decodeCode(raw []byte) (Code, bool) {
	if len(raw) < 2 || raw[1] != ':' {
		return nil, false
	}
	body := string(raw[2:])
	switch raw[0] {
	case 'i':
		v, err := strconv.ParseInt(body, 10, 64)
		return v, err == nil
	case 'f':
		v, err := strconv.ParseFloat(body, 64)
		return v, err == nil
	case 's':
		return body, true
	default:
		return nil, false
	}
}
