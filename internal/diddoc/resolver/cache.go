package resolver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/models"
	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
)

// resolveKeyPrefix namespaces cached resolutions in Redis.
const resolveKeyPrefix = "diddoc:resolve:"

// defaultCacheTTL keeps cached documents short-lived. Invalidation after a
// mutation is explicit; the TTL only bounds staleness when an invalidation
// was lost.
const defaultCacheTTL = 30 * time.Second

// Cache is the Redis-backed ReadCache for locally stored documents. The
// client lifecycle is managed externally.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL overrides the entry lifetime.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewCache constructs a read cache on an existing Redis client.
func NewCache(client *redis.Client, opts ...CacheOption) *Cache {
	c := &Cache{client: client, ttl: defaultCacheTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type cachedResolution struct {
	Document models.Document `json:"document"`
	Sequence int64           `json:"sequence"`
}

// Get returns the cached resolution for an identity. Any Redis or decode
// failure is a miss.
func (c *Cache) Get(ctx context.Context, did id.DID) (*Resolution, bool) {
	payload, err := c.client.Get(ctx, resolveKeyPrefix+did.String()).Bytes()
	if err != nil {
		return nil, false
	}
	var cached cachedResolution
	if err := json.Unmarshal(payload, &cached); err != nil {
		return nil, false
	}
	return &Resolution{Document: cached.Document, Sequence: cached.Sequence, Local: true}, true
}

// Set stores a local resolution, best effort.
func (c *Cache) Set(ctx context.Context, did id.DID, res *Resolution) {
	if res == nil || !res.Local {
		return
	}
	payload, err := json.Marshal(cachedResolution{Document: res.Document, Sequence: res.Sequence})
	if err != nil {
		return
	}
	c.client.Set(ctx, resolveKeyPrefix+did.String(), payload, c.ttl)
}

// Invalidate drops the cached resolution. The handler calls this after
// every successful mutation so reads converge immediately instead of
// waiting out the TTL.
func (c *Cache) Invalidate(ctx context.Context, did id.DID) error {
	return c.client.Del(ctx, resolveKeyPrefix+did.String()).Err()
}
