package secretstore

import (
	"context"
	"sync"
	"time"

	"github.com/vitalvas/httphmac/hmacauth"
)

// DefaultCacheTTL is used when NewCache is given a non-positive TTL.
const DefaultCacheTTL = time.Minute

type cacheEntry struct {
	secret  string
	expires time.Time
}

// Cache is a read-through cache in front of another resolver. Only
// successful lookups are cached, so a newly registered key is picked up
// immediately and a backend outage is never remembered.
type Cache struct {
	next hmacauth.SecretResolver
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCache wraps next with a cache whose entries live for ttl.
func NewCache(next hmacauth.SecretResolver, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &Cache{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// ResolveSecret implements hmacauth.SecretResolver.
func (c *Cache) ResolveSecret(ctx context.Context, accessID string) (string, error) {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.entries[accessID]
	c.mu.RUnlock()

	if ok && now.Before(entry.expires) {
		return entry.secret, nil
	}

	secret, err := c.next.ResolveSecret(ctx, accessID)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.entries[accessID] = cacheEntry{secret: secret, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return secret, nil
}

// Invalidate drops the cached secret of accessID.
func (c *Cache) Invalidate(accessID string) {
	c.mu.Lock()
	delete(c.entries, accessID)
	c.mu.Unlock()
}

// Purge drops every expired entry.
func (c *Cache) Purge() {
	now := c.now()

	c.mu.Lock()
	for id, entry := range c.entries {
		if !now.Before(entry.expires) {
			delete(c.entries, id)
		}
	}
	c.mu.Unlock()
}

// Run purges expired entries every interval until ctx is done. A
// non-positive interval falls back to the cache TTL.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.ttl
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Purge()
		}
	}
}
