// Package cache holds short-lived Spotify access tokens keyed by user id.
//
// Access tokens are never written to the refresh token store. A [TokenCache] only shortens the path
// through the token endpoint; a miss always falls back to a refresh.
package cache

import (
	"context"
	"sync"
	"time"
)

// TokenCache stores access tokens until they expire.
type TokenCache interface {
	Get(ctx context.Context, userID string) (string, bool)
	Set(ctx context.Context, userID, accessToken string, ttl time.Duration)
	Delete(ctx context.Context, userID string)
}

// Margin is subtracted from the provider's token lifetime so a cached token is never used right at expiry.
const Margin = time.Minute

// TTL returns how long a token expiring at expiry may be cached, or zero when it should not be.
func TTL(now, expiry time.Time) time.Duration {
	if expiry.IsZero() {
		return 0
	}
	ttl := expiry.Sub(now) - Margin
	if ttl <= 0 {
		return 0
	}
	return ttl
}

type memoryEntry struct {
	token   string
	expires time.Time
}

// MemoryCache is a process-local [TokenCache].
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty [MemoryCache].
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]memoryEntry{}, now: time.Now}
}

func (c *MemoryCache) Get(ctx context.Context, userID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[userID]
	if !ok {
		return "", false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, userID)
		return "", false
	}
	return e.token, true
}

func (c *MemoryCache) Set(ctx context.Context, userID, accessToken string, ttl time.Duration) {
	if ttl <= 0 || accessToken == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = memoryEntry{token: accessToken, expires: c.now().Add(ttl)}
}

func (c *MemoryCache) Delete(ctx context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}
