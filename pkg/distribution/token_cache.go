package distribution

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/speedrun-hq/airdropper/pkg/metrics"
	"github.com/speedrun-hq/airdropper/pkg/models"
)

// TokenCache keeps token metadata reads for a while so repeated lookups skip the RPC round trips
type TokenCache struct {
	mu       sync.RWMutex
	cache    map[cacheKey]*cachedToken
	cacheTTL time.Duration
	now      func() time.Time
}

type cacheKey struct {
	chainID int64
	token   common.Address
}

// cachedToken is a token entry with the time it was stored
type cachedToken struct {
	info      models.TokenInfo
	timestamp time.Time
}

// NewTokenCache creates a new token metadata cache
func NewTokenCache(cacheTTL time.Duration) *TokenCache {
	return &TokenCache{
		cache:    make(map[cacheKey]*cachedToken),
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Get retrieves cached metadata if it's still valid
func (c *TokenCache) Get(chainID int64, token common.Address) (models.TokenInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, exists := c.cache[cacheKey{chainID, token}]
	if !exists || c.now().Sub(cached.timestamp) > c.cacheTTL {
		metrics.TokenCacheLookups.WithLabelValues("miss").Inc()
		return models.TokenInfo{}, false
	}

	metrics.TokenCacheLookups.WithLabelValues("hit").Inc()
	return cached.info, true
}

// Set stores metadata with the current timestamp
func (c *TokenCache) Set(chainID int64, info models.TokenInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[cacheKey{chainID, info.Address}] = &cachedToken{
		info:      info,
		timestamp: c.now(),
	}
}

// Clear removes all cached entries
func (c *TokenCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[cacheKey]*cachedToken)
}

// Len returns the number of entries, expired ones included
func (c *TokenCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.cache)
}
