package search

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// QueryCache serves repeated identical evidence queries from memory so a
// burst of near-duplicate checks does not multiply external calls
type QueryCache struct {
	cache *gocache.Cache
}

// NewQueryCache creates a cache with the given TTL
func NewQueryCache(ttl time.Duration) *QueryCache {
	return &QueryCache{
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Key derives the cache key from the query text and its freshness hint
func Key(query string, freshness Freshness) string {
	hash := sha256.Sum256([]byte(query + "|" + string(freshness)))
	return "clearcast:q1:" + hex.EncodeToString(hash[:])
}

// Get returns cached results for the key
func (c *QueryCache) Get(key string) ([]Result, bool) {
	if val, found := c.cache.Get(key); found {
		return val.([]Result), true
	}
	return nil, false
}

// Set stores results under the key with the default TTL
func (c *QueryCache) Set(key string, results []Result) {
	c.cache.Set(key, results, gocache.DefaultExpiration)
}
