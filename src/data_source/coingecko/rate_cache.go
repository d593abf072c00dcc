package coingecko

import (
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// RateCache is a small in-process TTL cache for asset→fiat conversion rates.
// A zero TTL disables caching entirely, which restores a lookup per call.
// -----------------------------------------------------------------------------

type cachedRate struct {
	rate      float64
	fetchedAt time.Time
}

type RateCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cachedRate
}

// -----------------------------------------------------------------------------

func NewRateCache(ttl time.Duration) *RateCache {
	return &RateCache{
		ttl:     ttl,
		entries: make(map[string]cachedRate),
	}
}

// -----------------------------------------------------------------------------

func rateKey(assetID, fiat string) string {
	return assetID + ":" + fiat
}

// -----------------------------------------------------------------------------

// Get returns a cached rate if it is still fresh.
func (c *RateCache) Get(assetID, fiat string) (float64, bool) {
	if c.ttl <= 0 {
		return 0, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[rateKey(assetID, fiat)]
	if !ok || time.Since(entry.fetchedAt) > c.ttl {
		return 0, false
	}
	return entry.rate, true
}

// -----------------------------------------------------------------------------

// Put stores a freshly fetched rate.
func (c *RateCache) Put(assetID, fiat string, rate float64) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[rateKey(assetID, fiat)] = cachedRate{rate: rate, fetchedAt: time.Now()}
}
