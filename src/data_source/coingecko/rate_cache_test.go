package coingecko

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateCache_PutGet(t *testing.T) {
	cache := NewRateCache(time.Minute)

	_, ok := cache.Get("bitcoin", "usd")
	assert.False(t, ok)

	cache.Put("bitcoin", "usd", 65000)
	rate, ok := cache.Get("bitcoin", "usd")
	assert.True(t, ok)
	assert.Equal(t, float64(65000), rate)

	// Same asset under a different fiat is a distinct entry.
	_, ok = cache.Get("bitcoin", "eur")
	assert.False(t, ok)
}

func TestRateCache_Expiry(t *testing.T) {
	cache := NewRateCache(10 * time.Millisecond)

	cache.Put("bitcoin", "usd", 65000)
	time.Sleep(25 * time.Millisecond)

	_, ok := cache.Get("bitcoin", "usd")
	assert.False(t, ok)
}

func TestRateCache_ZeroTTLDisables(t *testing.T) {
	cache := NewRateCache(0)

	cache.Put("bitcoin", "usd", 65000)
	_, ok := cache.Get("bitcoin", "usd")
	assert.False(t, ok)
}
