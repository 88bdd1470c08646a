package cache

import (
	"sync"
	"time"

	"github.com/minhle/dcarank/pkg/logger"
)

// tick is one cached price observation
type tick struct {
	price     float64
	timestamp time.Time
}

// PriceCache is an in-memory cache for realtime prices
// ⭐ SSOT: 실시간 가격 캐싱은 이 구조체에서만
type PriceCache struct {
	mu     sync.RWMutex
	prices map[string]tick
	maxAge time.Duration
	logger *logger.Logger
}

// NewPriceCache creates a cache whose entries are considered fresh for maxAge
func NewPriceCache(maxAge time.Duration, log *logger.Logger) *PriceCache {
	return &PriceCache{
		prices: make(map[string]tick),
		maxAge: maxAge,
		logger: log,
	}
}

// Update stores a price observation. Older observations never overwrite
// newer ones.
func (c *PriceCache) Update(symbol string, price float64, at time.Time) bool {
	if price <= 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.prices[symbol]; ok && at.Before(existing.timestamp) {
		return false
	}

	c.prices[symbol] = tick{price: price, timestamp: at}
	return true
}

// Lookup returns the cached price for a symbol if it is still fresh.
// Satisfies the ranking engine's TickerCache fast path.
func (c *PriceCache) Lookup(symbol string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.prices[symbol]
	if !ok || time.Since(t.timestamp) > c.maxAge {
		return 0, false
	}
	return t.price, true
}

// StaleSymbols returns the symbols whose entries have aged out, for the
// REST refresher to re-poll.
func (c *PriceCache) StaleSymbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var stale []string
	for symbol, t := range c.prices {
		if time.Since(t.timestamp) > c.maxAge {
			stale = append(stale, symbol)
		}
	}
	return stale
}

// Len returns the number of cached symbols
func (c *PriceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.prices)
}
