package news

import (
	"sync"
	"time"

	"stock-analyst/internal/types"
)

// headlineCache keeps recent headlines per symbol
type headlineCache struct {
	mu   sync.RWMutex
	data map[string]*cacheEntry
	ttl  time.Duration
	stop chan struct{}
	once sync.Once
}

// cacheEntry remembers the limit the items were fetched with
type cacheEntry struct {
	items     []types.NewsItem
	limit     int
	timestamp time.Time
}

// covers reports whether the entry can answer a request for limit items:
// it was fetched with at least that limit, or the source had fewer items.
func (e *cacheEntry) covers(limit int) bool {
	return e.limit >= limit || len(e.items) < e.limit
}

func newHeadlineCache(ttl time.Duration) *headlineCache {
	c := &headlineCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
		stop: make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

func (c *headlineCache) get(symbol string, limit int) ([]types.NewsItem, time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[symbol]
	if !ok {
		return nil, 0, false
	}
	age := time.Since(entry.timestamp)
	if age > c.ttl || !entry.covers(limit) {
		return nil, 0, false
	}
	return entry.items, age, true
}

func (c *headlineCache) set(symbol string, items []types.NewsItem, limit int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[symbol] = &cacheEntry{items: items, limit: limit, timestamp: time.Now()}
}

func (c *headlineCache) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *headlineCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for symbol, entry := range c.data {
		if now.Sub(entry.timestamp) > c.ttl {
			delete(c.data, symbol)
		}
	}
}

func (c *headlineCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*cacheEntry)
}

func (c *headlineCache) symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.data))
	for symbol := range c.data {
		out = append(out, symbol)
	}
	return out
}

func (c *headlineCache) close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *headlineCache) clearSymbol(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, symbol)
}
