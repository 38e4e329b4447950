package marketdata

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Cache is a file-backed response cache. Entries older than the TTL are treated
// as missing and removed on read.
type Cache struct {
	dir string
	ttl time.Duration
	mu  sync.RWMutex
}

type cacheEntry struct {
	Key     string          `json:"key"`
	Data    json.RawMessage `json:"data"`
	Written time.Time       `json:"written"`
}

func NewCache(dir string, ttl time.Duration) (*Cache, error) {
	if dir == "" {
		dir = filepath.Join("cache", "marketdata")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir, ttl: ttl}, nil
}

func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	path := c.path(key)
	info, err := os.Stat(path)
	if err != nil {
		c.mu.RUnlock()
		return nil, false
	}
	if time.Since(info.ModTime()) > c.ttl {
		c.mu.RUnlock()
		c.Delete(key)
		return nil, false
	}
	raw, err := os.ReadFile(path)
	c.mu.RUnlock()
	if err != nil {
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Key != key {
		return nil, false
	}
	return entry.Data, true
}

// Set stores a JSON document under key
func (c *Cache) Set(key string, data []byte) error {
	entry, err := json.Marshal(cacheEntry{Key: key, Data: data, Written: time.Now()})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, entry, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path(key))
}

func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// CleanupExpired removes every expired entry and returns how many were removed
func (c *Cache) CleanupExpired() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) > c.ttl {
			if os.Remove(filepath.Join(c.dir, e.Name())) == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%x.json", md5.Sum([]byte(key))))
}

// MakeKey joins key parts with '|'
func MakeKey(parts ...string) string {
	return strings.Join(parts, "|")
}

// cached returns the decoded cache entry for key, or calls fetch and stores its
// result. A nil cache always fetches. Write failures are ignored.
func cached[T any](c *Cache, key string, fetch func() (T, error)) (T, error) {
	if c != nil {
		if raw, ok := c.Get(key); ok {
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, nil
			}
		}
	}

	v, err := fetch()
	if err != nil {
		return v, err
	}
	if c != nil {
		if raw, err := json.Marshal(v); err == nil {
			_ = c.Set(key, raw)
		}
	}
	return v, nil
}
