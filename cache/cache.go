// Package cache holds a small in-memory cache of scrape responses so
// repeated requests for the same URL and config skip the browser entirely.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/use-agent/harvest/models"
)

// entry holds a cached response with its creation timestamp.
type entry struct {
	response  *models.ScrapeResponse
	createdAt time.Time
}

// Cache is a simple in-memory cache for scrape responses.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
}

// New creates a Cache with the given maximum number of entries. A
// background goroutine evicts entries older than one hour every five
// minutes.
func New(maxEntries int) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
	}
	go c.cleanupLoop()
	return c
}

// Key derives a cache key from the URL and the extraction toggles that
// change the response shape.
func Key(url string, cfg models.ScrapeConfig) string {
	h := sha256.New()
	h.Write([]byte(url))
	fmt.Fprintf(h, "|%t|%t|%t|%t|%t",
		cfg.ExtractText, cfg.ExtractImages, cfg.ExtractLinks,
		cfg.DownloadImages, cfg.ScrollToBottom)
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached response younger than maxAge. Returns the
// response and whether it was a hit; maxAge <= 0 disables lookup.
func (c *Cache) Get(key string, maxAge time.Duration) (*models.ScrapeResponse, bool) {
	if maxAge <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || time.Since(e.createdAt) > maxAge {
		return nil, false
	}
	return e.response, true
}

// Set stores a response. At capacity one random entry is evicted to make
// room (map iteration order is random in Go).
func (c *Cache) Set(key string, resp *models.ScrapeResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{response: resp, createdAt: time.Now()}
}

// cleanupLoop evicts entries older than 1 hour every 5 minutes.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-1 * time.Hour)
		c.mu.Lock()
		for k, e := range c.store {
			if e.createdAt.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}
