// Package tlru implements a time-aware least-recently-used mask cache layer.
// Every mask carries a TTL that is refreshed on access, the cache evicts masks
// whose TTL has lapsed and, when full, the masks closest to expiring.
package tlru

import (
	"sync"
	"time"

	"github.com/flowscan/optset"
)

// an implementation of a Time-aware Least Recently Used in-memory mask cache
type Cache[TKey comparable, TFlag optset.Flag] struct {
	data   map[TKey]*item[TKey, TFlag]
	expiry expiryHeap[TKey, TFlag]
	config Config
	mu     sync.Mutex
}

// create a new TLRU cache layer
func NewCache[TKey comparable, TFlag optset.Flag](config Config) (*Cache[TKey, TFlag], error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	c := &Cache[TKey, TFlag]{
		data:   make(map[TKey]*item[TKey, TFlag]),
		expiry: make(expiryHeap[TKey, TFlag], 0),
		config: config,
	}
	go c.sweep()

	return c, nil
}

// Unique identifier for this layer used for logging and metric purposes
func (c *Cache[TKey, TFlag]) Identifier() string { return "tlru" }

// get masks for the given keys, hits refresh the TTL
func (c *Cache[TKey, TFlag]) Get(keys []TKey) ([]TFlag, []error) {
	result := make([]TFlag, len(keys))
	errors := make([]error, len(keys))
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, k := range keys {
		it, ok := c.data[k]
		if !ok {
			errors[i] = optset.NewErrNotFound(k)
			continue
		}
		if now.After(it.expireAt) {
			c.evict(it)
			errors[i] = optset.NewErrNotFound(k)
			continue
		}
		it.expireAt = now.Add(c.config.DefaultTTL)
		c.expiry.fix(it.index)
		result[i] = it.mask
	}
	return result, errors
}

// set masks for the given keys
func (c *Cache[TKey, TFlag]) Set(keys []TKey, masks []TFlag) []error {
	now := time.Now()
	c.mu.Lock()
	for i, k := range keys {
		if it, ok := c.data[k]; ok {
			it.mask = masks[i]
			it.expireAt = now.Add(c.config.DefaultTTL)
			c.expiry.fix(it.index)
			continue
		}
		it := &item[TKey, TFlag]{
			key:      k,
			mask:     masks[i],
			expireAt: now.Add(c.config.DefaultTTL),
		}
		c.data[k] = it
		c.expiry.push(it)
	}

	// over capacity, drop the masks closest to expiring
	if c.config.MaxItems > 0 {
		for len(c.data) > c.config.MaxItems {
			c.evict(c.expiry.peek())
		}
	}
	c.mu.Unlock()
	return nil
}

// Len returns the number of masks currently cached
func (c *Cache[TKey, TFlag]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func (c *Cache[TKey, TFlag]) evict(it *item[TKey, TFlag]) {
	delete(c.data, it.key)
	if it.index >= 0 {
		last := c.expiry.len() - 1
		i := it.index
		c.expiry.swap(i, last)
		c.expiry[last] = nil
		c.expiry = c.expiry[:last]
		if i < last {
			c.expiry.fix(i)
		}
		it.index = -1
	}
}

// periodically drop expired masks so idle keys don't pin memory
func (c *Cache[TKey, TFlag]) sweep() {
	ticker := time.NewTicker(c.config.SweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for c.expiry.len() > 0 && now.After(c.expiry.peek().expireAt) {
			c.evict(c.expiry.peek())
		}
		c.mu.Unlock()
	}
}
