// Package cache implements the process-wide repository cache (§4.C): a
// bounded, size-and-age evicting cache keyed by (project, repository,
// operation, args...), invalidated per repository on every successful
// commit.
package cache

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Key identifies one cached read. Callers must normalize any relative
// revision in Args before building a Key so that HEAD and its equivalent
// absolute revision number share the same cache slot.
type Key struct {
	Project    string
	Repository string
	Operation  string
	Args       []string
}

func (k Key) String() string {
	parts := append([]string{k.Project, k.Repository, k.Operation}, k.Args...)
	return strings.Join(parts, "\x1f")
}

type entry struct {
	value  any
	weight int64
}

// Cache is a process-wide, bounded cache of repository-read results.
type Cache struct {
	lru *lru.LRU[string, entry]

	mu        sync.Mutex
	maxWeight int64
	weight    int64
}

// New builds a Cache bounded by both entry count and total encoded-byte
// weight, with entries expiring expireAfter after they were added; reads do
// not extend an entry's lifetime.
func New(maxEntries int, maxWeightBytes int64, expireAfter time.Duration) *Cache {
	c := &Cache{maxWeight: maxWeightBytes}
	c.lru = lru.NewLRU[string, entry](maxEntries, c.onEvict, expireAfter)

	return c
}

func (c *Cache) onEvict(_ string, e entry) {
	c.mu.Lock()
	c.weight -= e.weight
	c.mu.Unlock()
}

// Get returns the cached value for key, if present and not expired.
func (c *Cache) Get(key Key) (any, bool) {
	e, ok := c.lru.Get(key.String())
	if !ok {
		return nil, false
	}

	return e.value, true
}

// Put stores value under key with the given weight (proportional to its
// encoded byte size), evicting the oldest entries if the cache's total
// weight budget is exceeded.
func (c *Cache) Put(key Key, value any, weight int64) {
	c.lru.Add(key.String(), entry{value: value, weight: weight})

	c.mu.Lock()
	c.weight += weight
	c.mu.Unlock()

	for {
		c.mu.Lock()
		over := c.weight > c.maxWeight
		c.mu.Unlock()

		if !over {
			return
		}

		if _, _, ok := c.lru.RemoveOldest(); !ok {
			return
		}
	}
}

// InvalidateRepository drops every cached entry for (project, repository).
// It satisfies repo.CacheInvalidator.
func (c *Cache) InvalidateRepository(project, repository string) {
	prefix := project + "\x1f" + repository + "\x1f"

	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.lru.Remove(k)
		}
	}
}
