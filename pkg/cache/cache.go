// Package cache provides a thread-safe LRU cache for compiled pipeline
// scripts.
//
// Compiling a script involves parsing and an instrumentation transform
// whose output depends on the active profile: the same source stripped of
// inspect calls in production is a different expression than the
// instrumented one in development. Cache keys therefore combine the
// profile with the source text, see Key.
package cache

import (
	"container/list"
	"sync"

	"github.com/pipelens/pipelens/pkg/types"
)

// DefaultCapacity is the cache size used when none is given.
const DefaultCapacity = 256

// Key builds the cache key for a script compiled under a profile.
func Key(profile, source string) string {
	return profile + "\x00" + source
}

type entry struct {
	key  string
	expr *types.Expression
}

// Cache is an LRU cache for compiled expressions, safe for concurrent
// use. When capacity is reached the least recently used entry is evicted.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

// New creates a cache holding up to capacity entries. A capacity <= 0
// falls back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get retrieves a compiled expression and marks it most recently used.
func (c *Cache) Get(key string) (*types.Expression, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*entry).expr, true
}

// Set inserts or replaces a compiled expression, evicting the least
// recently used entry when the cache is full.
func (c *Cache) Set(key string, expr *types.Expression) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).expr = expr
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		if back := c.ll.Back(); back != nil {
			c.ll.Remove(back)
			delete(c.items, back.Value.(*entry).key)
		}
	}
	c.items[key] = c.ll.PushFront(&entry{key: key, expr: expr})
}

// GetOrCompile returns the cached expression for key, or calls compile,
// stores its result and returns it. Errors are not cached.
func (c *Cache) GetOrCompile(key string, compile func() (*types.Expression, error)) (*types.Expression, error) {
	if expr, ok := c.Get(key); ok {
		return expr, nil
	}
	expr, err := compile()
	if err != nil {
		return nil, err
	}
	c.Set(key, expr)
	return expr, nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Capacity returns the maximum number of entries.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}
