// Package cache implements the block cache capability consumed by the SST
// reader: a bounded, LRU-evicted cache keyed by (sst_id, block_idx) that
// guarantees at-most-one concurrent load per key and does not cache load
// errors.
//
// The eviction policy (a single container/list-based LRU) is opaque to
// callers, which only ever see TryGetWith.
package cache

import (
	"container/list"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Key identifies a cached block by its owning SST and block index within
// that SST.
type Key struct {
	SSTID    uint64
	BlockIdx int
}

// Loader produces the value for a cache miss. It is called at most once
// concurrently per key; concurrent callers for the same key all observe
// the same result, including errors, which are never cached.
type Loader func() (any, error)

// BlockCache is a bounded LRU cache providing the try_get_with capability
// described by the read path: TryGetWith(key, loader) loads a value on
// miss, deduplicating concurrent loaders for the same key via singleflight,
// and evicts least-recently-used entries once Capacity is exceeded.
type BlockCache struct {
	capacity int

	mu    sync.Mutex
	ll    *list.List // back = most recently used
	items map[Key]*list.Element

	group singleflight.Group

	hits   uint64
	misses uint64
}

type entry struct {
	key   Key
	value any
}

// NewBlockCache creates a cache holding up to capacity entries. A
// non-positive capacity disables eviction (unbounded growth), matching the
// teacher's convention for a "no limit configured" cache.
func NewBlockCache(capacity int) *BlockCache {
	return &BlockCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[Key]*list.Element),
	}
}

// TryGetWith returns the cached value for key, calling loader on a miss.
// At most one loader call is in flight per key at a time; concurrent
// callers for the same key block on that single call and all receive its
// result. A failed load is not cached, so a subsequent call retries.
func (c *BlockCache) TryGetWith(key Key, loader Loader) (any, error) {
	if v, ok := c.get(key); ok {
		return v, nil
	}

	// singleflight.Group keys are strings; Key has no string representation
	// that's cheap to derive generically, so we encode it directly.
	sfKey := sfKeyOf(key)
	v, err, _ := c.group.Do(sfKey, func() (any, error) {
		// Re-check under the singleflight call in case another goroutine
		// populated the cache between our miss and acquiring the load slot.
		if v, ok := c.get(key); ok {
			return v, nil
		}
		val, err := loader()
		if err != nil {
			return nil, err
		}
		c.put(key, val)
		return val, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (c *BlockCache) get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.ll.MoveToBack(el)
	return el.Value.(*entry).value, true
}

func (c *BlockCache) put(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).value = value
		c.ll.MoveToBack(el)
		return
	}

	el := c.ll.PushBack(&entry{key: key, value: value})
	c.items[key] = el

	if c.capacity > 0 {
		for c.ll.Len() > c.capacity {
			oldest := c.ll.Front()
			if oldest == nil {
				break
			}
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
}

// Len returns the number of entries currently cached.
func (c *BlockCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Stats returns the cumulative hit and miss counts.
func (c *BlockCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func sfKeyOf(key Key) string {
	// Fixed-width encoding avoids delimiter collisions between SSTID and
	// BlockIdx without needing a general-purpose formatter on the hot path.
	buf := make([]byte, 16)
	putUint64(buf[0:8], key.SSTID)
	putUint64(buf[8:16], uint64(key.BlockIdx))
	return string(buf)
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (56 - 8*i))
	}
}
