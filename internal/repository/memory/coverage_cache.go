package memory

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// CoverageCache is a process-local LRU of coverage results with a TTL. Keys
// are region/config digests, so the same boundary tiled twice with the same
// settings is only computed once.
//
// Go Learning Note — container/list for LRU:
// A doubly linked list keeps entries in recency order (front = newest) and a
// map points each key at its list element, giving O(1) lookup, promotion and
// eviction from the back.
type CoverageCache struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	lst   *list.List
	dict  map[string]*list.Element
	clock func() time.Time
}

type cacheItem struct {
	key   string
	codes []string
	exp   time.Time
}

// NewCoverageCache creates a cache holding at most capacity results for ttl
// each. A non-positive ttl means entries never expire.
func NewCoverageCache(capacity int, ttl time.Duration) *CoverageCache {
	if capacity < 1 {
		capacity = 1
	}
	return &CoverageCache{
		cap:   capacity,
		ttl:   ttl,
		lst:   list.New(),
		dict:  make(map[string]*list.Element),
		clock: time.Now,
	}
}

func (c *CoverageCache) Get(ctx context.Context, key string) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.dict[key]
	if !ok {
		return nil, false, nil
	}
	it := e.Value.(cacheItem)
	if c.ttl > 0 && !c.clock().Before(it.exp) {
		c.lst.Remove(e)
		delete(c.dict, key)
		return nil, false, nil
	}
	c.lst.MoveToFront(e)
	return append([]string(nil), it.codes...), true, nil
}

func (c *CoverageCache) Set(ctx context.Context, key string, codes []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	it := cacheItem{key: key, codes: append([]string(nil), codes...), exp: c.clock().Add(c.ttl)}
	if e, ok := c.dict[key]; ok {
		e.Value = it
		c.lst.MoveToFront(e)
		return nil
	}
	c.dict[key] = c.lst.PushFront(it)
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		delete(c.dict, back.Value.(cacheItem).key)
		c.lst.Remove(back)
	}
	return nil
}

// Len returns the number of cached results, expired ones included until
// they are next touched.
func (c *CoverageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}
