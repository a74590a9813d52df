package analytics

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type memoItem struct {
	value   Report
	expires time.Time
}

// memoCache is the in-process TTL layer in front of Redis.
type memoCache struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[string]memoItem
	group singleflight.Group
}

func newMemoCache(ttl time.Duration) *memoCache {
	return &memoCache{ttl: ttl, now: time.Now, items: make(map[string]memoItem)}
}

func (c *memoCache) Get(key string) (Report, bool) {
	if c == nil || c.ttl <= 0 {
		return Report{}, false
	}
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return Report{}, false
	}
	if c.now().After(item.expires) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return Report{}, false
	}
	return item.value, true
}

func (c *memoCache) Set(key string, value Report) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.items[key] = memoItem{value: value, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *memoCache) Bust() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.items = make(map[string]memoItem)
	c.mu.Unlock()
}

func (c *memoCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// do collapses concurrent builds of the same key.
func (c *memoCache) do(ctx context.Context, key string, fn func(context.Context) (Report, error)) (Report, bool, error) {
	resultChan := c.group.DoChan(key, func() (any, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return Report{}, false, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Report{}, res.Shared, res.Err
		}
		return res.Val.(Report), res.Shared, nil
	}
}
