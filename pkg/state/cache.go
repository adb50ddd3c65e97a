/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package state

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/google/uuid"
)

// unbounded is the LRU's entry-count capacity; eviction in this cache is driven by weight, not
// count, so the underlying LRU is sized far beyond any realistic per-key population and only
// used to track recency order.
const unbounded = 1 << 20

// LeaseToken identifies the holder of an exclusive lease on a cached key.
type LeaseToken string

type cacheEntry struct {
	weight int
	leased bool
	token  LeaseToken
}

// Cache is the process-wide, worker-shared cache for per-key state named in the design notes: a
// weighted LRU with per-key exclusive leases. A worker leases a key before touching its state
// and releases it when done; the cache never evicts a key while it is leased, and eviction of
// unleased keys is driven by total weight rather than entry count.
type Cache struct {
	mu        sync.Mutex
	lru       *lru.Cache[string, *cacheEntry]
	maxWeight int
	curWeight int
}

// NewCache constructs a Cache bounded by maxWeight. Init is a separate call, matching the
// init()→lease()→release()→teardown() lifecycle of the design note; NewCache only allocates.
func NewCache(maxWeight int) (*Cache, error) {
	l, err := lru.New[string, *cacheEntry](unbounded)
	if err != nil {
		return nil, fmt.Errorf("state: failed to allocate cache: %w", err)
	}
	return &Cache{lru: l, maxWeight: maxWeight}, nil
}

// Init prepares the cache for use. It is a no-op for the in-process LRU but gives an embedding
// runtime a single place to hook warmup or metrics registration, matching the lifecycle every
// process-wide cache in this core follows.
func (c *Cache) Init() error { return nil }

// Lease grants the caller exclusive use of key, weighted at weight (key-size plus the sum of its
// value weights, per the design note). It fails if key is already leased by someone else. Lease
// never evicts key itself, even if doing so would otherwise be due.
func (c *Cache) Lease(key string, weight int) (LeaseToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.lru.Get(key); ok {
		if e.leased {
			return "", fmt.Errorf("state: key %q is already leased", key)
		}
		c.curWeight += weight - e.weight
		e.weight = weight
		e.leased = true
		e.token = LeaseToken(uuid.NewString())
		c.lru.Add(key, e)
		return e.token, nil
	}

	e := &cacheEntry{weight: weight, leased: true, token: LeaseToken(uuid.NewString())}
	c.lru.Add(key, e)
	c.curWeight += weight
	return e.token, nil
}

// Release gives up the lease on key, identified by token, updating its weight to the value the
// caller is leaving behind. It then evicts unleased entries, oldest first, until the cache is
// back under its weight budget.
func (c *Cache) Release(key string, token LeaseToken, weight int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok || !e.leased || e.token != token {
		return fmt.Errorf("state: release of key %q with an unrecognized or stale lease token", key)
	}
	c.curWeight += weight - e.weight
	e.weight = weight
	e.leased = false
	e.token = ""
	c.lru.Add(key, e)

	c.evictToBudgetLocked()
	return nil
}

// evictToBudgetLocked removes unleased entries, least-recently-used first, until curWeight is at
// or below maxWeight or no unleased entry remains. The caller must hold c.mu.
func (c *Cache) evictToBudgetLocked() {
	if c.maxWeight <= 0 {
		return
	}
	for c.curWeight > c.maxWeight {
		evicted := false
		for _, key := range c.lru.Keys() {
			e, ok := c.lru.Peek(key)
			if !ok || e.leased {
				continue
			}
			c.lru.Remove(key)
			c.curWeight -= e.weight
			evicted = true
			break
		}
		if !evicted {
			return
		}
	}
}

// Teardown discards every entry regardless of lease state. Callers must ensure no worker still
// holds a lease before calling it.
func (c *Cache) Teardown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.curWeight = 0
	return nil
}

// Weight returns the cache's current total weight, for diagnostics and tests.
func (c *Cache) Weight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.curWeight
}
