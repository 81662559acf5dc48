/*
Copyright 2026 The Flux authors

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

package cache

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

var errEmptyKey = errors.New("key must not be empty")

// Keyed is a thread-safe in-memory key/object store where every key owns
// its own lock. The store level lock only guards the index and is never held
// while a caller function runs, so a slow update of one key does not delay
// reads or updates of any other key. Reads never take the lock of a key:
// they return the object committed by the last finished update.
//
//	                Keyed
//	┌──────────────────────────────────────┐
//	│ index (RWMutex)                      │
//	│  ├── "a" ──► entry{mu, committed}    │
//	│  ├── "b" ──► entry{mu, committed}    │
//	│  └── "c" ──► entry{mu, committed}    │
//	└──────────────────────────────────────┘
//
// Use the NewKeyed function to create a new store that is ready to use.
type Keyed[T any] struct {
	index   map[string]*entry[T]
	metrics *cacheMetrics
	mu      sync.RWMutex
}

// entry holds the last committed object of a key. mu serializes updates
// only.
type entry[T any] struct {
	committed atomic.Pointer[T]
	mu        sync.Mutex
}

func (e *entry[T]) load() T {
	if p := e.committed.Load(); p != nil {
		return *p
	}
	var zero T
	return zero
}

// NewKeyed creates a new empty Keyed store.
func NewKeyed[T any](opts ...Options) (*Keyed[T], error) {
	opt, err := makeOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to apply options: %w", err)
	}

	c := &Keyed[T]{
		index: make(map[string]*entry[T]),
	}
	if opt.registerer != nil {
		c.metrics = newCacheMetrics(opt.metricsPrefix, opt.registerer)
	}
	return c, nil
}

// Get returns a copy of the object stored for the given key, and a bool
// indicating whether the key was found. It does not wait for an update of the
// same key in progress and returns the object as it was before that update.
func (c *Keyed[T]) Get(key string) (T, bool, error) {
	var res T
	if key == "" {
		recordRequest(c.metrics, StatusFailure)
		return res, false, &CacheError{Reason: ErrInvalidKey, Err: errEmptyKey}
	}

	c.mu.RLock()
	e, found := c.index[key]
	c.mu.RUnlock()
	var p *T
	if found {
		p = e.committed.Load()
	}
	// a key whose first update is still running is a miss
	if p == nil {
		recordRequest(c.metrics, StatusSuccess)
		recordCacheEvent(c.metrics, CacheEventTypeMiss, key)
		return res, false, nil
	}

	res = *p
	recordRequest(c.metrics, StatusSuccess)
	recordCacheEvent(c.metrics, CacheEventTypeHit, key)
	return res, true, nil
}

// Update calls fn with exclusive access to the object stored for the given
// key. If the key is not in the store, a zero object is added first. Updates
// of the same key are serialized; updates of different keys run in parallel.
// fn works on a copy that is committed once it returns, so concurrent
// readers never see a partial update. The error returned by fn is returned
// as is, and changes made by fn before failing are kept. Nothing is
// committed if fn panics.
func (c *Keyed[T]) Update(key string, fn func(object *T) error) error {
	if key == "" {
		recordRequest(c.metrics, StatusFailure)
		return &CacheError{Reason: ErrInvalidKey, Err: errEmptyKey}
	}

	e := c.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	object := e.load()
	err := fn(&object)
	e.committed.Store(&object)
	if err != nil {
		recordRequest(c.metrics, StatusFailure)
		return err
	}
	recordRequest(c.metrics, StatusSuccess)
	return nil
}

// entry returns the entry for key, adding it to the index if needed.
func (c *Keyed[T]) entry(key string) *entry[T] {
	c.mu.RLock()
	e, found := c.index[key]
	c.mu.RUnlock()
	if found {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// another caller may have added it between the two locks
	if e, found = c.index[key]; found {
		return e
	}
	e = &entry[T]{}
	c.index[key] = e
	recordItemIncrement(c.metrics)
	return e
}

// ListKeys returns the sorted keys present in the store.
func (c *Keyed[T]) ListKeys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.index))
	for k := range c.index {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	recordRequest(c.metrics, StatusSuccess)
	return keys
}

// Len returns the number of keys in the store.
func (c *Keyed[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.index)
}
