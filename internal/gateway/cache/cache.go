// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache implements the gateway's read-through TTL cache (C4).
// Storage is a sync.Map of small value wrappers keyed by string,
// following the same "managed instance + lastAccessed/insertedAt"
// shape as the teacher's internal/ratelimiter/core.Store, generalized
// here with a type parameter since both the fills cache and the
// clearinghouse cache need the identical get-or-fetch-and-store
// behavior over different value types.
//
// Concurrent Get calls for the same key and an expired/missing entry
// collapse into a single fetch via golang.org/x/sync/singleflight,
// satisfying spec.md §4.4's single-flight requirement without a
// hand-rolled promise map.
package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"hlgateway/internal/gateway/telemetry"
)

type entry[T any] struct {
	value      T
	insertedAt time.Time
}

// Cache is a generic, TTL-bounded read-through cache for a single
// value type. Zero value is not usable; construct with New.
type Cache[T any] struct {
	ttl   time.Duration
	name  string // telemetry label; "" if never set
	store sync.Map // string -> *entry[T]
	group singleflight.Group

	now func() time.Time
}

// New creates a cache with the given TTL. now defaults to time.Now;
// tests may override it to control expiry deterministically.
func New[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{ttl: ttl, now: time.Now}
}

// WithName sets the cache's telemetry label (e.g. "fills",
// "clearinghouse") and returns the receiver for chaining at
// construction time.
func (c *Cache[T]) WithName(name string) *Cache[T] {
	c.name = name
	return c
}

// SetClock overrides the time source; intended for tests only.
func (c *Cache[T]) SetClock(now func() time.Time) { c.now = now }

// Get returns the fresh cached value for key if one exists, otherwise
// invokes fetch exactly once across any concurrently-waiting callers,
// stores the result if fetch succeeded (an error is returned but never
// cached), and returns it. A miss always triggers a prune pass over the whole cache,
// dropping entries older than 2×ttl (spec.md §4.4).
func (c *Cache[T]) Get(key string, fetch func() (T, error)) (T, error) {
	if v, ok := c.fresh(key); ok {
		telemetry.ObserveCacheHit(c.name)
		return v, nil
	}
	telemetry.ObserveCacheMiss(c.name)

	c.prune()

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Re-check under the singleflight lock boundary: another
		// goroutine may have just populated the entry while we were
		// waiting to enter Do for a *different* reason (e.g. this
		// goroutine lost a prior race). This keeps the fetcher-at-most-
		// once guarantee tight even under bursty misses.
		if v, ok := c.fresh(key); ok {
			return v, nil
		}
		v, err := fetch()
		if err != nil {
			return v, err
		}
		c.store.Store(key, &entry[T]{value: v, insertedAt: c.now()})
		return v, nil
	})

	var zero T
	if err != nil {
		return zero, err
	}
	return result.(T), nil
}

// fresh returns the cached value for key if present and within TTL.
func (c *Cache[T]) fresh(key string) (T, bool) {
	var zero T
	v, ok := c.store.Load(key)
	if !ok {
		return zero, false
	}
	e := v.(*entry[T])
	if c.now().Sub(e.insertedAt) >= c.ttl {
		return zero, false
	}
	return e.value, true
}

// prune drops every entry older than 2×ttl. Triggered on every miss
// per spec.md §4.4; cheap relative to the upstream fetch it guards.
func (c *Cache[T]) prune() {
	cutoff := 2 * c.ttl
	now := c.now()
	c.store.Range(func(k, v interface{}) bool {
		e := v.(*entry[T])
		if now.Sub(e.insertedAt) >= cutoff {
			c.store.Delete(k)
		}
		return true
	})
}

// Invalidate drops every key for which match returns true.
func (c *Cache[T]) Invalidate(match func(key string) bool) {
	c.store.Range(func(k, v interface{}) bool {
		if match(k.(string)) {
			c.store.Delete(k)
		}
		return true
	})
}

// InvalidateKey drops a single exact key.
func (c *Cache[T]) InvalidateKey(key string) {
	c.store.Delete(key)
}
