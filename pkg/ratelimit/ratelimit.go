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

// Package ratelimit provides a thread-safe, in-memory weighted token
// bucket. It is designed to gate calls to a rate-limited upstream by a
// per-call weight rather than a flat per-request cost.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Default tuning, matching a typical exchange's published weight budget.
const (
	DefaultMaxWeight = 1200
	DefaultWindow    = 60 * time.Second

	// pollCap bounds how long any single wait iteration sleeps, so a
	// waiter always gets a chance to observe context cancellation
	// instead of blocking on a single long timer.
	pollCap = time.Second
)

// Bucket is a weighted token bucket over a rolling window. Tokens refill
// lazily: State is only recomputed when a caller touches the bucket, not
// on a ticker, so an idle bucket costs nothing.
//
// Available = min(maxWeight, tokens + elapsed/refillPeriod), clamped to
// maxWeight. acquire(weight) blocks (polling, not via condvar) until at
// least weight tokens are present, then deducts the full weight
// atomically; it never hands out a partial grant.
type Bucket struct {
	mu sync.Mutex

	maxWeight    float64
	refillPeriod time.Duration // time to accrue one token

	tokens   float64
	lastFill time.Time

	now func() time.Time
}

// Option configures a Bucket at construction time.
type Option func(*Bucket)

// WithClock overrides the time source; intended for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Bucket) { b.now = now }
}

// New creates a bucket with the given capacity and refill window. The
// bucket starts full, mirroring an upstream that has not yet seen any
// traffic from this process.
func New(maxWeight int, window time.Duration, opts ...Option) *Bucket {
	if maxWeight <= 0 {
		maxWeight = DefaultMaxWeight
	}
	if window <= 0 {
		window = DefaultWindow
	}
	b := &Bucket{
		maxWeight:    float64(maxWeight),
		refillPeriod: time.Duration(int64(window) / int64(maxWeight)),
		tokens:       float64(maxWeight),
		now:          time.Now,
	}
	if b.refillPeriod <= 0 {
		b.refillPeriod = time.Nanosecond
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastFill = b.now()
	return b
}

// refillLocked recomputes the available tokens from elapsed wall time.
// Must be called with mu held.
func (b *Bucket) refillLocked() {
	now := b.now()
	elapsed := now.Sub(b.lastFill)
	if elapsed <= 0 {
		return
	}
	accrued := float64(elapsed) / float64(b.refillPeriod)
	if accrued <= 0 {
		return
	}
	b.tokens += accrued
	if b.tokens > b.maxWeight {
		b.tokens = b.maxWeight
	}
	b.lastFill = now
}

// TryAcquire attempts to deduct weight tokens without blocking. It
// returns true and deducts atomically only if the full weight is
// currently available.
func (b *Bucket) TryAcquire(weight int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	w := float64(weight)
	if b.tokens < w {
		return false
	}
	b.tokens -= w
	return true
}

// Acquire blocks until weight tokens are available, then deducts them,
// or returns ctx.Err() if the context is cancelled first. On
// cancellation no tokens are consumed. The wait is implemented as a
// bounded sleep-poll (never longer than pollCap per iteration) so no
// condition variable or registered-waiter bookkeeping is required, and
// a cancelled caller always wakes within one poll interval.
func (b *Bucket) Acquire(ctx context.Context, weight int) error {
	if weight <= 0 {
		return nil
	}
	for {
		if b.TryAcquire(weight) {
			return nil
		}

		wait := b.waitHint(weight)
		if wait > pollCap {
			wait = pollCap
		}
		if wait <= 0 {
			wait = time.Millisecond
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// waitHint estimates how long until weight tokens will be available,
// given the current shortfall and refill rate. It is advisory only: the
// actual grant is always re-checked under the lock by the next
// TryAcquire call, so a slightly stale estimate cannot cause incorrect
// admission.
func (b *Bucket) waitHint(weight int) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	shortfall := float64(weight) - b.tokens
	if shortfall <= 0 {
		return 0
	}
	return time.Duration(shortfall * float64(b.refillPeriod))
}

// Available returns a snapshot of the currently available tokens,
// rounded down. Useful for health/metrics reporting.
func (b *Bucket) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	return int(b.tokens)
}

// Capacity returns the bucket's maximum weight.
func (b *Bucket) Capacity() int {
	return int(b.maxWeight)
}
