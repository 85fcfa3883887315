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

package cache

import (
	"fmt"
	"strings"
	"time"

	"hlgateway/internal/gateway/upstream"
)

const (
	DefaultFillsTTL          = 60 * time.Second
	DefaultClearinghouseTTL  = 5 * time.Second
)

// fillsKeyPrefix returns the key prefix shared by every fills-cache
// entry for a user, used both to build exact keys and to match for
// invalidation (spec.md §4.4).
func fillsKeyPrefix(user string) string {
	return strings.ToLower(user) + "|"
}

// FillsKey builds the exact fills-cache key for (user, coin, fromMs,
// toMs). coin is "*" when no coin filter applies, so that filtered and
// unfiltered windows never collide.
func FillsKey(user, coin string, fromMs, toMs int64) string {
	c := coin
	if c == "" {
		c = "*"
	}
	return fmt.Sprintf("%s%s|%d|%d", fillsKeyPrefix(user), strings.ToUpper(c), fromMs, toMs)
}

// ClearinghouseKey builds the exact clearinghouse-cache key for user.
func ClearinghouseKey(user string) string {
	return strings.ToLower(user)
}

// Store bundles the two logically independent caches described by
// spec.md §4.4: fills, keyed by (user, coin, fromMs, toMs), and
// clearinghouse state, keyed by user alone.
type Store struct {
	Fills          *Cache[[]upstream.RawFill]
	Clearinghouse  *Cache[upstream.ClearinghouseState]
}

// NewStore constructs a Store with the given TTLs.
func NewStore(fillsTTL, clearinghouseTTL time.Duration) *Store {
	if fillsTTL <= 0 {
		fillsTTL = DefaultFillsTTL
	}
	if clearinghouseTTL <= 0 {
		clearinghouseTTL = DefaultClearinghouseTTL
	}
	return &Store{
		Fills:         New[[]upstream.RawFill](fillsTTL).WithName("fills"),
		Clearinghouse: New[upstream.ClearinghouseState](clearinghouseTTL).WithName("clearinghouse"),
	}
}

// InvalidateFills drops every fills-cache entry for user, across every
// coin and window.
func (s *Store) InvalidateFills(user string) {
	prefix := fillsKeyPrefix(user)
	s.Fills.Invalidate(func(key string) bool { return strings.HasPrefix(key, prefix) })
}

// InvalidateClearinghouse drops the single clearinghouse entry for user.
func (s *Store) InvalidateClearinghouse(user string) {
	s.Clearinghouse.InvalidateKey(ClearinghouseKey(user))
}
