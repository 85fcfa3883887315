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

// Package trades implements the Trade Service (C6): it assembles the
// cached, paginated fill set for a user/window, applies the optional
// builder and collapse filters, and normalizes fills to the public
// trade shape. Position (C7) and PnL (C8) both sit on top of the raw
// accessor this package exposes.
package trades

import (
	"context"
	"sort"
	"strings"

	"hlgateway/internal/gateway/builder"
	"hlgateway/internal/gateway/cache"
	"hlgateway/internal/gateway/paginate"
	"hlgateway/internal/gateway/upstream"
)

// Params describes a single trades/positions/PnL query window, shared
// across C6-C8.
type Params struct {
	User        string
	Coin        string // "" means no coin filter
	FromMs      int64
	ToMs        int64
	BuilderOnly bool
	CollapseBy  string // "", "hash", "oid", "tid"
}

// Trade is the normalized, public trade shape (spec.md §3).
type Trade struct {
	TimeMs    int64   `json:"timeMs"`
	Coin      string  `json:"coin"`
	Side      string  `json:"side"` // "buy" | "sell"
	Px        float64 `json:"px"`
	Sz        float64 `json:"sz"`
	Fee       float64 `json:"fee"`
	ClosedPnl float64 `json:"closedPnl"`
	Builder   string  `json:"builder,omitempty"`
}

// Service wires the cache and paginator behind a single user-facing
// raw-fill accessor, and the builder filter for the builderOnly mode.
type Service struct {
	client  paginate.Fetcher
	caches  *cache.Store
	builder builder.Filter
}

// New constructs a trades Service.
func New(client paginate.Fetcher, caches *cache.Store, bf builder.Filter) *Service {
	return &Service{client: client, caches: caches, builder: bf}
}

// GetRawFills returns every raw fill in params' window, read through
// the fills cache, then re-filtered to [fromMs, toMs]. The cache key
// already pins the exact window, so the re-filter is purely defensive
// (spec.md §4.6 step 1).
func (s *Service) GetRawFills(ctx context.Context, p Params) ([]upstream.RawFill, error) {
	key := cache.FillsKey(p.User, p.Coin, p.FromMs, p.ToMs)
	fills, err := s.caches.Fills.Get(key, func() ([]upstream.RawFill, error) {
		return paginate.FetchAllFills(ctx, s.client, p.User, p.Coin, p.FromMs, p.ToMs)
	})
	if err != nil {
		return nil, err
	}

	out := make([]upstream.RawFill, 0, len(fills))
	for _, f := range fills {
		if f.Time >= p.FromMs && f.Time <= p.ToMs {
			out = append(out, f)
		}
	}
	return out, nil
}

// GetTrades implements C6's getTrades: fetch, optional builder filter,
// optional collapse, normalize.
func (s *Service) GetTrades(ctx context.Context, p Params) ([]Trade, error) {
	fills, err := s.GetRawFills(ctx, p)
	if err != nil {
		return nil, err
	}

	if p.BuilderOnly {
		fills = s.builder.FilterBuilder(fills)
	}

	if p.CollapseBy == "hash" || p.CollapseBy == "oid" || p.CollapseBy == "tid" {
		fills = collapse(fills, p.CollapseBy)
	}

	trades := make([]Trade, 0, len(fills))
	for _, f := range fills {
		trades = append(trades, Normalize(f))
	}
	return trades, nil
}

// collapse sorts fills by time ascending and keeps only the first fill
// observed per distinct non-absent key value for the given strategy;
// fills lacking the key pass through unchanged (spec.md §4.6 step 3).
func collapse(fills []upstream.RawFill, by string) []upstream.RawFill {
	sorted := make([]upstream.RawFill, len(fills))
	copy(sorted, fills)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	seen := make(map[string]bool)
	out := make([]upstream.RawFill, 0, len(sorted))
	for _, f := range sorted {
		key, ok := f.CollapseKey(by)
		if !ok {
			out = append(out, f)
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

// Normalize converts a raw fill to the public trade shape (spec.md
// §3): side B→buy, A→sell; builder is the reported address when
// present, else the literal "builder" when an unattributed builderFee
// was paid, else absent.
func Normalize(f upstream.RawFill) Trade {
	t := Trade{
		TimeMs:    f.Time,
		Coin:      f.Coin,
		Px:        f.PxFloat(),
		Sz:        f.SzFloat(),
		Fee:       f.FeeFloat(),
		ClosedPnl: f.ClosedPnlFloat(),
	}
	if strings.EqualFold(f.Side, "A") {
		t.Side = "sell"
	} else {
		t.Side = "buy"
	}
	if addr, ok := f.Builder.Address(); ok {
		t.Builder = addr
	} else if f.BuilderFeeFloat() > 0 {
		t.Builder = "builder"
	}
	return t
}
