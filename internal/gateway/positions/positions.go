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

// Package positions implements the Position Service (C7): average-cost
// position reconstruction per coin, replayed from a user's full fill
// history so that avgEntryPx is correct as of fromMs.
package positions

import (
	"context"
	"sort"
	"strings"

	"hlgateway/internal/gateway/builder"
	"hlgateway/internal/gateway/trades"
	"hlgateway/internal/gateway/upstream"
)

// Params describes a getPositionHistory query.
type Params struct {
	User         string
	Coin         string // "" means every coin observed in the fills
	FromMs       int64
	ToMs         int64
	BuilderOnly  bool
	IncludePrior bool // default true at the HTTP layer
}

// State is one emitted position snapshot (spec.md §3).
type State struct {
	TimeMs     int64   `json:"timeMs"`
	Coin       string  `json:"coin"`
	NetSize    float64 `json:"netSize"`
	AvgEntryPx float64 `json:"avgEntryPx"`
	Tainted    bool    `json:"tainted"`
}

// Service reconstructs position history on top of the Trade Service's
// raw fill accessor.
type Service struct {
	trades  *trades.Service
	builder builder.Filter
}

// New constructs a positions Service.
func New(tradeSvc *trades.Service, bf builder.Filter) *Service {
	return &Service{trades: tradeSvc, builder: bf}
}

// GetPositionHistory implements C7's getPositionHistory.
func (s *Service) GetPositionHistory(ctx context.Context, p Params) ([]State, error) {
	fetchFrom := p.FromMs
	if p.IncludePrior {
		fetchFrom = 0
	}

	fills, err := s.trades.GetRawFills(ctx, trades.Params{
		User: p.User, Coin: p.Coin, FromMs: fetchFrom, ToMs: p.ToMs,
	})
	if err != nil {
		return nil, err
	}

	coins := coinSet(fills, p.Coin)

	var out []State
	for _, coin := range coins {
		out = append(out, s.reconstruct(fills, coin, p)...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimeMs < out[j].TimeMs })
	return out, nil
}

// coinSet returns [upper(coin)] when coin is set, else the distinct
// coins observed in fills, in first-seen order.
func coinSet(fills []upstream.RawFill, coin string) []string {
	if coin != "" {
		return []string{strings.ToUpper(coin)}
	}
	var seen = make(map[string]bool)
	var coins []string
	for _, f := range fills {
		u := strings.ToUpper(f.Coin)
		if !seen[u] {
			seen[u] = true
			coins = append(coins, u)
		}
	}
	return coins
}

// reconstruct replays a single coin's fills under the average-cost
// rules of spec.md §4.7.
func (s *Service) reconstruct(fills []upstream.RawFill, coin string, p Params) []State {
	matching := make([]upstream.RawFill, 0, len(fills))
	for _, f := range fills {
		if strings.EqualFold(f.Coin, coin) {
			matching = append(matching, f)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool { return matching[i].Time < matching[j].Time })

	var netSize, avgEntryPx, totalCost float64
	var hasBuilder, hasNonBuilder bool

	var out []State
	for _, f := range matching {
		isBuilderFill := s.builder.IsBuilderFill(f)
		if p.BuilderOnly && !isBuilderFill {
			// Non-builder fills under builder-only mode do not move the
			// position, but still update the lifecycle's taint counters.
			hasNonBuilder = true
			continue
		}
		if isBuilderFill {
			hasBuilder = true
		} else {
			hasNonBuilder = true
		}

		sgn := signedSize(f)
		prevNet := netSize
		newNet := prevNet + sgn
		px := f.PxFloat()

		switch {
		case prevNet == 0:
			avgEntryPx = px
			totalCost = abs(newNet) * px
		case sameSign(prevNet, sgn):
			totalCost = abs(prevNet)*avgEntryPx + abs(sgn)*px
			if newNet != 0 {
				avgEntryPx = totalCost / abs(newNet)
			}
		case abs(sgn) > abs(prevNet):
			avgEntryPx = px
			totalCost = abs(newNet) * px
		default:
			// reduce: avgEntryPx unchanged, totalCost not re-scaled.
		}
		netSize = newNet

		if netSize == 0 {
			avgEntryPx = 0
		}

		if f.Time >= p.FromMs {
			out = append(out, State{
				TimeMs:     f.Time,
				Coin:       coin,
				NetSize:    netSize,
				AvgEntryPx: avgEntryPx,
				Tainted:    hasBuilder && hasNonBuilder,
			})
		}

		if netSize == 0 {
			hasBuilder, hasNonBuilder = false, false
		}
	}
	return out
}

func signedSize(f upstream.RawFill) float64 {
	sz := f.SzFloat()
	if strings.EqualFold(f.Side, "A") {
		return -sz
	}
	return sz
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
