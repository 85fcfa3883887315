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

// Package builder implements the builder-attribution filter (C5): it
// decides which fills count as "builder fills" against a single
// configured target address, and detects when a reconstructed
// lifecycle mixes builder and non-builder activity.
package builder

import (
	"sort"
	"strings"

	"hlgateway/internal/gateway/upstream"
)

// Filter is configured with an optional target builder address,
// lowercased once at construction. A zero-value Filter (no target) is
// usable: it never attributes any fill to a builder.
type Filter struct {
	target    string
	hasTarget bool
}

// New constructs a Filter for target. An empty target means no builder
// is configured.
func New(target string) Filter {
	if target == "" {
		return Filter{}
	}
	return Filter{target: strings.ToLower(target), hasTarget: true}
}

// HasTarget reports whether a target builder is configured.
func (f Filter) HasTarget() bool { return f.hasTarget }

// BuilderOf returns the upstream-reported builder address for fill,
// regardless of the configured target.
func BuilderOf(fill upstream.RawFill) (string, bool) {
	return fill.Builder.Address()
}

// IsBuilderFill reports whether fill counts as attributed to the
// configured target builder: either the fill names the target
// explicitly, or it names no builder at all but paid a positive
// builderFee (spec.md §4.5).
func (f Filter) IsBuilderFill(fill upstream.RawFill) bool {
	if !f.hasTarget {
		return false
	}
	if addr, ok := BuilderOf(fill); ok {
		return addr == f.target
	}
	return fill.BuilderFeeFloat() > 0
}

// FilterBuilder returns the subset of fills attributed to the target
// builder. With no target configured it returns an empty slice.
func (f Filter) FilterBuilder(fills []upstream.RawFill) []upstream.RawFill {
	if !f.hasTarget {
		return nil
	}
	out := make([]upstream.RawFill, 0, len(fills))
	for _, fl := range fills {
		if f.IsBuilderFill(fl) {
			out = append(out, fl)
		}
	}
	return out
}

// Lifecycle is one open-to-close (or trailing partial) run of a coin's
// position, as observed by walking its fills in time order.
type Lifecycle struct {
	Fills         []upstream.RawFill
	HasBuilder    bool
	HasNonBuilder bool
}

// Tainted reports whether the lifecycle mixes builder and non-builder
// fills.
func (l Lifecycle) Tainted() bool { return l.HasBuilder && l.HasNonBuilder }

// GroupByLifecycle sorts coin-matching fills by time and partitions
// them into lifecycles: a new lifecycle begins on a 0→non-zero netSize
// transition and ends on a return to zero; a trailing open run is
// still emitted as a (partial) lifecycle.
func (f Filter) GroupByLifecycle(fills []upstream.RawFill, coin string) []Lifecycle {
	matching := make([]upstream.RawFill, 0, len(fills))
	for _, fl := range fills {
		if strings.EqualFold(fl.Coin, coin) {
			matching = append(matching, fl)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool { return matching[i].Time < matching[j].Time })

	var lifecycles []Lifecycle
	var cur *Lifecycle
	var netSize float64

	for _, fl := range matching {
		s := signedSize(fl)
		if netSize == 0 && cur == nil {
			cur = &Lifecycle{}
		}
		cur.Fills = append(cur.Fills, fl)
		if f.hasTarget && f.IsBuilderFill(fl) {
			cur.HasBuilder = true
		} else {
			cur.HasNonBuilder = true
		}
		netSize += s
		if netSize == 0 {
			lifecycles = append(lifecycles, *cur)
			cur = nil
		}
	}
	if cur != nil {
		lifecycles = append(lifecycles, *cur)
	}
	return lifecycles
}

// signedSize returns the fill's signed contribution to netSize: positive
// for a buy, negative for a sell.
func signedSize(fl upstream.RawFill) float64 {
	sz := fl.SzFloat()
	if strings.EqualFold(fl.Side, "A") {
		return -sz
	}
	return sz
}

// DetectTaint returns hasBuilder and hasNonBuilder after a single pass
// over fills, with early exit once both have been observed.
func (f Filter) DetectTaint(fills []upstream.RawFill) (hasBuilder, hasNonBuilder bool) {
	for _, fl := range fills {
		if f.hasTarget && f.IsBuilderFill(fl) {
			hasBuilder = true
		} else {
			hasNonBuilder = true
		}
		if hasBuilder && hasNonBuilder {
			return
		}
	}
	return
}

// AnyLifecycleTainted reports whether any lifecycle reconstructed from
// fills restricted to coin is tainted.
func (f Filter) AnyLifecycleTainted(fills []upstream.RawFill, coin string) bool {
	for _, lc := range f.GroupByLifecycle(fills, coin) {
		if lc.Tainted() {
			return true
		}
	}
	return false
}
