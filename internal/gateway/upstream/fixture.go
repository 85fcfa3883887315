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

package upstream

import (
	"context"
	"sort"
	"sync"
)

// FixtureClient is an in-memory Client used by tests and as the backing
// store that cmd/fixture-upstream serves over HTTP. It serves a fixed set of
// fills per user, paginating them exactly like a real exchange would
// (ordered ascending, capped at BatchMax per call).
type FixtureClient struct {
	mu      sync.Mutex
	fills   map[string][]RawFill // keyed by the user string exactly as passed to Seed
	chs     map[string]ClearinghouseState
	calls   int
	failing bool
}

// NewFixtureClient builds an empty fixture; use Seed to populate it.
func NewFixtureClient() *FixtureClient {
	return &FixtureClient{
		fills: make(map[string][]RawFill),
		chs:   make(map[string]ClearinghouseState),
	}
}

// Seed installs the fill set for a user, sorted ascending by time to
// match the upstream's documented ordering guarantee.
func (f *FixtureClient) Seed(user string, fills []RawFill) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sorted := append([]RawFill(nil), fills...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	f.fills[user] = sorted
}

// SeedClearinghouse installs the clearinghouse snapshot for a user.
func (f *FixtureClient) SeedClearinghouse(user string, state ClearinghouseState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chs[user] = state
}

// SetFailing makes every subsequent call return a transport error,
// simulating an upstream outage.
func (f *FixtureClient) SetFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

// CallCount returns the number of FetchFillsOnce invocations observed
// so far; used by single-flight and pagination tests to assert the
// upstream was hit the expected number of times.
func (f *FixtureClient) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FixtureClient) FetchFillsOnce(ctx context.Context, user string, startMs, endMs int64) ([]RawFill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failing {
		return nil, &TransportError{Op: "fetchFillsOnce", Message: "simulated outage"}
	}
	all := f.fills[user]
	var page []RawFill
	for _, fl := range all {
		if fl.Time >= startMs && fl.Time <= endMs {
			page = append(page, fl)
			if len(page) == BatchMax {
				break
			}
		}
	}
	return page, nil
}

func (f *FixtureClient) FetchClearinghouse(ctx context.Context, user string) (ClearinghouseState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return ClearinghouseState{}, &TransportError{Op: "fetchClearinghouse", Message: "simulated outage"}
	}
	return f.chs[user], nil
}

func (f *FixtureClient) Healthy(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return &TransportError{Op: "meta", Message: "simulated outage"}
	}
	return nil
}

var _ Client = (*FixtureClient)(nil)
