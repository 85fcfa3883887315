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

package leaderboard

import (
	"context"
	"strconv"
	"testing"
	"time"

	"hlgateway/internal/gateway/builder"
	"hlgateway/internal/gateway/cache"
	"hlgateway/internal/gateway/pnl"
	"hlgateway/internal/gateway/registry"
	"hlgateway/internal/gateway/trades"
	"hlgateway/internal/gateway/upstream"
)

func seedEquity(fc *upstream.FixtureClient, user string, equity float64) {
	fc.SeedClearinghouse(user, upstream.ClearinghouseState{
		MarginSummary: struct {
			AccountValue string `json:"accountValue"`
		}{AccountValue: strconv.FormatFloat(equity, 'f', -1, 64)},
	})
}

func TestGetLeaderboard_S5ExcludesTaintedUserUnderBuilderOnly(t *testing.T) {
	target := "0xaaa0000000000000000000000000000000000a"
	userA := "0xa000000000000000000000000000000000000a"
	userB := "0xb000000000000000000000000000000000000b"

	fc := upstream.NewFixtureClient()
	fc.Seed(userA, []upstream.RawFill{
		{Coin: "BTC", Side: "B", Px: "100", Sz: "1", Time: 1000, BuilderFee: "1"},
		{Coin: "BTC", Side: "A", Px: "150", Sz: "1", Time: 2000, ClosedPnl: "50", BuilderFee: "1"},
	})
	fc.Seed(userB, []upstream.RawFill{
		{Coin: "BTC", Side: "B", Px: "100", Sz: "1", Time: 1000, BuilderFee: "1"},
		{Coin: "BTC", Side: "B", Px: "101", Sz: "1", Time: 1500}, // non-builder: taints B
		{Coin: "BTC", Side: "A", Px: "150", Sz: "2", Time: 2000, ClosedPnl: "80", BuilderFee: "1"},
	})
	seedEquity(fc, userA, 1000)
	seedEquity(fc, userB, 1000)

	reg := registry.New()
	reg.Register(userA)
	reg.Register(userB)

	bf := builder.New(target)
	ts := trades.New(fc, cache.NewStore(time.Minute, time.Minute), bf)
	pnlSvc := pnl.New(ts, fc, bf, func() int64 { return 5000 })
	lb := New(reg, pnlSvc, nil, func() int64 { return 123456 })

	res, err := lb.GetLeaderboard(context.Background(), Params{
		Metric: "pnl", FromMs: 0, ToMs: 4000, BuilderOnly: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("expected exactly one surviving entry, got %d: %+v", len(res.Entries), res.Entries)
	}
	if res.Entries[0].User != userA || res.Entries[0].Rank != 1 || res.Entries[0].MetricValue != 50 {
		t.Fatalf("unexpected surviving entry: %+v", res.Entries[0])
	}
}

func TestGetLeaderboard_SortsDescendingWithDenseRanksAndStableTies(t *testing.T) {
	userA := "0xa000000000000000000000000000000000000a"
	userB := "0xb000000000000000000000000000000000000b"
	userC := "0xc000000000000000000000000000000000000c"

	fc := upstream.NewFixtureClient()
	fc.Seed(userA, []upstream.RawFill{{Coin: "BTC", Side: "A", Px: "1", Sz: "1", Time: 1000, ClosedPnl: "10"}})
	fc.Seed(userB, []upstream.RawFill{{Coin: "BTC", Side: "A", Px: "1", Sz: "1", Time: 1000, ClosedPnl: "10"}})
	fc.Seed(userC, []upstream.RawFill{{Coin: "BTC", Side: "A", Px: "1", Sz: "1", Time: 1000, ClosedPnl: "30"}})
	for _, u := range []string{userA, userB, userC} {
		seedEquity(fc, u, 1000)
	}

	reg := registry.New()
	reg.Register(userA)
	reg.Register(userB)
	reg.Register(userC)

	bf := builder.New("")
	ts := trades.New(fc, cache.NewStore(time.Minute, time.Minute), bf)
	pnlSvc := pnl.New(ts, fc, bf, func() int64 { return 5000 })
	lb := New(reg, pnlSvc, nil, func() int64 { return 1 })

	res, err := lb.GetLeaderboard(context.Background(), Params{Metric: "pnl", FromMs: 0, ToMs: 2000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(res.Entries))
	}
	if res.Entries[0].User != userC || res.Entries[0].Rank != 1 {
		t.Fatalf("expected userC to rank first, got %+v", res.Entries[0])
	}
	if res.Entries[1].User != userA || res.Entries[1].Rank != 2 {
		t.Fatalf("expected tie broken by registry insertion order (A before B), got %+v", res.Entries[1])
	}
	if res.Entries[2].User != userB || res.Entries[2].Rank != 3 {
		t.Fatalf("expected B to rank third, got %+v", res.Entries[2])
	}
}

func TestGetLeaderboard_LimitTruncates(t *testing.T) {
	fc := upstream.NewFixtureClient()
	reg := registry.New()
	for i := 0; i < 5; i++ {
		u := "0x" + strconv.Itoa(100000+i) + "0000000000000000000000000000000000"
		u = u[:42]
		reg.Register(u)
		seedEquity(fc, u, 1000)
	}

	bf := builder.New("")
	ts := trades.New(fc, cache.NewStore(time.Minute, time.Minute), bf)
	pnlSvc := pnl.New(ts, fc, bf, func() int64 { return 5000 })
	lb := New(reg, pnlSvc, nil, func() int64 { return 1 })

	res, err := lb.GetLeaderboard(context.Background(), Params{Metric: "pnl", FromMs: 0, ToMs: 2000, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("expected limit to truncate to 2, got %d", len(res.Entries))
	}
}

// failingForUser fails FetchClearinghouse for a single user, leaving
// every other user's lookups untouched; it wraps a FixtureClient for
// both trades.Fetcher and pnl.ClearinghouseFetcher.
type failingForUser struct {
	*upstream.FixtureClient
	badUser string
}

func (f failingForUser) FetchClearinghouse(ctx context.Context, user string) (upstream.ClearinghouseState, error) {
	if user == f.badUser {
		return upstream.ClearinghouseState{}, &upstream.TransportError{Op: "fetchClearinghouse", Message: "simulated per-user outage"}
	}
	return f.FixtureClient.FetchClearinghouse(ctx, user)
}

func TestGetLeaderboard_PerUserFailureIsLoggedAndSkipped(t *testing.T) {
	userA := "0xa000000000000000000000000000000000000a"
	userB := "0xb000000000000000000000000000000000000b"

	fc := upstream.NewFixtureClient()
	fc.Seed(userA, []upstream.RawFill{{Coin: "BTC", Side: "A", Px: "1", Sz: "1", Time: 1000, ClosedPnl: "10"}})
	fc.Seed(userB, []upstream.RawFill{{Coin: "BTC", Side: "A", Px: "1", Sz: "1", Time: 1000, ClosedPnl: "10"}})
	seedEquity(fc, userA, 1000)
	seedEquity(fc, userB, 1000)
	wrapped := failingForUser{FixtureClient: fc, badUser: userB}

	reg := registry.New()
	reg.Register(userA)
	reg.Register(userB)

	bf := builder.New("")
	ts := trades.New(wrapped, cache.NewStore(time.Minute, time.Minute), bf)
	pnlSvc := pnl.New(ts, wrapped, bf, func() int64 { return 5000 })

	var failedUser string
	lb := New(reg, pnlSvc, func(user string, err error) { failedUser = user }, func() int64 { return 1 })

	res, err := lb.GetLeaderboard(context.Background(), Params{Metric: "pnl", FromMs: 0, ToMs: 2000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if failedUser != userB {
		t.Fatalf("expected the failure callback to fire for userB, got %q", failedUser)
	}
	if len(res.Entries) != 1 || res.Entries[0].User != userA {
		t.Fatalf("expected only userA to survive, got %+v", res.Entries)
	}
}
