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

package pnl

import (
	"context"
	"strconv"
	"testing"
	"time"

	"hlgateway/internal/gateway/builder"
	"hlgateway/internal/gateway/cache"
	"hlgateway/internal/gateway/trades"
	"hlgateway/internal/gateway/upstream"
)

func newService(t *testing.T, user string, fills []upstream.RawFill, equity float64, target string, nowMs int64) *Service {
	t.Helper()
	fc := upstream.NewFixtureClient()
	fc.Seed(user, fills)
	fc.SeedClearinghouse(user, upstream.ClearinghouseState{
		MarginSummary: struct {
			AccountValue string `json:"accountValue"`
		}{AccountValue: floatString(equity)},
	})
	ts := trades.New(fc, cache.NewStore(time.Minute, time.Minute), builder.New(target))
	return New(ts, fc, builder.New(target), func() int64 { return nowMs })
}

func floatString(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func TestCalculatePnl_S1(t *testing.T) {
	user := "0xabc0000000000000000000000000000000000d"
	svc := newService(t, user, []upstream.RawFill{
		{Coin: "BTC", Side: "B", Px: "100", Sz: "1", Time: 1000, ClosedPnl: "0", Fee: "1"},
		{Coin: "BTC", Side: "A", Px: "110", Sz: "1", Time: 2000, ClosedPnl: "10", Fee: "1"},
	}, 1000, "", 5000)

	res, err := svc.CalculatePnl(context.Background(), Params{User: user, FromMs: 0, ToMs: 3000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RealizedPnl != 10 || res.FeesPaid != 2 || res.TradeCount != 2 || res.Tainted {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestCalculatePnl_S4ReturnCapClamps(t *testing.T) {
	user := "0xabc0000000000000000000000000000000000d"
	svc := newService(t, user, []upstream.RawFill{
		{Coin: "BTC", Side: "A", Px: "1", Sz: "1", Time: 1000, ClosedPnl: "5000"},
	}, 10000, "", 5000)

	res, err := svc.CalculatePnl(context.Background(), Params{
		User: user, FromMs: 0, ToMs: 2000, MaxStartCapital: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.EffectiveCapital != 1 {
		t.Fatalf("expected effective capital clamped to 1, got %v", res.EffectiveCapital)
	}
	if res.ReturnPct != 1000 {
		t.Fatalf("expected returnPct capped at 1000, got %v", res.ReturnPct)
	}
}

func TestCalculatePnl_BuilderOnlyTaintsOnMixedLifecycle(t *testing.T) {
	user := "0xabc0000000000000000000000000000000000d"
	target := "0xaaa0000000000000000000000000000000000a"
	svc := newService(t, user, []upstream.RawFill{
		{Coin: "BTC", Side: "B", Px: "100", Sz: "1", Time: 1000, BuilderFee: "1"},
		{Coin: "BTC", Side: "B", Px: "101", Sz: "1", Time: 2000},
		{Coin: "BTC", Side: "A", Px: "105", Sz: "2", Time: 3000, BuilderFee: "1"},
	}, 1000, target, 5000)

	res, err := svc.CalculatePnl(context.Background(), Params{
		User: user, FromMs: 0, ToMs: 4000, BuilderOnly: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Tainted {
		t.Fatalf("expected tainted=true when both builder and non-builder fills exist, got %+v", res)
	}
	if res.TradeCount != 2 {
		t.Fatalf("expected only the two builder-attributed fills counted, got %d", res.TradeCount)
	}
}

func TestCalculateVolume(t *testing.T) {
	user := "0xabc0000000000000000000000000000000000d"
	svc := newService(t, user, []upstream.RawFill{
		{Coin: "BTC", Side: "B", Px: "100", Sz: "2", Time: 1000},
		{Coin: "BTC", Side: "A", Px: "50", Sz: "1", Time: 2000},
	}, 1000, "", 5000)

	vol, err := svc.CalculateVolume(context.Background(), Params{User: user, FromMs: 0, ToMs: 3000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vol != 250 {
		t.Fatalf("expected volume 250, got %v", vol)
	}
}

func TestCalculatePnl_FromMsAtOrPastNowUsesCurrentEquity(t *testing.T) {
	user := "0xabc0000000000000000000000000000000000d"
	svc := newService(t, user, nil, 777, "", 1000)

	res, err := svc.CalculatePnl(context.Background(), Params{User: user, FromMs: 2000, ToMs: 3000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.EffectiveCapital != 777 {
		t.Fatalf("expected effective capital to equal current equity unadjusted, got %v", res.EffectiveCapital)
	}
}
