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

package positions

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"hlgateway/internal/gateway/builder"
	"hlgateway/internal/gateway/cache"
	"hlgateway/internal/gateway/trades"
	"hlgateway/internal/gateway/upstream"
)

func newService(t *testing.T, user string, fills []upstream.RawFill, target string) *Service {
	t.Helper()
	fc := upstream.NewFixtureClient()
	fc.Seed(user, fills)
	ts := trades.New(fc, cache.NewStore(time.Minute, time.Minute), builder.New(target))
	return New(ts, builder.New(target))
}

func TestGetPositionHistory_S1EndsFlat(t *testing.T) {
	user := "0xabc0000000000000000000000000000000000d"
	svc := newService(t, user, []upstream.RawFill{
		{Coin: "BTC", Side: "B", Px: "100", Sz: "1", Time: 1000},
		{Coin: "BTC", Side: "A", Px: "110", Sz: "1", Time: 2000},
	}, "")

	states, err := svc.GetPositionHistory(context.Background(), Params{
		User: user, FromMs: 0, ToMs: 3000, IncludePrior: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected two states, got %d", len(states))
	}
	last := states[len(states)-1]
	if last.NetSize != 0 || last.AvgEntryPx != 0 {
		t.Fatalf("expected flat ending state, got %+v", last)
	}
}

func TestGetPositionHistory_S3Flip(t *testing.T) {
	user := "0xabc0000000000000000000000000000000000d"
	svc := newService(t, user, []upstream.RawFill{
		{Coin: "ETH", Side: "B", Px: "100", Sz: "2", Time: 1000},
		{Coin: "ETH", Side: "A", Px: "120", Sz: "5", Time: 2000},
	}, "")

	states, err := svc.GetPositionHistory(context.Background(), Params{
		User: user, Coin: "ETH", FromMs: 0, ToMs: 3000, IncludePrior: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := states[len(states)-1]
	if last.NetSize != -3 || last.AvgEntryPx != 120 {
		t.Fatalf("expected flip to netSize=-3 avgEntryPx=120, got %+v", last)
	}
}

func TestGetPositionHistory_ExactFlipClosesRatherThanFlips(t *testing.T) {
	user := "0xabc0000000000000000000000000000000000d"
	svc := newService(t, user, []upstream.RawFill{
		{Coin: "ETH", Side: "B", Px: "100", Sz: "2", Time: 1000},
		{Coin: "ETH", Side: "A", Px: "120", Sz: "2", Time: 2000},
	}, "")

	states, err := svc.GetPositionHistory(context.Background(), Params{
		User: user, Coin: "ETH", FromMs: 0, ToMs: 3000, IncludePrior: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := states[len(states)-1]
	if last.NetSize != 0 || last.AvgEntryPx != 0 {
		t.Fatalf("expected exact flip to end the lifecycle at net 0, got %+v", last)
	}
}

func TestGetPositionHistory_BuilderOnlyExcludesNonBuilderFillsButTaints(t *testing.T) {
	user := "0xabc0000000000000000000000000000000000d"
	target := "0xaaa0000000000000000000000000000000000a"
	svc := newService(t, user, []upstream.RawFill{
		{Coin: "BTC", Side: "B", Px: "100", Sz: "1", Time: 1000, Builder: mustBuilderField(t, `"`+target+`"`)},
		{Coin: "BTC", Side: "B", Px: "101", Sz: "1", Time: 2000}, // non-builder, skipped for position
		{Coin: "BTC", Side: "A", Px: "105", Sz: "1", Time: 3000, Builder: mustBuilderField(t, `"`+target+`"`)},
	}, target)

	states, err := svc.GetPositionHistory(context.Background(), Params{
		User: user, Coin: "BTC", FromMs: 0, ToMs: 4000, IncludePrior: true, BuilderOnly: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected only the two builder-attributed fills to move the position, got %d states", len(states))
	}
	if states[0].NetSize != 1 || states[0].Tainted {
		t.Fatalf("expected the opening state to be untainted, got %+v", states[0])
	}
	last := states[len(states)-1]
	if last.NetSize != 0 {
		t.Fatalf("expected the position to close once the second builder fill lands, got %+v", last)
	}
	if !last.Tainted {
		t.Fatalf("expected the closing state to be tainted once a non-builder fill was observed in between, got %+v", last)
	}
}

func mustBuilderField(t *testing.T, raw string) upstream.BuilderField {
	t.Helper()
	var b upstream.BuilderField
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		t.Fatalf("unmarshal builder field: %v", err)
	}
	return b
}

func TestGetPositionHistory_IncludePriorAffectsEntryPriceNotEmission(t *testing.T) {
	user := "0xabc0000000000000000000000000000000000d"
	svc := newService(t, user, []upstream.RawFill{
		{Coin: "BTC", Side: "B", Px: "100", Sz: "1", Time: 500},  // prior to window
		{Coin: "BTC", Side: "B", Px: "200", Sz: "1", Time: 1500}, // within window
	}, "")

	states, err := svc.GetPositionHistory(context.Background(), Params{
		User: user, Coin: "BTC", FromMs: 1000, ToMs: 3000, IncludePrior: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(states) != 1 {
		t.Fatalf("expected only the in-window fill to emit, got %d", len(states))
	}
	// avg cost after both fills: (1*100 + 1*200)/2 = 150
	if states[0].AvgEntryPx != 150 {
		t.Fatalf("expected prior fill to affect entry price via add-on-same-sign, got %+v", states[0])
	}
	if states[0].NetSize != 2 {
		t.Fatalf("expected net size 2 after both buys, got %v", states[0].NetSize)
	}
}
