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

// Package pnl implements the PnL Service (C8): realized PnL, fees,
// trade count and volume over a window, plus the historical-equity
// approximation used to compute a bounded return percentage.
package pnl

import (
	"context"

	"hlgateway/internal/gateway/builder"
	"hlgateway/internal/gateway/trades"
	"hlgateway/internal/gateway/upstream"
)

// DefaultMaxStartCapital is used when params.MaxStartCapital is zero.
const DefaultMaxStartCapital = 1_000_000

// ClearinghouseFetcher is the subset of upstream.Client the PnL
// service needs to approximate historical equity.
type ClearinghouseFetcher interface {
	FetchClearinghouse(ctx context.Context, user string) (upstream.ClearinghouseState, error)
}

// Params describes a calculatePnl/calculateVolume query.
type Params struct {
	User            string
	Coin            string
	FromMs          int64
	ToMs            int64
	BuilderOnly     bool
	MaxStartCapital float64
}

// Result is the public PnL shape (spec.md §3).
type Result struct {
	RealizedPnl      float64 `json:"realizedPnl"`
	ReturnPct        float64 `json:"returnPct"`
	FeesPaid         float64 `json:"feesPaid"`
	TradeCount       int     `json:"tradeCount"`
	Tainted          bool    `json:"tainted"`
	EffectiveCapital float64 `json:"effectiveCapital"`
}

// NowFunc returns the current time as milliseconds since epoch;
// exposed for deterministic tests.
type NowFunc func() int64

// Service computes PnL and volume from the Trade Service's raw fill
// accessor and the upstream's current-equity snapshot.
type Service struct {
	trades  *trades.Service
	ch      ClearinghouseFetcher
	builder builder.Filter
	now     NowFunc
}

// New constructs a PnL Service.
func New(tradeSvc *trades.Service, ch ClearinghouseFetcher, bf builder.Filter, now NowFunc) *Service {
	return &Service{trades: tradeSvc, ch: ch, builder: bf, now: now}
}

// CalculatePnl implements C8's calculatePnl.
func (s *Service) CalculatePnl(ctx context.Context, p Params) (Result, error) {
	fills, err := s.trades.GetRawFills(ctx, trades.Params{User: p.User, Coin: p.Coin, FromMs: p.FromMs, ToMs: p.ToMs})
	if err != nil {
		return Result{}, err
	}

	var realizedPnl, feesPaid, volume float64
	var tradeCount int
	var hasBuilder, hasNonBuilder bool

	for _, f := range fills {
		if f.Time < p.FromMs || f.Time > p.ToMs {
			continue
		}
		isBuilderFill := s.builder.IsBuilderFill(f)
		if isBuilderFill {
			hasBuilder = true
		} else {
			hasNonBuilder = true
		}
		if p.BuilderOnly && !isBuilderFill {
			continue
		}
		realizedPnl += f.ClosedPnlFloat()
		feesPaid += f.FeeFloat()
		tradeCount++
		volume += f.PxFloat() * f.SzFloat()
	}

	equityAtFromMs, err := s.equityAtFromMs(ctx, p)
	if err != nil {
		return Result{}, err
	}

	maxStart := p.MaxStartCapital
	if maxStart <= 0 {
		maxStart = DefaultMaxStartCapital
	}
	effectiveCapital := clamp(equityAtFromMs, 0.01, maxStart)
	returnPct := clamp(100*realizedPnl/effectiveCapital, -1000, 1000)

	return Result{
		RealizedPnl:      realizedPnl,
		ReturnPct:        returnPct,
		FeesPaid:         feesPaid,
		TradeCount:       tradeCount,
		Tainted:          p.BuilderOnly && hasBuilder && hasNonBuilder,
		EffectiveCapital: effectiveCapital,
	}, nil
}

// CalculateVolume reuses the same fill set and summation as
// CalculatePnl but returns only the traded notional.
func (s *Service) CalculateVolume(ctx context.Context, p Params) (float64, error) {
	fills, err := s.trades.GetRawFills(ctx, trades.Params{User: p.User, Coin: p.Coin, FromMs: p.FromMs, ToMs: p.ToMs})
	if err != nil {
		return 0, err
	}
	var volume float64
	for _, f := range fills {
		if f.Time < p.FromMs || f.Time > p.ToMs {
			continue
		}
		if p.BuilderOnly && !s.builder.IsBuilderFill(f) {
			continue
		}
		volume += f.PxFloat() * f.SzFloat()
	}
	return volume, nil
}

// equityAtFromMs approximates historical equity per spec.md §4.8.1:
// current equity minus the sum of closedPnl over fills strictly after
// fromMs and at-or-before now. If fromMs is at or past now, current
// equity is returned unadjusted. The summation window is (fromMs, now],
// independent of the caller's [fromMs, toMs] query window, since now
// may fall after toMs.
func (s *Service) equityAtFromMs(ctx context.Context, p Params) (float64, error) {
	state, err := s.ch.FetchClearinghouse(ctx, p.User)
	if err != nil {
		return 0, err
	}
	currentEquity := state.AccountValueFloat()

	nowMs := s.now()
	if p.FromMs >= nowMs {
		return currentEquity, nil
	}

	sinceFrom, err := s.trades.GetRawFills(ctx, trades.Params{
		User: p.User, Coin: p.Coin, FromMs: p.FromMs + 1, ToMs: nowMs,
	})
	if err != nil {
		return 0, err
	}

	var pnlSinceFrom float64
	for _, f := range sinceFrom {
		pnlSinceFrom += f.ClosedPnlFloat()
	}

	equity := currentEquity - pnlSinceFrom
	if equity < 0.01 {
		equity = 0.01
	}
	return equity, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
