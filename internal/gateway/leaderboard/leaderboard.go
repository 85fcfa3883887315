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

// Package leaderboard implements the Leaderboard Service (C10): it
// fans out a PnL computation over every registered user, ranks the
// survivors by the requested metric, and truncates to the requested
// limit.
package leaderboard

import (
	"context"
	"sort"
	"time"

	"hlgateway/internal/gateway/pnl"
	"hlgateway/internal/gateway/registry"
	"hlgateway/internal/gateway/telemetry"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Params describes a getLeaderboard query.
type Params struct {
	Metric          string // "pnl" | "returnPct" | "volume"
	Coin            string
	FromMs          int64
	ToMs            int64
	BuilderOnly     bool
	MaxStartCapital float64
	Limit           int
}

// Entry is a single ranked leaderboard row (spec.md §3).
type Entry struct {
	Rank        int     `json:"rank"`
	User        string  `json:"user"`
	MetricValue float64 `json:"metricValue"`
	TradeCount  int     `json:"tradeCount"`
	Tainted     bool    `json:"tainted"`
}

// FailureLogger is called with the offending user and error whenever a
// per-user PnL computation fails; the user is then skipped.
type FailureLogger func(user string, err error)

// NowFunc returns the current time as milliseconds since epoch.
type NowFunc func() int64

// Service computes leaderboards over a Registry snapshot using a PnL
// Service for each member.
type Service struct {
	registry *registry.Registry
	pnl      *pnl.Service
	logFail  FailureLogger
	now      NowFunc
}

// New constructs a leaderboard Service.
func New(reg *registry.Registry, pnlSvc *pnl.Service, logFail FailureLogger, now NowFunc) *Service {
	return &Service{registry: reg, pnl: pnlSvc, logFail: logFail, now: now}
}

// Result is the public getLeaderboard response shape.
type Result struct {
	Entries     []Entry `json:"entries"`
	GeneratedAt int64   `json:"generatedAt"`
}

// GetLeaderboard implements C10's getLeaderboard.
func (s *Service) GetLeaderboard(ctx context.Context, p Params) (Result, error) {
	start := time.Now()
	defer func() { telemetry.ObserveLeaderboardCompute(time.Since(start)) }()

	users := s.registry.List()

	type scored struct {
		user    string
		value   float64
		trades  int
		tainted bool
		order   int
	}

	scoredUsers := make([]scored, 0, len(users))
	for i, user := range users {
		pnlParams := pnl.Params{
			User: user, Coin: p.Coin, FromMs: p.FromMs, ToMs: p.ToMs,
			BuilderOnly: p.BuilderOnly, MaxStartCapital: p.MaxStartCapital,
		}
		res, err := s.pnl.CalculatePnl(ctx, pnlParams)
		if err != nil {
			telemetry.ObserveLeaderboardUserError()
			if s.logFail != nil {
				s.logFail(user, err)
			}
			continue
		}
		if p.BuilderOnly && res.Tainted {
			continue
		}

		value := res.RealizedPnl
		switch p.Metric {
		case "returnPct":
			value = res.ReturnPct
		case "volume":
			vol, err := s.pnl.CalculateVolume(ctx, pnlParams)
			if err != nil {
				telemetry.ObserveLeaderboardUserError()
				if s.logFail != nil {
					s.logFail(user, err)
				}
				continue
			}
			value = vol
		}

		scoredUsers = append(scoredUsers, scored{
			user: user, value: value, trades: res.TradeCount, tainted: res.Tainted, order: i,
		})
	}

	sort.SliceStable(scoredUsers, func(i, j int) bool {
		if scoredUsers[i].value != scoredUsers[j].value {
			return scoredUsers[i].value > scoredUsers[j].value
		}
		return scoredUsers[i].order < scoredUsers[j].order
	})

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if limit < len(scoredUsers) {
		scoredUsers = scoredUsers[:limit]
	}

	entries := make([]Entry, len(scoredUsers))
	for i, su := range scoredUsers {
		entries[i] = Entry{
			Rank:        i + 1,
			User:        su.user,
			MetricValue: su.value,
			TradeCount:  su.trades,
			Tainted:     su.tainted,
		}
	}

	return Result{Entries: entries, GeneratedAt: s.now()}, nil
}
