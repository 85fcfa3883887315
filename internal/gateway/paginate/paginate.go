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

// Package paginate assembles the full fill set for a (user, window)
// pair by repeatedly calling the upstream client and advancing a
// cursor, tolerating nothing: a single page failure aborts the whole
// window (spec.md §7 "Paginator errors abort the whole window").
package paginate

import (
	"context"
	"sort"
	"strings"

	"hlgateway/internal/gateway/telemetry"
	"hlgateway/internal/gateway/upstream"
)

// Fetcher is the subset of upstream.Client the paginator needs.
type Fetcher interface {
	FetchFillsOnce(ctx context.Context, user string, startMs, endMs int64) ([]upstream.RawFill, error)
}

// FetchAllFills implements C3: it assembles every fill in [fromMs, toMs]
// for user, optionally restricted to a single coin. The coin filter is
// applied to each page as it arrives, but the BatchMax/continuation
// decision is always made on the raw, unfiltered page so that a narrow
// coin filter does not cause premature termination (spec.md §4.3).
func FetchAllFills(ctx context.Context, client Fetcher, user string, coin string, fromMs, toMs int64) ([]upstream.RawFill, error) {
	var out []upstream.RawFill
	cursor := fromMs
	wantCoin := strings.ToUpper(coin)
	pages := 0

	for {
		page, err := client.FetchFillsOnce(ctx, user, cursor, toMs)
		if err != nil {
			return nil, err
		}
		pages++
		if len(page) == 0 {
			break
		}

		if wantCoin == "" {
			out = append(out, page...)
		} else {
			for _, f := range page {
				if strings.EqualFold(f.Coin, wantCoin) {
					out = append(out, f)
				}
			}
		}

		lastTime := page[len(page)-1].Time
		if len(page) < upstream.BatchMax {
			break
		}
		// Advancing past the last observed timestamp assumes
		// millisecond granularity; fills sharing lastTime exactly with
		// the next page's start are dropped. This is the accepted
		// upstream contract (spec.md §4.3, §9).
		cursor = lastTime + 1
	}

	telemetry.ObservePaginatorPages(pages)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}
