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

// fixture-upstream is a standalone stand-in for the exchange's /info
// endpoint (spec.md §6), serving a deterministic, seeded set of fills
// and clearinghouse snapshots. It exists for local development and the
// end-to-end test: it is not a production data source and does not
// change DATASOURCE_TYPE=hyperliquid semantics.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"hlgateway/internal/gateway/upstream"
)

var coins = []string{"BTC", "ETH"}

// seedFixture builds a deterministic fill set and clearinghouse state
// for userCount synthetic users, each with fillsPerUser fills
// alternating buy/sell across coins.
func seedFixture(fc *upstream.FixtureClient, userCount, fillsPerUser int) {
	for u := 0; u < userCount; u++ {
		user := fmt.Sprintf("0x%040x", u+1)
		fills := make([]upstream.RawFill, 0, fillsPerUser)
		px := 100.0
		for i := 0; i < fillsPerUser; i++ {
			coin := coins[i%len(coins)]
			side := "B"
			if i%2 == 1 {
				side = "A"
			}
			px += float64(i%7) - 3
			if px < 1 {
				px = 1
			}
			closedPnl := 0.0
			if side == "A" {
				closedPnl = float64(i%5) * 2.5
			}
			fills = append(fills, upstream.RawFill{
				Coin:      coin,
				Px:        strconv.FormatFloat(px, 'f', 2, 64),
				Sz:        strconv.FormatFloat(1+float64(i%3), 'f', 2, 64),
				Side:      side,
				Time:      int64(1_700_000_000_000 + i*60_000),
				ClosedPnl: strconv.FormatFloat(closedPnl, 'f', 2, 64),
				Fee:       "0.50",
				Hash:      fmt.Sprintf("0x%x", i+1),
				Oid:       int64(i + 1),
				Tid:       int64(i + 1),
			})
		}
		fc.Seed(user, fills)

		var state upstream.ClearinghouseState
		state.MarginSummary.AccountValue = strconv.FormatFloat(10_000+float64(u)*500, 'f', 2, 64)
		fc.SeedClearinghouse(user, state)
	}
}

type infoRequest struct {
	Type      string `json:"type"`
	User      string `json:"user"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
}

func newHandler(fc *upstream.FixtureClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req infoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		w.Header().Set("Content-Type", "application/json")

		switch req.Type {
		case "userFillsByTime":
			fills, err := fc.FetchFillsOnce(ctx, req.User, req.StartTime, req.EndTime)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadGateway)
				return
			}
			if fills == nil {
				fills = []upstream.RawFill{}
			}
			_ = json.NewEncoder(w).Encode(fills)
		case "clearinghouseState":
			state, err := fc.FetchClearinghouse(ctx, req.User)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadGateway)
				return
			}
			_ = json.NewEncoder(w).Encode(state)
		case "meta":
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		default:
			http.Error(w, fmt.Sprintf("unknown type %q", req.Type), http.StatusBadRequest)
		}
	}
}

func main() {
	addr := flag.String("addr", ":9000", "HTTP listen address")
	users := flag.Int("users", 5, "Number of synthetic users to seed")
	fillsPerUser := flag.Int("fills_per_user", 50, "Number of fills to generate per user")
	flag.Parse()

	fc := upstream.NewFixtureClient()
	seedFixture(fc, *users, *fillsPerUser)

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: newHandler(fc),
	}

	go func() {
		fmt.Printf("fixture-upstream listening on %s (users=%d fills_per_user=%d)\n", *addr, *users, *fillsPerUser)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
}
