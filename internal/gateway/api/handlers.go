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

package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"hlgateway/internal/gateway/address"
	"hlgateway/internal/gateway/apierr"
	"hlgateway/internal/gateway/leaderboard"
	"hlgateway/internal/gateway/pnl"
	"hlgateway/internal/gateway/positions"
	"hlgateway/internal/gateway/trades"
)

// handleHealth reports upstream reachability (spec.md §6); an upstream
// error is caught here rather than propagated, per §7's propagation
// policy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.upstream.Healthy(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":     "unhealthy",
			"datasource": s.datasource,
			"timestamp":  s.now(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"datasource": s.datasource,
		"timestamp":  s.now(),
	})
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	user, err := requiredAddress(q, "user")
	if err != nil {
		s.writeError(w, err)
		return
	}
	coin := optionalString(q, "coin")
	fromMs, err := optionalInt64(q, "fromMs", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	toMs, err := optionalInt64(q, "toMs", s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	builderOnly, err := optionalBool(q, "builderOnly", false)
	if err != nil {
		s.writeError(w, err)
		return
	}
	collapseBy, err := optionalCollapseBy(q)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.trades.GetTrades(r.Context(), trades.Params{
		User:        user,
		Coin:        coin,
		FromMs:      fromMs,
		ToMs:        toMs,
		BuilderOnly: builderOnly,
		CollapseBy:  collapseBy,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publish(r, "trade-fetched", user, result)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"trades": result})
}

func (s *Server) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	user, err := requiredAddress(q, "user")
	if err != nil {
		s.writeError(w, err)
		return
	}
	coin := optionalString(q, "coin")
	fromMs, err := optionalInt64(q, "fromMs", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	toMs, err := optionalInt64(q, "toMs", s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	builderOnly, err := optionalBool(q, "builderOnly", false)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.positions.GetPositionHistory(r.Context(), positions.Params{
		User:         user,
		Coin:         coin,
		FromMs:       fromMs,
		ToMs:         toMs,
		BuilderOnly:  builderOnly,
		IncludePrior: true,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publish(r, "position-reconstructed", user, result)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"positions": result})
}

func (s *Server) handleGetPnl(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	user, err := requiredAddress(q, "user")
	if err != nil {
		s.writeError(w, err)
		return
	}
	coin := optionalString(q, "coin")
	fromMs, err := optionalInt64(q, "fromMs", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	toMs, err := optionalInt64(q, "toMs", s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	builderOnly, err := optionalBool(q, "builderOnly", false)
	if err != nil {
		s.writeError(w, err)
		return
	}
	maxStartCapital, err := optionalFloat64(q, "maxStartCapital", pnl.DefaultMaxStartCapital)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.pnl.CalculatePnl(r.Context(), pnl.Params{
		User:            user,
		Coin:            coin,
		FromMs:          fromMs,
		ToMs:            toMs,
		BuilderOnly:     builderOnly,
		MaxStartCapital: maxStartCapital,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publish(r, "pnl-computed", user, result)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"realizedPnl":      result.RealizedPnl,
		"returnPct":        result.ReturnPct,
		"feesPaid":         result.FeesPaid,
		"tradeCount":       result.TradeCount,
		"tainted":          result.Tainted,
		"effectiveCapital": result.EffectiveCapital,
	})
}

func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	metric, err := requiredMetric(q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	coin := optionalString(q, "coin")
	fromMs, err := optionalInt64(q, "fromMs", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	toMs, err := optionalInt64(q, "toMs", s.now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	builderOnly, err := optionalBool(q, "builderOnly", false)
	if err != nil {
		s.writeError(w, err)
		return
	}
	maxStartCapital, err := optionalFloat64(q, "maxStartCapital", pnl.DefaultMaxStartCapital)
	if err != nil {
		s.writeError(w, err)
		return
	}
	limit, err := optionalInt64(q, "limit", leaderboard.DefaultLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if limit > leaderboard.MaxLimit {
		s.writeError(w, apierr.Validation(fmt.Sprintf("\"limit\" must be <= %d", leaderboard.MaxLimit)))
		return
	}

	result, err := s.leaderboard.GetLeaderboard(r.Context(), leaderboard.Params{
		Metric:          metric,
		Coin:            coin,
		FromMs:          fromMs,
		ToMs:            toMs,
		BuilderOnly:     builderOnly,
		MaxStartCapital: maxStartCapital,
		Limit:           int(limit),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publish(r, "leaderboard-generated", "", result)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries":     result.Entries,
		"generatedAt": result.GeneratedAt,
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"users": s.registry.List()})
}

type registerUserRequest struct {
	User string `json:"user"`
}

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var body registerUserRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, apierr.Validation("request body must be valid JSON"))
		return
	}
	canon, ok := address.Canonicalize(body.User)
	if !ok {
		s.writeError(w, apierr.Validation(`"user" is not a valid address`))
		return
	}

	isNew := s.registry.Register(canon)
	if !isNew {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"user":    canon,
			"message": "User already registered",
		})
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"user":    canon,
	})
}

func (s *Server) handleUnregisterUser(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["user"]
	canon, ok := address.Canonicalize(raw)
	if !ok {
		s.writeError(w, apierr.Validation(`"user" is not a valid address`))
		return
	}

	if !s.registry.Unregister(canon) {
		s.writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"user":    canon,
			"message": "User not found",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    canon,
	})
}
