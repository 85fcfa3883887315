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

// Package api implements the gateway's public-facing HTTP server
// (spec.md §6): it parses and validates query/body parameters,
// dispatches to the trade, position, PnL, and leaderboard services,
// and translates results and errors into the documented JSON shapes.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"hlgateway/internal/gateway/apierr"
	"hlgateway/internal/gateway/eventsink"
	"hlgateway/internal/gateway/leaderboard"
	"hlgateway/internal/gateway/logging"
	"hlgateway/internal/gateway/pnl"
	"hlgateway/internal/gateway/positions"
	"hlgateway/internal/gateway/registry"
	"hlgateway/internal/gateway/telemetry"
	"hlgateway/internal/gateway/trades"
	"hlgateway/internal/gateway/upstream"
)

// Server holds every C6-C10 service the HTTP surface dispatches to,
// plus the upstream client for the health check and the registry for
// the user-management endpoints.
type Server struct {
	trades      *trades.Service
	positions   *positions.Service
	pnl         *pnl.Service
	leaderboard *leaderboard.Service
	registry    *registry.Registry
	upstream    upstream.Client
	sink        eventsink.Sink
	log         *logging.Logger

	datasource string
	now        func() int64
}

// NewServer wires the HTTP surface to the already-constructed C6-C10
// services. sink may be eventsink.NoopSink{}; now defaults to
// time.Now().UnixMilli when nil.
func NewServer(
	tradeSvc *trades.Service,
	positionSvc *positions.Service,
	pnlSvc *pnl.Service,
	leaderboardSvc *leaderboard.Service,
	reg *registry.Registry,
	client upstream.Client,
	sink eventsink.Sink,
	log *logging.Logger,
	datasource string,
	now func() int64,
) *Server {
	if sink == nil {
		sink = eventsink.NoopSink{}
	}
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}
	return &Server{
		trades:      tradeSvc,
		positions:   positionSvc,
		pnl:         pnlSvc,
		leaderboard: leaderboardSvc,
		registry:    reg,
		upstream:    client,
		sink:        sink,
		log:         log,
		datasource:  datasource,
		now:         now,
	}
}

// Router builds the gorilla/mux router for the documented routes
// (spec.md §6). A path variable is required for DELETE /v1/users/:user,
// which http.ServeMux's pre-1.22 pattern matching cannot express.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/v1/trades", s.handleGetTrades).Methods(http.MethodGet)
	r.HandleFunc("/v1/positions/history", s.handleGetPositions).Methods(http.MethodGet)
	r.HandleFunc("/v1/pnl", s.handleGetPnl).Methods(http.MethodGet)
	r.HandleFunc("/v1/leaderboard", s.handleGetLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/v1/users", s.handleListUsers).Methods(http.MethodGet)
	r.HandleFunc("/v1/users", s.handleRegisterUser).Methods(http.MethodPost)
	r.HandleFunc("/v1/users/{user}", s.handleUnregisterUser).Methods(http.MethodDelete)
	return r
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	telemetry.Handler().ServeHTTP(w, r)
}

// writeJSON encodes v as the response body with the given status. A
// marshal failure at this point is an internal error; it is logged but
// the response has already started, so nothing further can be sent.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		if s.log != nil {
			s.log.Errorf("encode response: %v", err)
		}
	}
}

// writeError translates err into the spec.md §7 {error, message} shape
// at the status its Kind maps to. Unrecognized errors are reported as
// Internal (500) without leaking their text.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	apiErr, ok := apierr.AsError(err)
	if !ok {
		var te *upstream.TransportError
		if errors.As(err, &te) {
			apiErr = apierr.Wrap(apierr.UpstreamError, "failed to reach upstream", te)
			ok = true
		}
	}
	if !ok {
		if s.log != nil {
			s.log.Errorf("unanticipated failure: %v", err)
		}
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "internal",
			"message": "internal error",
		})
		return
	}
	if s.log != nil && apiErr.Kind == apierr.UpstreamError {
		s.log.Warnf("upstream error: %v", apiErr)
	}
	s.writeJSON(w, apiErr.Kind.Status(), map[string]string{
		"error":   kindName(apiErr.Kind),
		"message": apiErr.Message,
	})
}

func kindName(k apierr.Kind) string {
	switch k {
	case apierr.ValidationError:
		return "validation_error"
	case apierr.UpstreamError:
		return "upstream_error"
	case apierr.UnsupportedDatasource:
		return "unsupported_datasource"
	case apierr.NotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// publish broadcasts a derived-view event on a best-effort basis; a
// sink failure is logged and never affects the HTTP response, since the
// event is purely a side observation of a result already computed.
func (s *Server) publish(r *http.Request, kind, user string, payload interface{}) {
	err := s.sink.Publish(r.Context(), eventsink.DerivedViewEvent{
		Kind:      kind,
		User:      user,
		Payload:   payload,
		EmittedAt: time.UnixMilli(s.now()),
	})
	if err != nil && s.log != nil {
		s.log.Warnf("eventsink publish (%s) failed: %v", kind, err)
	}
}
