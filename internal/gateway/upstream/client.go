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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"hlgateway/internal/gateway/telemetry"
	"hlgateway/pkg/ratelimit"
)

// Client is the typed surface the rest of the gateway depends on. The
// paginator (C3) and the cache's fetchers (C4) are written against this
// interface so tests can substitute a fixture implementation instead of
// talking to a real exchange.
type Client interface {
	FetchFillsOnce(ctx context.Context, user string, startMs, endMs int64) ([]RawFill, error)
	FetchClearinghouse(ctx context.Context, user string) (ClearinghouseState, error)
	Healthy(ctx context.Context) error
}

// HTTPClient implements Client against the upstream's /info endpoint
// (spec.md §6). Every call acquires its weight from the shared limiter
// before issuing the request; the client itself never retries.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	limiter *ratelimit.Bucket
}

// NewHTTPClient constructs a client bound to baseURL and gated by
// limiter. limiter is shared process-wide across every call the
// gateway makes to this upstream.
func NewHTTPClient(baseURL string, limiter *ratelimit.Bucket) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: limiter,
	}
}

type infoRequest struct {
	Type            string `json:"type"`
	User            string `json:"user,omitempty"`
	StartTime       int64  `json:"startTime,omitempty"`
	EndTime         int64  `json:"endTime,omitempty"`
	AggregateByTime bool   `json:"aggregateByTime,omitempty"`
}

// post performs the shared request/response/decode plumbing for the
// /info endpoint, acquiring weight tokens first and translating any
// network, status, or decode failure into a *TransportError.
func (c *HTTPClient) post(ctx context.Context, op string, weight int, body infoRequest, out interface{}) error {
	waitStart := time.Now()
	err := c.limiter.Acquire(ctx, weight)
	telemetry.ObserveRateLimiterWait(time.Since(waitStart))
	if err != nil {
		return err
	}

	callStart := time.Now()
	err = c.do(ctx, op, body, out)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	telemetry.ObserveUpstreamCall(op, outcome, time.Since(callStart))
	return err
}

// do performs the request/response/decode plumbing for the /info
// endpoint, translating any network, status, or decode failure into a
// *TransportError.
func (c *HTTPClient) do(ctx context.Context, op string, body infoRequest, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &TransportError{Op: op, Message: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Message: "read body", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Op: op, Status: resp.StatusCode, Message: string(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Message: "decode response", Err: err}
	}
	return nil
}

// FetchFillsOnce issues one userFillsByTime call. The upstream is
// expected to return fills ordered by time ascending, at most
// BatchMax per call (spec.md §4.2).
func (c *HTTPClient) FetchFillsOnce(ctx context.Context, user string, startMs, endMs int64) ([]RawFill, error) {
	var out []RawFill
	err := c.post(ctx, "fetchFillsOnce", WeightFills, infoRequest{
		Type:            "userFillsByTime",
		User:            user,
		StartTime:       startMs,
		EndTime:         endMs,
		AggregateByTime: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchClearinghouse issues one clearinghouseState call.
func (c *HTTPClient) FetchClearinghouse(ctx context.Context, user string) (ClearinghouseState, error) {
	var out ClearinghouseState
	err := c.post(ctx, "fetchClearinghouse", WeightClearinghouse, infoRequest{
		Type: "clearinghouseState",
		User: user,
	}, &out)
	return out, err
}

// Healthy issues a meta call; any 2xx response constitutes a healthy
// signal (spec.md §6).
func (c *HTTPClient) Healthy(ctx context.Context) error {
	return c.post(ctx, "meta", WeightMeta, infoRequest{Type: "meta"}, nil)
}

// BaseURL returns the upstream base URL this client talks to, useful
// for the /health response's datasource field.
func (c *HTTPClient) BaseURL() string { return c.baseURL }
