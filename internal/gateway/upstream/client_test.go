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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hlgateway/pkg/ratelimit"
)

func TestBuilderField_UnmarshalShapes(t *testing.T) {
	cases := []struct {
		name    string
		json    string
		present bool
		addr    string
	}{
		{"absent", `null`, false, ""},
		{"string", `"0xAAA0000000000000000000000000000000000a"`, true, "0xaaa0000000000000000000000000000000000a"},
		{"object", `{"b":"0xBBB0000000000000000000000000000000000b","f":10}`, true, "0xbbb0000000000000000000000000000000000b"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var b BuilderField
			if err := json.Unmarshal([]byte(c.json), &b); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if b.Present() != c.present {
				t.Fatalf("present = %v, want %v", b.Present(), c.present)
			}
			addr, _ := b.Address()
			if addr != c.addr {
				t.Fatalf("address = %q, want %q", addr, c.addr)
			}
		})
	}
}

func TestHTTPClient_FetchFillsOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req infoRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Type != "userFillsByTime" {
			t.Fatalf("unexpected type %q", req.Type)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"coin":"BTC","px":"100","sz":"1","side":"B","time":1000,"closedPnl":"0","fee":"1"}]`))
	}))
	defer srv.Close()

	limiter := ratelimit.New(ratelimit.DefaultMaxWeight, ratelimit.DefaultWindow)
	c := NewHTTPClient(srv.URL, limiter)

	fills, err := c.FetchFillsOnce(context.Background(), "0xabc0000000000000000000000000000000000d", 0, 2000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fills) != 1 || fills[0].Coin != "BTC" {
		t.Fatalf("unexpected fills: %+v", fills)
	}
}

func TestHTTPClient_NonOKStatusSurfacesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	limiter := ratelimit.New(ratelimit.DefaultMaxWeight, ratelimit.DefaultWindow)
	c := NewHTTPClient(srv.URL, limiter)

	_, err := c.FetchFillsOnce(context.Background(), "0xabc0000000000000000000000000000000000d", 0, 2000)
	if err == nil {
		t.Fatalf("expected error")
	}
	var te *TransportError
	if !asTransportError(err, &te) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if te.Status != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", te.Status)
	}
}

func asTransportError(err error, target **TransportError) bool {
	if te, ok := err.(*TransportError); ok {
		*target = te
		return true
	}
	return false
}

func TestHTTPClient_AcquiresWeightBeforeCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	limiter := ratelimit.New(WeightFills-1, time.Hour) // not enough for one fills call
	c := NewHTTPClient(srv.URL, limiter)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := c.FetchFillsOnce(ctx, "0xabc0000000000000000000000000000000000d", 0, 1)
	if err == nil {
		t.Fatalf("expected the call to block on the limiter and time out")
	}
}
