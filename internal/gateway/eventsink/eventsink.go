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

// Package eventsink broadcasts already-computed derived-view results
// (a leaderboard snapshot, a PnL result) to an external consumer after
// the gateway has served its own response. A sink never feeds data
// back into any gateway computation: every value it publishes was
// already derived purely from the upstream exchange, so publication
// cannot introduce a second source of truth the gateway depends on.
//
// This mirrors the teacher's persistence adapters
// (internal/ratelimiter/persistence) — selected by a string adapter
// name, each wrapping a minimal client interface so the demo works
// without live infrastructure — retargeted from committing rate-limit
// vectors to publishing read-only derived views.
package eventsink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DerivedViewEvent is a single published snapshot: the kind of view,
// the user it concerns (empty for a leaderboard), and its JSON-encoded
// payload.
type DerivedViewEvent struct {
	Kind      string // "trade-fetched" | "position-reconstructed" | "pnl-computed" | "leaderboard-generated"
	User      string
	Payload   interface{}
	EmittedAt time.Time
}

// Sink publishes derived-view events. Publish must not block the
// caller's response path for long; implementations should be
// fire-and-forget or bounded.
type Sink interface {
	Publish(ctx context.Context, event DerivedViewEvent) error
	Close() error
}

// NoopSink discards every event; it is the default when EVENTSINK_TYPE
// is "none" or unset.
type NoopSink struct{}

func (NoopSink) Publish(context.Context, DerivedViewEvent) error { return nil }
func (NoopSink) Close() error                                    { return nil }

// Options configures adapter construction; only the field relevant to
// the selected adapter needs to be set.
type Options struct {
	RedisAddr    string
	KafkaTopic   string
	KafkaBrokers string
	PostgresDSN  string
	FilePath     string
}

// Build constructs a Sink for the given adapter name: "none" (default),
// "redis", "kafka", "postgres", or "file".
func Build(adapter string, opts Options) (Sink, error) {
	switch adapter {
	case "", "none":
		return NoopSink{}, nil
	case "redis":
		return newRedisSink(opts.RedisAddr)
	case "kafka":
		topic := opts.KafkaTopic
		if topic == "" {
			topic = "hlgateway-derived-views"
		}
		return newKafkaSink(opts.KafkaBrokers, topic), nil
	case "postgres":
		return newPostgresSink(opts.PostgresDSN)
	case "file":
		if opts.FilePath == "" {
			return nil, fmt.Errorf("eventsink adapter %q requires a file path", adapter)
		}
		return newFileSink(opts.FilePath)
	default:
		return nil, fmt.Errorf("unknown eventsink adapter: %s", adapter)
	}
}

func encode(event DerivedViewEvent) ([]byte, error) {
	return json.Marshal(struct {
		Kind      string      `json:"kind"`
		User      string      `json:"user,omitempty"`
		Payload   interface{} `json:"payload"`
		EmittedAt int64       `json:"emittedAtMs"`
	}{
		Kind:      event.Kind,
		User:      event.User,
		Payload:   event.Payload,
		EmittedAt: event.EmittedAt.UnixMilli(),
	})
}
