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

// Package telemetry exposes the gateway's Prometheus metrics: global
// counters and histograms only (no unbounded per-user label
// cardinality), registered eagerly and served at /metrics via
// promhttp, following the same shape as the teacher's
// internal/ratelimiter/telemetry/churn package.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	rateLimiterWaitSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hlgateway_ratelimiter_wait_seconds",
		Help:    "Time callers spent blocked waiting for rate-limiter weight",
		Buckets: prometheus.DefBuckets,
	})
	cacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hlgateway_cache_hits_total",
		Help: "Cache reads served from a fresh entry, by cache name",
	}, []string{"cache"})
	cacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hlgateway_cache_misses_total",
		Help: "Cache reads that triggered a fetch, by cache name",
	}, []string{"cache"})
	upstreamCallSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hlgateway_upstream_call_seconds",
		Help:    "Upstream call latency, by operation and outcome",
		Buckets: prometheus.DefBuckets,
	}, []string{"op", "outcome"})
	paginatorPagesPerWindow = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hlgateway_paginator_pages_per_window",
		Help:    "Number of upstream pages fetched per fill window",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
	})
	leaderboardComputeSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hlgateway_leaderboard_compute_seconds",
		Help:    "Wall time to compute a full leaderboard response",
		Buckets: prometheus.DefBuckets,
	})
	leaderboardUserErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hlgateway_leaderboard_user_errors_total",
		Help: "Per-user PnL computation failures skipped while building a leaderboard",
	})
)

func init() {
	prometheus.MustRegister(
		rateLimiterWaitSeconds,
		cacheHitsTotal,
		cacheMissesTotal,
		upstreamCallSeconds,
		paginatorPagesPerWindow,
		leaderboardComputeSeconds,
		leaderboardUserErrorsTotal,
	)
}

// ObserveRateLimiterWait records time spent blocked in the rate limiter.
func ObserveRateLimiterWait(d time.Duration) {
	rateLimiterWaitSeconds.Observe(d.Seconds())
}

// ObserveCacheHit records a fresh-entry cache read for the named cache
// ("fills" or "clearinghouse").
func ObserveCacheHit(cache string) { cacheHitsTotal.WithLabelValues(cache).Inc() }

// ObserveCacheMiss records a cache read that triggered a fetch.
func ObserveCacheMiss(cache string) { cacheMissesTotal.WithLabelValues(cache).Inc() }

// ObserveUpstreamCall records an upstream call's latency and outcome
// ("ok" or "error").
func ObserveUpstreamCall(op, outcome string, d time.Duration) {
	upstreamCallSeconds.WithLabelValues(op, outcome).Observe(d.Seconds())
}

// ObservePaginatorPages records how many pages a single fill window fetch took.
func ObservePaginatorPages(pages int) {
	paginatorPagesPerWindow.Observe(float64(pages))
}

// ObserveLeaderboardCompute records the wall time of a leaderboard computation.
func ObserveLeaderboardCompute(d time.Duration) {
	leaderboardComputeSeconds.Observe(d.Seconds())
}

// ObserveLeaderboardUserError increments the skipped-user-error counter.
func ObserveLeaderboardUserError() { leaderboardUserErrorsTotal.Inc() }

// Handler returns the promhttp handler to mount at /metrics.
func Handler() http.Handler { return promhttp.Handler() }
