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

// Package main wires the gateway's HTTP server (spec.md §6) over the
// upstream client, rate limiter, caches, and the C5-C10 services, and
// runs it with graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hlgateway/internal/gateway/api"
	"hlgateway/internal/gateway/builder"
	"hlgateway/internal/gateway/cache"
	"hlgateway/internal/gateway/config"
	"hlgateway/internal/gateway/eventsink"
	"hlgateway/internal/gateway/leaderboard"
	"hlgateway/internal/gateway/logging"
	"hlgateway/internal/gateway/pnl"
	"hlgateway/internal/gateway/positions"
	"hlgateway/internal/gateway/registry"
	"hlgateway/internal/gateway/trades"
	"hlgateway/internal/gateway/upstream"
	"hlgateway/pkg/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}

	log := logging.Default("gateway", logging.ParseLevel(cfg.LogLevel))
	log.Infof("starting gateway: datasource=%s port=%s upstream=%s eventsink=%s",
		cfg.DatasourceType, cfg.Port, cfg.UpstreamBaseURL, cfg.EventsinkType)

	limiter := ratelimit.New(ratelimit.DefaultMaxWeight, ratelimit.DefaultWindow)
	client := upstream.NewHTTPClient(cfg.UpstreamBaseURL, limiter)

	caches := cache.NewStore(cfg.CacheFillsTTL, cfg.CacheClearinghouseTTL)
	bf := builder.New(cfg.TargetBuilder)

	tradeSvc := trades.New(client, caches, bf)
	positionSvc := positions.New(tradeSvc, bf)
	nowMs := func() int64 { return time.Now().UnixMilli() }
	pnlSvc := pnl.New(tradeSvc, client, bf, nowMs)

	reg := registry.New()
	logLeaderboardFailure := func(user string, err error) {
		log.Warnf("leaderboard: skipping user %s: %v", user, err)
	}
	leaderboardSvc := leaderboard.New(reg, pnlSvc, logLeaderboardFailure, nowMs)

	sink, err := eventsink.Build(cfg.EventsinkType, eventsink.Options{
		RedisAddr:    cfg.EventsinkAddr,
		KafkaBrokers: cfg.EventsinkAddr,
		KafkaTopic:   "",
		PostgresDSN:  cfg.EventsinkAddr,
		FilePath:     cfg.EventsinkAddr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer sink.Close()

	srv := api.NewServer(tradeSvc, positionSvc, pnlSvc, leaderboardSvc, reg, client, sink, log, cfg.DatasourceType, nowMs)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Infof("listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("listen: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Infof("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Errorf("shutdown: %v", err)
		os.Exit(1)
	}
	log.Infof("stopped")
}
