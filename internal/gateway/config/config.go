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

// Package config reads the gateway's environment-variable knobs
// (spec.md §6 "Environment / config"), the same flag-as-env style the
// teacher uses for its rate-limiter CLI flags, adapted to a 12-factor
// HTTP service that takes no flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"hlgateway/internal/gateway/apierr"
)

// Config holds every environment-derived setting the gateway needs at
// startup.
type Config struct {
	Port                  string
	TargetBuilder         string // lowercased; "" if unset
	DatasourceType        string
	UpstreamBaseURL       string
	CacheFillsTTL         time.Duration
	CacheClearinghouseTTL time.Duration
	MaxStartCapital       float64
	LogLevel              string
	EventsinkType         string // "none" | "redis" | "kafka" | "postgres" | "file"
	EventsinkAddr         string // redis addr / kafka brokers / postgres DSN / file path
}

// SupportedDatasources lists the DATASOURCE_TYPE values this build
// knows how to serve; spec.md §6/§7 requires any other value to fail
// startup as UnsupportedDatasource.
var SupportedDatasources = map[string]bool{
	"hyperliquid": true,
}

// Load reads configuration from the process environment, applying the
// defaults spec.md §6 describes, and validates DATASOURCE_TYPE.
func Load() (Config, error) {
	cfg := Config{
		Port:            getenv("PORT", "8080"),
		TargetBuilder:   strings.ToLower(strings.TrimSpace(os.Getenv("TARGET_BUILDER"))),
		DatasourceType:  getenv("DATASOURCE_TYPE", "hyperliquid"),
		UpstreamBaseURL: getenv("UPSTREAM_BASE_URL", "https://api.hyperliquid.xyz"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		EventsinkType:   getenv("EVENTSINK_TYPE", "none"),
		EventsinkAddr:   os.Getenv("EVENTSINK_ADDR"),
	}

	fillsTTLMs, err := getenvInt("CACHE_FILLS_TTL_MS", 60000)
	if err != nil {
		return Config{}, err
	}
	cfg.CacheFillsTTL = time.Duration(fillsTTLMs) * time.Millisecond

	chTTLMs, err := getenvInt("CACHE_CLEARINGHOUSE_TTL_MS", 5000)
	if err != nil {
		return Config{}, err
	}
	cfg.CacheClearinghouseTTL = time.Duration(chTTLMs) * time.Millisecond

	maxStart, err := getenvFloat("MAX_START_CAPITAL", 1_000_000)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxStartCapital = maxStart

	if !SupportedDatasources[cfg.DatasourceType] {
		return Config{}, apierr.New(apierr.UnsupportedDatasource,
			fmt.Sprintf("unsupported DATASOURCE_TYPE %q", cfg.DatasourceType))
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
