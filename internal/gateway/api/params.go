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
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"hlgateway/internal/gateway/address"
	"hlgateway/internal/gateway/apierr"
)

// requiredAddress extracts and canonicalizes the required "user" query
// param, returning a ValidationError if missing or shape-invalid
// (spec.md §7).
func requiredAddress(q url.Values, key string) (string, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return "", apierr.Validation(fmt.Sprintf("%q is required", key))
	}
	canon, ok := address.Canonicalize(raw)
	if !ok {
		return "", apierr.Validation(fmt.Sprintf("%q is not a valid address", key))
	}
	return canon, nil
}

// optionalString returns the trimmed value for key, or "" if absent.
func optionalString(q url.Values, key string) string {
	return strings.TrimSpace(q.Get(key))
}

// optionalInt64 parses key as a non-negative integer, returning def if
// absent. A malformed or negative value is a ValidationError.
func optionalInt64(q url.Values, key string, def int64) (int64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, apierr.Validation(fmt.Sprintf("%q must be a non-negative integer", key))
	}
	return v, nil
}

// optionalFloat64 parses key as a non-negative float, returning def if
// absent.
func optionalFloat64(q url.Values, key string, def float64) (float64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, apierr.Validation(fmt.Sprintf("%q must be a non-negative number", key))
	}
	return v, nil
}

// optionalBool parses key as "true"/"false", returning def if absent
// (spec.md §6: "All boolean query params accept true/false").
func optionalBool(q url.Values, key string, def bool) (bool, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def, nil
	}
	switch raw {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, apierr.Validation(fmt.Sprintf("%q must be true or false", key))
	}
}

var validCollapseBy = map[string]bool{"": true, "hash": true, "oid": true, "tid": true}

func optionalCollapseBy(q url.Values) (string, error) {
	v := strings.TrimSpace(q.Get("collapseBy"))
	if !validCollapseBy[v] {
		return "", apierr.Validation(`"collapseBy" must be one of hash, oid, tid`)
	}
	return v, nil
}

var validMetrics = map[string]bool{"volume": true, "pnl": true, "returnPct": true}

func requiredMetric(q url.Values) (string, error) {
	v := strings.TrimSpace(q.Get("metric"))
	if !validMetrics[v] {
		return "", apierr.Validation(`"metric" must be one of volume, pnl, returnPct`)
	}
	return v, nil
}
