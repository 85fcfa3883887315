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

// Package upstream implements the typed client for the two upstream
// exchange operations the gateway consumes: fills-by-time and
// clearinghouse state. It owns the wire shapes and applies the rate
// limiter (pkg/ratelimit) before every call.
package upstream

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Per-operation weights, fixed by the upstream's published cost table
// (spec.md §4.1).
const (
	WeightFills         = 20
	WeightClearinghouse = 2
	WeightMeta          = 1

	// BatchMax is the largest fills page the upstream will return for a
	// single fetchFillsOnce call.
	BatchMax = 2000
)

// BuilderField models the upstream's dynamically-typed "builder" field,
// which arrives as a bare address string, as an object {b, f}, or is
// simply absent from the payload. It unmarshals all three shapes into
// a single tagged variant.
type BuilderField struct {
	present bool
	address string // always lowercased when present
}

// Present reports whether the upstream supplied any builder attribution.
func (b BuilderField) Present() bool { return b.present }

// Address returns the builder address and true if one was present.
func (b BuilderField) Address() (string, bool) {
	if !b.present {
		return "", false
	}
	return b.address, true
}

// UnmarshalJSON accepts a bare string, an object with a "b" field, or
// JSON null/absence (handled by the caller leaving the field zero).
func (b *BuilderField) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*b = BuilderField{}
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*b = BuilderField{present: s != "", address: strings.ToLower(s)}
		return nil
	}
	var obj struct {
		B string      `json:"b"`
		F json.Number `json:"f"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*b = BuilderField{present: obj.B != "", address: strings.ToLower(obj.B)}
	return nil
}

// RawFill is the upstream's wire representation of a single fill, as
// received from fetchFillsOnce. Decimal fields are wire strings; they
// are parsed as float64 per spec.md §3 ("no fixed-point arithmetic is
// required").
type RawFill struct {
	Coin       string       `json:"coin"`
	Px         string       `json:"px"`
	Sz         string       `json:"sz"`
	Side       string       `json:"side"` // "B" or "A"
	Time       int64        `json:"time"`
	ClosedPnl  string       `json:"closedPnl"`
	Fee        string       `json:"fee"`
	Builder    BuilderField `json:"builder"`
	BuilderFee string       `json:"builderFee"`
	Hash       string       `json:"hash"`
	Oid        int64        `json:"oid"`
	Tid        int64        `json:"tid"`
}

// parseDecimal parses a wire decimal string to float64, treating an
// empty string as zero (absent optional decimal fields).
func parseDecimal(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// PxFloat returns the parsed execution price.
func (f RawFill) PxFloat() float64 { return parseDecimal(f.Px) }

// SzFloat returns the parsed unsigned execution size.
func (f RawFill) SzFloat() float64 { return parseDecimal(f.Sz) }

// FeeFloat returns the parsed fee paid on this fill.
func (f RawFill) FeeFloat() float64 { return parseDecimal(f.Fee) }

// ClosedPnlFloat returns the parsed realized PnL contribution.
func (f RawFill) ClosedPnlFloat() float64 { return parseDecimal(f.ClosedPnl) }

// BuilderFeeFloat returns the parsed builder fee, zero when absent.
func (f RawFill) BuilderFeeFloat() float64 { return parseDecimal(f.BuilderFee) }

// CollapseKey returns the fill's value for the given collapse strategy
// and whether that value is present. "hash"/"oid"/"tid" are the only
// supported strategies (spec.md §4.6).
func (f RawFill) CollapseKey(by string) (string, bool) {
	switch by {
	case "hash":
		return f.Hash, f.Hash != ""
	case "oid":
		if f.Oid == 0 {
			return "", false
		}
		return strconv.FormatInt(f.Oid, 10), true
	case "tid":
		if f.Tid == 0 {
			return "", false
		}
		return strconv.FormatInt(f.Tid, 10), true
	default:
		return "", false
	}
}

// CoinPosition is a single per-coin entry inside a ClearinghouseState.
type CoinPosition struct {
	Coin string `json:"coin"`
	Szi  string `json:"szi"`
}

// SziFloat returns the parsed signed position size for this coin.
func (c CoinPosition) SziFloat() float64 { return parseDecimal(c.Szi) }

// ClearinghouseState is the upstream's current-equity-and-positions
// snapshot for a user, as returned by fetchClearinghouse.
type ClearinghouseState struct {
	MarginSummary struct {
		AccountValue string `json:"accountValue"`
	} `json:"marginSummary"`
	AssetPositions []struct {
		Position CoinPosition `json:"position"`
	} `json:"assetPositions"`
}

// AccountValueFloat returns the parsed current equity.
func (c ClearinghouseState) AccountValueFloat() float64 {
	return parseDecimal(c.MarginSummary.AccountValue)
}
