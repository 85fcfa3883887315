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

// Package address canonicalizes and validates the 42-character hex
// addresses used throughout the gateway to identify users and builders.
package address

import (
	"regexp"
	"strings"
)

var pattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// Valid reports whether s matches the required address shape. It does not
// canonicalize; callers that accept user input should call Canonicalize
// and check its error instead.
func Valid(s string) bool {
	return pattern.MatchString(s)
}

// Canonicalize validates s and returns its lowercase form. All storage
// keys and comparisons in the gateway use this canonical form so that
// addresses differing only in case are treated as identical.
func Canonicalize(s string) (string, bool) {
	if !Valid(s) {
		return "", false
	}
	return strings.ToLower(s), true
}

// Equal reports whether two addresses are the same modulo case. Both
// inputs are assumed to already be shape-valid; callers that haven't
// validated should go through Canonicalize first.
func Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}
