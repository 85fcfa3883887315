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

import "fmt"

// TransportError wraps any failure talking to the upstream: network
// errors, non-2xx responses, and non-JSON bodies all surface as this
// type so callers at the HTTP boundary can map it to a single 502
// without leaking transport internals (spec.md §7).
type TransportError struct {
	Op      string // "fetchFillsOnce" | "fetchClearinghouse" | "meta"
	Status  int    // 0 when the failure was a network error, not an HTTP response
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream %s: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("upstream %s: %s", e.Op, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }
