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

// Package apierr defines the gateway's error kinds and their HTTP
// status mapping (spec.md §7), so handlers never hand-roll status
// codes inline.
package apierr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure for the purpose of HTTP status mapping.
type Kind int

const (
	Internal Kind = iota
	ValidationError
	UpstreamError
	UnsupportedDatasource
	NotFound
)

// Error is a typed gateway error carrying a Kind and a user-safe
// message. The underlying cause, if any, is never surfaced to callers
// (spec.md §7: "do not leak transport details").
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind, retaining cause for
// Unwrap/logging without including it in Message.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Validation is a convenience constructor for the common 400 case.
func Validation(message string) *Error { return New(ValidationError, message) }

// NotFoundf is a convenience constructor for the 404 case.
func NotFoundf(message string) *Error { return New(NotFound, message) }

// Status returns the HTTP status code for kind (spec.md §7).
func (k Kind) Status() int {
	switch k {
	case ValidationError:
		return http.StatusBadRequest
	case UpstreamError:
		return http.StatusBadGateway
	case UnsupportedDatasource:
		return http.StatusInternalServerError
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// StatusOf returns the HTTP status for any error: the Kind's mapped
// status if err is (or wraps) an *Error, else 500.
func StatusOf(err error) int {
	if e, ok := AsError(err); ok {
		return e.Kind.Status()
	}
	return http.StatusInternalServerError
}

// AsError extracts an *Error from err or its wrap chain, if present.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
