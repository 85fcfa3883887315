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

package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug": LevelDebug, "DEBUG": LevelDebug,
		"warn": LevelWarn, "warning": LevelWarn,
		"error": LevelError, "": LevelInfo, "bogus": LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_FiltersBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "test", LevelWarn)
	l.Infof("should not appear")
	l.Warnf("should appear")
	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Fatalf("expected info line to be filtered, got %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Fatalf("expected warn line to be logged, got %q", out)
	}
}

func TestLogger_PrefixesComponentName(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "upstream", LevelDebug)
	l.Debugf("hello")
	if !strings.Contains(buf.String(), "[upstream]") {
		t.Fatalf("expected component prefix in output, got %q", buf.String())
	}
}
