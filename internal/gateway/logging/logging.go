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

// Package logging provides the gateway's leveled logger: a thin
// wrapper over the standard library's log.Logger, in the teacher's
// own style of plain, prefixed stdout/stderr lines rather than a
// structured logging library.
package logging

import (
	"io"
	"log"
	"os"
	"strings"
)

// Level is an ordered log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a LOG_LEVEL string to a Level, defaulting to Info
// for anything unrecognized.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is a leveled logger tagged with a component name. cmd/gateway
// builds a single "gateway" logger and shares it between the API server
// and the leaderboard's per-user failure callback.
type Logger struct {
	level Level
	out   *log.Logger
}

// New constructs a Logger writing to w (os.Stdout in production),
// tagged with component, filtered to level and above.
func New(w io.Writer, component string, level Level) *Logger {
	return &Logger{level: level, out: log.New(w, "["+component+"] ", log.LstdFlags)}
}

// Default constructs a Logger writing to os.Stdout.
func Default(component string, level Level) *Logger {
	return New(os.Stdout, component, level)
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(LevelError, format, args...) }

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	l.out.Printf(levelTag(level)+format, args...)
}

func levelTag(level Level) string {
	switch level {
	case LevelDebug:
		return "DEBUG "
	case LevelWarn:
		return "WARN "
	case LevelError:
		return "ERROR "
	default:
		return "INFO "
	}
}
