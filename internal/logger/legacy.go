// Copyright 2026 The Drivefuse Authors
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

package logger

import (
	"log"
	"log/slog"
	"strings"
)

// legacyWriter adapts the stdlib *log.Logger interface that jacobsa/fuse's
// MountConfig.ErrorLogger/DebugLogger expect onto the package's own leveled
// logger, so fuse-internal messages flow through the same structured sink.
type legacyWriter struct {
	level  slog.Level
	prefix string
}

func (w legacyWriter) Write(p []byte) (int, error) {
	msg := w.prefix + strings.TrimSuffix(string(p), "\n")
	switch {
	case w.level <= LevelTrace:
		Tracef("%s", msg)
	case w.level <= LevelDebug:
		Debugf("%s", msg)
	case w.level <= LevelWarn:
		Warnf("%s", msg)
	default:
		Errorf("%s", msg)
	}
	return len(p), nil
}

// NewLegacyLogger builds a *log.Logger that forwards every line fuse writes
// to it at level, tagging each line with prefix and the mount's fsName.
func NewLegacyLogger(level slog.Level, prefix, fsName string) *log.Logger {
	if fsName != "" {
		prefix = prefix + "[" + fsName + "] "
	}
	return log.New(legacyWriter{level: level, prefix: prefix}, "", 0)
}
