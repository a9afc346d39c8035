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

// Package logger provides the leveled, structured logger used across the
// mount: the token manager, the drive client, the read cache, and the VFS
// adaptor all log through the package-level Tracef/Debugf/Infof/Warnf/Errorf
// functions rather than holding their own *slog.Logger.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cloudmount/drivefuse/cfg"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity levels, spaced the way slog spaces its own built-in levels so
// that TRACE sits below DEBUG and OFF sits above ERROR.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelOff   = slog.Level(12)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARNING",
	LevelError: "ERROR",
	LevelOff:   "OFF",
}

// loggerFactory owns the mutable pieces of the default logger's
// configuration: the destination file (if any), the desired severity and
// output format, and the rotation policy applied to the file.
type loggerFactory struct {
	file      *os.File
	level     cfg.LogSeverity
	format    string
	logRotate cfg.LogRotateLoggingConfig
	sysWriter io.Writer // when non-nil, output goes here instead of stderr/file: the rotating log file, or a buffer in tests
}

var (
	programLevel         = new(slog.LevelVar)
	defaultLoggerFactory = &loggerFactory{level: cfg.InfoLogSeverity, format: "json"}
	defaultLogger        = slog.New(defaultLoggerFactory.createJsonOrTextHandler(os.Stderr, programLevel, ""))
)

func init() {
	setLoggingLevel(string(cfg.InfoLogSeverity), programLevel)
}

// setLoggingLevel maps a cfg.LogSeverity string onto slog's LevelVar.
func setLoggingLevel(level string, programLevel *slog.LevelVar) {
	switch cfg.LogSeverity(level) {
	case cfg.TraceLogSeverity:
		programLevel.Set(LevelTrace)
	case cfg.DebugLogSeverity:
		programLevel.Set(LevelDebug)
	case cfg.WarningLogSeverity:
		programLevel.Set(LevelWarn)
	case cfg.ErrorLogSeverity:
		programLevel.Set(LevelError)
	case cfg.OffLogSeverity:
		programLevel.Set(LevelOff)
	default:
		programLevel.Set(LevelInfo)
	}
}

// severityReplaceAttr renames slog's "level" attribute to "severity" and
// spells out the custom TRACE/WARNING/OFF names rather than slog's own
// DEBUG-4/WARN/ERROR+4 rendering.
func severityReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		name, ok := levelNames[level]
		if !ok {
			name = level.String()
		}
		return slog.String("severity", name)
	}
	return a
}

// createJsonOrTextHandler builds the slog.Handler used by defaultLogger,
// honoring lf.format ("json", the default, or "text"). prefix, when
// non-empty, is attached to every record as a "prefix" attribute so that
// subsystem loggers (if ever split out) can be told apart in the stream.
func (lf *loggerFactory) createJsonOrTextHandler(w io.Writer, programLevel *slog.LevelVar, prefix string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       programLevel,
		ReplaceAttr: severityReplaceAttr,
	}

	var handler slog.Handler
	if lf.format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	if prefix != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("prefix", prefix)})
	}
	return handler
}

// SetLogFormat switches the default logger between "text" and "json"
// output, rebuilding defaultLogger against the current destination.
func SetLogFormat(format string) {
	if format == "" {
		format = "json"
	}
	defaultLoggerFactory.format = format

	w := io.Writer(os.Stderr)
	if defaultLoggerFactory.sysWriter != nil {
		w = defaultLoggerFactory.sysWriter
	} else if defaultLoggerFactory.file != nil {
		w = defaultLoggerFactory.file
	}

	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(w, programLevel, ""))
}

// InitLogFile points the default logger at the file named by
// loggingConfig.FilePath, with rotation governed by loggingConfig.LogRotate.
// An empty FilePath leaves the logger writing to stderr.
func InitLogFile(loggingConfig cfg.LoggingConfig) error {
	setLoggingLevel(string(loggingConfig.Severity), programLevel)
	defaultLoggerFactory.level = loggingConfig.Severity
	defaultLoggerFactory.logRotate = loggingConfig.LogRotate

	if loggingConfig.FilePath == "" {
		defaultLoggerFactory.file = nil
		SetLogFormat(loggingConfig.Format)
		return nil
	}

	rotate := &lumberjack.Logger{
		Filename:   string(loggingConfig.FilePath),
		MaxSize:    loggingConfig.LogRotate.MaxFileSizeMb,
		MaxBackups: loggingConfig.LogRotate.BackupFileCount,
		Compress:   loggingConfig.LogRotate.Compress,
	}

	defaultLoggerFactory.sysWriter = rotate
	SetLogFormat(loggingConfig.Format)
	return nil
}

// Tracef logs at TRACE severity, the most verbose level, used for
// per-request detail like individual range-read boundaries.
func Tracef(format string, args ...any) {
	logAttrs(LevelTrace, format, args...)
}

// Debugf logs at DEBUG severity: retries, cache misses, token swaps.
func Debugf(format string, args ...any) {
	logAttrs(LevelDebug, format, args...)
}

// Infof logs at INFO severity: mount/unmount, startup configuration.
func Infof(format string, args ...any) {
	logAttrs(LevelInfo, format, args...)
}

// Warnf logs at WARNING severity: retried failures that did not exhaust
// their retry budget.
func Warnf(format string, args ...any) {
	logAttrs(LevelWarn, format, args...)
}

// Errorf logs at ERROR severity: terminal failures surfaced to the caller
// as EIO.
func Errorf(format string, args ...any) {
	logAttrs(LevelError, format, args...)
}

func logAttrs(level slog.Level, format string, args ...any) {
	defaultLogger.Log(context.Background(), level, fmt.Sprintf(format, args...))
}
