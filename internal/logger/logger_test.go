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
	"bytes"
	"encoding/json"
	"log/slog"
	"regexp"
	"testing"

	"github.com/cloudmount/drivefuse/cfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type LoggerTest struct {
	suite.Suite
	buf *bytes.Buffer
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTest))
}

func (t *LoggerTest) SetupTest() {
	t.buf = new(bytes.Buffer)
	defaultLoggerFactory.sysWriter = t.buf
	defaultLoggerFactory.file = nil
	setLoggingLevel(string(cfg.TraceLogSeverity), programLevel)
}

func (t *LoggerTest) TearDownTest() {
	defaultLoggerFactory.sysWriter = nil
	SetLogFormat("json")
}

func (t *LoggerTest) rebuild(format string) {
	defaultLoggerFactory.format = format
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(t.buf, programLevel, ""))
}

func (t *LoggerTest) TestTextFormat() {
	t.rebuild("text")

	Infof("hello %s", "world")

	line := t.buf.String()
	assert.Regexp(t.T(), regexp.MustCompile(`time=\S+ severity=INFO msg="hello world"`), line)
}

func (t *LoggerTest) TestJsonFormat() {
	t.rebuild("json")

	Warnf("retry %d", 3)

	var decoded map[string]any
	require.NoError(t.T(), json.Unmarshal(t.buf.Bytes(), &decoded))
	assert.Equal(t.T(), "WARNING", decoded["severity"])
	assert.Equal(t.T(), "retry 3", decoded["msg"])
}

func (t *LoggerTest) TestAllSeverityLevelsRender() {
	t.rebuild("json")

	cases := []struct {
		log      func(string, ...any)
		expected string
	}{
		{Tracef, "TRACE"},
		{Debugf, "DEBUG"},
		{Infof, "INFO"},
		{Warnf, "WARNING"},
		{Errorf, "ERROR"},
	}

	for _, tc := range cases {
		t.buf.Reset()
		tc.log("msg")

		var decoded map[string]any
		require.NoError(t.T(), json.Unmarshal(t.buf.Bytes(), &decoded))
		assert.Equal(t.T(), tc.expected, decoded["severity"])
	}
}

func (t *LoggerTest) TestSetLoggingLevelFiltersBelowThreshold() {
	setLoggingLevel(string(cfg.WarningLogSeverity), programLevel)
	t.rebuild("json")

	Infof("suppressed")

	assert.Empty(t.T(), t.buf.String())
}

func (t *LoggerTest) TestOffSeverityFiltersEverything() {
	setLoggingLevel(string(cfg.OffLogSeverity), programLevel)
	t.rebuild("json")

	Errorf("also suppressed")

	assert.Empty(t.T(), t.buf.String())
}

func (t *LoggerTest) TestSetLogFormatDefaultsToJson() {
	SetLogFormat("")

	assert.Equal(t.T(), "json", defaultLoggerFactory.format)
	assert.NotNil(t.T(), defaultLogger)
}

func (t *LoggerTest) TestInitLogFileWithEmptyPathLeavesLoggerUsable() {
	err := InitLogFile(cfg.LoggingConfig{Severity: cfg.DebugLogSeverity, Format: "json"})

	require.NoError(t.T(), err)
	assert.Equal(t.T(), cfg.DebugLogSeverity, defaultLoggerFactory.level)
	assert.Nil(t.T(), defaultLoggerFactory.file)
}
