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

package mount

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloudmount/drivefuse/cfg"
)

func TestVolumeNameUsesConfiguredNameWhenSet(t *testing.T) {
	assert.Equal(t, "custom", volumeName("custom", "someone"))
}

func TestVolumeNameFallsBackToNickname(t *testing.T) {
	assert.Equal(t, "阿里云盘(someone)", volumeName("", "someone"))
}

func TestVolumeNameFallsBackToGenericLabel(t *testing.T) {
	assert.Equal(t, "阿里云盘", volumeName("", ""))
}

func TestConfigIsAlwaysReadOnly(t *testing.T) {
	c := Config(cfg.MountConfig{}, cfg.LoggingConfig{Severity: cfg.OffLogSeverity}, "drivefuse", "")

	assert.True(t, c.ReadOnly)
	assert.Contains(t, c.Options, "ro")
}

func TestConfigAddsAllowOtherWhenRequested(t *testing.T) {
	c := Config(cfg.MountConfig{AllowOther: true}, cfg.LoggingConfig{Severity: cfg.OffLogSeverity}, "drivefuse", "")

	assert.Contains(t, c.Options, "allow_other")
}

func TestConfigOmitsLoggersWhenSeverityIsOff(t *testing.T) {
	c := Config(cfg.MountConfig{}, cfg.LoggingConfig{Severity: cfg.OffLogSeverity}, "drivefuse", "")

	assert.Nil(t, c.ErrorLogger)
	assert.Nil(t, c.DebugLogger)
}

func TestConfigAddsErrorLoggerAtErrorSeverity(t *testing.T) {
	c := Config(cfg.MountConfig{}, cfg.LoggingConfig{Severity: cfg.ErrorLogSeverity}, "drivefuse", "")

	assert.NotNil(t, c.ErrorLogger)
	assert.Nil(t, c.DebugLogger)
}

func TestConfigAddsDebugLoggerAtTraceSeverity(t *testing.T) {
	c := Config(cfg.MountConfig{}, cfg.LoggingConfig{Severity: cfg.TraceLogSeverity}, "drivefuse", "")

	assert.NotNil(t, c.ErrorLogger)
	assert.NotNil(t, c.DebugLogger)
}
