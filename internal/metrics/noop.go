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

package metrics

import (
	"context"
	"time"
)

// NewNoop returns a Handle that discards every measurement, used when
// metrics are disabled so callers never have to nil-check.
func NewNoop() Handle {
	return noopHandle{}
}

type noopHandle struct{}

func (noopHandle) OpsCount(context.Context, int64, string)                      {}
func (noopHandle) OpsLatency(context.Context, time.Duration, string)            {}
func (noopHandle) OpsErrorCount(context.Context, int64, string)                 {}
func (noopHandle) DriveRequestCount(context.Context, int64, string, bool)       {}
func (noopHandle) DriveRequestLatency(context.Context, time.Duration, string)   {}
func (noopHandle) DriveBytesDownloaded(context.Context, int64)                  {}
func (noopHandle) CacheReadCount(context.Context, int64, bool)                  {}
func (noopHandle) CacheReadBytesCount(context.Context, int64)                   {}
