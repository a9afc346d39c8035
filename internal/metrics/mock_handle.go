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

	"github.com/stretchr/testify/mock"
)

// MockHandle lets tests assert which measurements a component recorded
// without standing up a real meter provider.
type MockHandle struct {
	mock.Mock
}

func (m *MockHandle) OpsCount(ctx context.Context, inc int64, op string) {
	m.Called(ctx, inc, op)
}

func (m *MockHandle) OpsLatency(ctx context.Context, latency time.Duration, op string) {
	m.Called(ctx, latency, op)
}

func (m *MockHandle) OpsErrorCount(ctx context.Context, inc int64, op string) {
	m.Called(ctx, inc, op)
}

func (m *MockHandle) DriveRequestCount(ctx context.Context, inc int64, method string, retried bool) {
	m.Called(ctx, inc, method, retried)
}

func (m *MockHandle) DriveRequestLatency(ctx context.Context, latency time.Duration, method string) {
	m.Called(ctx, latency, method)
}

func (m *MockHandle) DriveBytesDownloaded(ctx context.Context, inc int64) {
	m.Called(ctx, inc)
}

func (m *MockHandle) CacheReadCount(ctx context.Context, inc int64, hit bool) {
	m.Called(ctx, inc, hit)
}

func (m *MockHandle) CacheReadBytesCount(ctx context.Context, inc int64) {
	m.Called(ctx, inc)
}
