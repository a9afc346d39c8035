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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAllInstruments(t *testing.T) {
	h, err := New()

	require.NoError(t, err)
	require.NotNil(t, h)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		h.OpsCount(ctx, 1, "lookup")
		h.OpsLatency(ctx, time.Millisecond, "lookup")
		h.OpsErrorCount(ctx, 1, "lookup")
		h.DriveRequestCount(ctx, 1, "list", false)
		h.DriveRequestLatency(ctx, time.Millisecond, "list")
		h.DriveBytesDownloaded(ctx, 1024)
		h.CacheReadCount(ctx, 1, true)
		h.CacheReadBytesCount(ctx, 1024)
	})
}

func TestNoopHandleDiscardsMeasurements(t *testing.T) {
	h := NewNoop()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		h.OpsCount(ctx, 1, "lookup")
		h.DriveRequestCount(ctx, 1, "list", true)
		h.CacheReadCount(ctx, 1, false)
	})
}

func TestMockHandleRecordsExpectations(t *testing.T) {
	m := new(MockHandle)
	m.On("OpsCount", mock.Anything, int64(1), "read").Return()

	m.OpsCount(context.Background(), 1, "read")

	m.AssertExpectations(t)
}
