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

// Package metrics records OpenTelemetry counters and histograms for the
// drive API calls in internal/driveapi and the read cache in
// internal/cache. Handle also defines FUSE op instruments (OpsCount,
// OpsLatency, OpsErrorCount); internal/vfs does not record them.
package metrics

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// FSOpKey annotates the FUSE op processed (lookup, getattr, readdir, ...).
	FSOpKey = "fs_op"

	// DriveMethodKey annotates the drive API method called (list, download, ...).
	DriveMethodKey = "drive_method"

	// CacheHitKey annotates a cache read with "true" or "false".
	CacheHitKey = "cache_hit"

	// RetriedKey annotates a drive API call with whether it needed a retry.
	RetriedKey = "retried"
)

var (
	fsOpsMeter    = otel.Meter("fs_op")
	driveMeter    = otel.Meter("drive")
	cacheMeter    = otel.Meter("read_cache")
	defaultLatHist = metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000)

	fsOpsAttrs        sync.Map
	driveMethodAttrs  sync.Map
	driveRetriedAttrs sync.Map
	cacheHitAttrs     sync.Map
)

func loadOrStore[K comparable](m *sync.Map, key K, gen func() attribute.Set) metric.MeasurementOption {
	if v, ok := m.Load(key); ok {
		return v.(metric.MeasurementOption)
	}
	v, _ := m.LoadOrStore(key, metric.WithAttributeSet(gen()))
	return v.(metric.MeasurementOption)
}

func fsOpAttrSet(op string) metric.MeasurementOption {
	return loadOrStore(&fsOpsAttrs, op, func() attribute.Set {
		return attribute.NewSet(attribute.String(FSOpKey, op))
	})
}

func driveMethodAttrSet(method string) metric.MeasurementOption {
	return loadOrStore(&driveMethodAttrs, method, func() attribute.Set {
		return attribute.NewSet(attribute.String(DriveMethodKey, method))
	})
}

func driveRetriedAttrSet(method string, retried bool) metric.MeasurementOption {
	type key struct {
		method  string
		retried bool
	}
	return loadOrStore(&driveRetriedAttrs, key{method, retried}, func() attribute.Set {
		return attribute.NewSet(attribute.String(DriveMethodKey, method), attribute.Bool(RetriedKey, retried))
	})
}

func cacheHitAttrSet(hit bool) metric.MeasurementOption {
	return loadOrStore(&cacheHitAttrs, hit, func() attribute.Set {
		return attribute.NewSet(attribute.Bool(CacheHitKey, hit))
	})
}

// Handle is the metrics surface the rest of the codebase depends on. It is
// implemented by otelHandle (production) and noopHandle (metrics disabled
// or not yet initialized), and can be swapped for a mock in tests.
type Handle interface {
	// OpsCount increments the processed-op counter for a FUSE operation.
	OpsCount(ctx context.Context, inc int64, op string)
	// OpsLatency records the latency, in microseconds, of a FUSE operation.
	OpsLatency(ctx context.Context, latency time.Duration, op string)
	// OpsErrorCount increments the failed-op counter for a FUSE operation.
	OpsErrorCount(ctx context.Context, inc int64, op string)

	// DriveRequestCount increments the request counter for a drive API call.
	DriveRequestCount(ctx context.Context, inc int64, method string, retried bool)
	// DriveRequestLatency records the latency, in milliseconds, of a drive
	// API call.
	DriveRequestLatency(ctx context.Context, latency time.Duration, method string)
	// DriveBytesDownloaded increments the cumulative bytes downloaded.
	DriveBytesDownloaded(ctx context.Context, inc int64)

	// CacheReadCount increments the cache read counter, tagged hit or miss.
	CacheReadCount(ctx context.Context, inc int64, hit bool)
	// CacheReadBytesCount increments the cumulative bytes served from cache.
	CacheReadBytesCount(ctx context.Context, inc int64)
}

type otelHandle struct {
	fsOpsCount      metric.Int64Counter
	fsOpsErrorCount metric.Int64Counter
	fsOpsLatency    metric.Float64Histogram

	driveRequestCount   metric.Int64Counter
	driveRequestLatency metric.Float64Histogram
	driveBytesAtomic    *atomic.Int64

	cacheReadCount      metric.Int64Counter
	cacheReadBytesAtomic *atomic.Int64
}

// New builds the OpenTelemetry-backed Handle. It registers the same
// instruments every time it's called, so callers should build exactly one
// and share it.
func New() (Handle, error) {
	fsOpsCount, err1 := fsOpsMeter.Int64Counter("fs/ops_count", metric.WithDescription("Number of FUSE ops processed."))
	fsOpsErrorCount, err2 := fsOpsMeter.Int64Counter("fs/ops_error_count", metric.WithDescription("Number of FUSE ops that returned an error."))
	fsOpsLatency, err3 := fsOpsMeter.Float64Histogram("fs/ops_latency", metric.WithDescription("FUSE op latency."), metric.WithUnit("us"), defaultLatHist)

	driveRequestCount, err4 := driveMeter.Int64Counter("drive/request_count", metric.WithDescription("Number of drive API requests, tagged by method and whether a retry was needed."))
	driveRequestLatency, err5 := driveMeter.Float64Histogram("drive/request_latency", metric.WithDescription("Drive API request latency."), metric.WithUnit("ms"))

	var driveBytesAtomic atomic.Int64
	_, err6 := driveMeter.Int64ObservableCounter("drive/download_bytes_count",
		metric.WithDescription("Cumulative bytes downloaded from the drive."),
		metric.WithUnit("By"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(driveBytesAtomic.Load())
			return nil
		}))

	cacheReadCount, err7 := cacheMeter.Int64Counter("read_cache/read_count", metric.WithDescription("Number of reads served by the per-handle cache, tagged by hit/miss."))

	var cacheReadBytesAtomic atomic.Int64
	_, err8 := cacheMeter.Int64ObservableCounter("read_cache/read_bytes_count",
		metric.WithDescription("Cumulative bytes served from the per-handle cache."),
		metric.WithUnit("By"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(cacheReadBytesAtomic.Load())
			return nil
		}))

	if err := errors.Join(err1, err2, err3, err4, err5, err6, err7, err8); err != nil {
		return nil, err
	}

	return &otelHandle{
		fsOpsCount:           fsOpsCount,
		fsOpsErrorCount:      fsOpsErrorCount,
		fsOpsLatency:         fsOpsLatency,
		driveRequestCount:    driveRequestCount,
		driveRequestLatency:  driveRequestLatency,
		driveBytesAtomic:     &driveBytesAtomic,
		cacheReadCount:       cacheReadCount,
		cacheReadBytesAtomic: &cacheReadBytesAtomic,
	}, nil
}

func (h *otelHandle) OpsCount(ctx context.Context, inc int64, op string) {
	h.fsOpsCount.Add(ctx, inc, fsOpAttrSet(op))
}

func (h *otelHandle) OpsLatency(ctx context.Context, latency time.Duration, op string) {
	h.fsOpsLatency.Record(ctx, float64(latency.Microseconds()), fsOpAttrSet(op))
}

func (h *otelHandle) OpsErrorCount(ctx context.Context, inc int64, op string) {
	h.fsOpsErrorCount.Add(ctx, inc, fsOpAttrSet(op))
}

func (h *otelHandle) DriveRequestCount(ctx context.Context, inc int64, method string, retried bool) {
	h.driveRequestCount.Add(ctx, inc, driveRetriedAttrSet(method, retried))
}

func (h *otelHandle) DriveRequestLatency(ctx context.Context, latency time.Duration, method string) {
	h.driveRequestLatency.Record(ctx, float64(latency.Milliseconds()), driveMethodAttrSet(method))
}

func (h *otelHandle) DriveBytesDownloaded(_ context.Context, inc int64) {
	h.driveBytesAtomic.Add(inc)
}

func (h *otelHandle) CacheReadCount(ctx context.Context, inc int64, hit bool) {
	h.cacheReadCount.Add(ctx, inc, cacheHitAttrSet(hit))
}

func (h *otelHandle) CacheReadBytesCount(_ context.Context, inc int64) {
	h.cacheReadBytesAtomic.Add(inc)
}
