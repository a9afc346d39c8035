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

// Package cache is the per-file-handle read cache: one contiguous buffer
// per open handle, refilled by a chunked range download on a miss. It is
// not itself safe for concurrent use: the VFS adaptor serializes every
// callback before touching the cache.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudmount/drivefuse/internal/metrics"
)

// ErrNoEntry is returned by Read when fh was never opened (or has already
// been released).
var ErrNoEntry = errors.New("cache: no entry for handle")

// Downloader is the subset of driveapi.Client the cache needs: a fresh
// download URL per fetch, and the ranged GET itself.
type Downloader interface {
	GetDownloadURL(ctx context.Context, fileID string) (string, error)
	Download(ctx context.Context, url string, start, size int64) ([]byte, error)
}

type handleRecord struct {
	fileID      string
	fileSize    uint64
	bufferStart int64
	buffer      []byte
}

// Cache maps open file handles to their single cached byte range.
type Cache struct {
	client    Downloader
	metrics   metrics.Handle
	chunkSize int64
	records   map[uint64]*handleRecord
}

// New builds a Cache that fetches chunkSize bytes (or fewer, at end of
// file) per miss.
func New(client Downloader, metricsHandle metrics.Handle, chunkSize int64) *Cache {
	return &Cache{
		client:    client,
		metrics:   metricsHandle,
		chunkSize: chunkSize,
		records:   make(map[uint64]*handleRecord),
	}
}

// Open registers fh against fileID/fileSize with an empty buffer. Re-opening
// an already-open fh replaces its record.
func (c *Cache) Open(fh uint64, fileID string, fileSize uint64) {
	c.records[fh] = &handleRecord{fileID: fileID, fileSize: fileSize}
}

// Release drops fh's record. Releasing an unknown fh is a no-op.
func (c *Cache) Release(fh uint64) {
	delete(c.records, fh)
}

// Read serves size bytes at offset for fh, from the cached buffer on a hit
// or via a fresh chunk download on a miss. The caller is responsible for
// clamping size to the file's remaining length before calling.
func (c *Cache) Read(ctx context.Context, fh uint64, offset int64, size int) ([]byte, error) {
	rec, ok := c.records[fh]
	if !ok {
		return nil, ErrNoEntry
	}

	end := offset + int64(size)
	if offset >= rec.bufferStart && end <= rec.bufferStart+int64(len(rec.buffer)) {
		c.metrics.CacheReadCount(ctx, 1, true)
		data := rec.buffer[offset-rec.bufferStart : end-rec.bufferStart]
		c.metrics.CacheReadBytesCount(ctx, int64(len(data)))
		return data, nil
	}

	remaining := int64(rec.fileSize) - offset
	if remaining <= 0 {
		rec.buffer = nil
		rec.bufferStart = offset
		c.metrics.CacheReadCount(ctx, 1, false)
		return nil, nil
	}

	chunkSize := c.chunkSize
	if remaining < chunkSize {
		chunkSize = remaining
	}

	url, err := c.client.GetDownloadURL(ctx, rec.fileID)
	if err != nil {
		return nil, fmt.Errorf("fetching download url: %w", err)
	}
	chunk, err := c.client.Download(ctx, url, offset, chunkSize)
	if err != nil {
		return nil, fmt.Errorf("downloading chunk: %w", err)
	}

	rec.buffer = chunk
	rec.bufferStart = offset
	c.metrics.CacheReadCount(ctx, 1, false)

	n := size
	if n > len(chunk) {
		n = len(chunk)
	}
	c.metrics.CacheReadBytesCount(ctx, int64(n))
	return chunk[:n], nil
}
