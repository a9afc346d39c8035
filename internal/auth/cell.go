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

// Package auth owns the credentials cell and the background refresh worker
// that keeps it current: a long-lived refresh token persisted to disk and a
// short-lived access token handed to every drive API call.
package auth

import "sync"

// Cell is the shared, mutable credentials record. Many request goroutines
// read it concurrently; only the Manager's refresh loop writes it. A
// sync.RWMutex gives exactly that reader-preferring behavior.
type Cell struct {
	mu           sync.RWMutex
	refreshToken string
	accessToken  string
}

// NewCell constructs a cell seeded with the configured refresh token and no
// access token yet.
func NewCell(refreshToken string) *Cell {
	return &Cell{refreshToken: refreshToken}
}

// CurrentRefreshToken returns a snapshot of the refresh token.
func (c *Cell) CurrentRefreshToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshToken
}

// CurrentAccessToken returns a snapshot of the access token. ok is false
// until the first successful refresh has populated it.
func (c *Cell) CurrentAccessToken() (token string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken, c.accessToken != ""
}

// set installs a new token pair. Only the Manager's refresh loop calls this.
func (c *Cell) set(refreshToken, accessToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshToken = refreshToken
	c.accessToken = accessToken
}
