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

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cloudmount/drivefuse/clock"
	"github.com/cloudmount/drivefuse/internal/logger"
)

const (
	maxRefreshAttempts  = 10
	refreshRetryPause   = time.Second
	refreshTokenFile    = "refresh_token"
	defaultInitialDelay = 7000 * time.Second
)

// RefreshResponse is the subset of the token endpoint's JSON body the
// manager reads.
type RefreshResponse struct {
	RefreshToken   string `json:"refresh_token"`
	AccessToken    string `json:"access_token"`
	ExpiresIn      int64  `json:"expires_in"`
	DefaultDriveID string `json:"default_drive_id"`
	NickName       string `json:"nick_name"`
}

// BootstrapResult is delivered exactly once over Manager.Bootstrapped, once
// the first refresh (with retry) has completed or exhausted its retries. An
// empty DriveID signals a fatal bootstrap failure.
type BootstrapResult struct {
	DriveID  string
	NickName string
}

// retryableError marks a refresh failure that the retry policy should
// retry: a connection error, a request timeout, or HTTP 429.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Manager owns the credentials cell, performs the refresh protocol against
// the token endpoint, and runs the background periodic refresh described in
// the component's background-refresh contract.
type Manager struct {
	cell       *Cell
	httpClient *http.Client
	endpoints  Endpoints
	workdir    string
	clk        clock.Clock

	// Bootstrapped is a one-shot, buffered channel carrying the result of
	// the first refresh to whoever is waiting to finish mounting.
	Bootstrapped chan BootstrapResult

	mu       sync.Mutex
	driveID  string
	nickName string
}

// NewManager constructs a Manager. workdir may be empty, in which case the
// refresh token is never persisted or read from disk.
func NewManager(refreshToken, workdir string, endpoints Endpoints, clk clock.Clock) *Manager {
	return &Manager{
		cell:       NewCell(refreshToken),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoints:  endpoints,
		workdir:    workdir,
		clk:        clk,
		Bootstrapped: make(chan BootstrapResult, 1),
	}
}

// CurrentAccessToken returns the access token currently in the cell.
func (m *Manager) CurrentAccessToken() (string, bool) {
	return m.cell.CurrentAccessToken()
}

// CurrentRefreshToken returns the refresh token currently in the cell.
func (m *Manager) CurrentRefreshToken() string {
	return m.cell.CurrentRefreshToken()
}

// Refresh triggers an on-demand refresh_with_retry(none), for use by the
// drive client's 401 handling. It satisfies driveapi.TokenSource.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err := m.RefreshWithRetry(ctx, nil)
	return err
}

// DriveID returns the drive id learned from the first successful refresh.
// Only meaningful after Bootstrapped has delivered a non-empty result.
func (m *Manager) DriveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.driveID
}

// NickName returns the account nickname learned from the first successful
// refresh, used to decorate the mount's volume name.
func (m *Manager) NickName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nickName
}

func (m *Manager) persistedRefreshToken() (string, bool) {
	if m.workdir == "" {
		return "", false
	}
	b, err := os.ReadFile(filepath.Join(m.workdir, refreshTokenFile))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(b)), true
}

func (m *Manager) persist(refreshToken string) {
	if m.workdir == "" {
		return
	}
	if err := os.MkdirAll(m.workdir, 0o700); err != nil {
		logger.Warnf("persisting refresh token: creating workdir %q: %v", m.workdir, err)
		return
	}
	path := filepath.Join(m.workdir, refreshTokenFile)
	if err := os.WriteFile(path, []byte(refreshToken), 0o600); err != nil {
		logger.Warnf("persisting refresh token to %q: %v", path, err)
	}
}

// RefreshWithRetry performs the refresh protocol, retrying transient
// failures up to maxRefreshAttempts times with a pause between attempts. If
// bootstrap is non-nil and differs from the token currently being tried,
// the first non-retryable failure swaps it in (trimmed) and continues,
// without logging a warning for that particular failure.
func (m *Manager) RefreshWithRetry(ctx context.Context, bootstrap *string) (RefreshResponse, error) {
	current := m.cell.CurrentRefreshToken()
	var lastErr error
	swapped := false

	for attempt := 1; attempt <= maxRefreshAttempts; attempt++ {
		resp, err := m.doRefresh(ctx, current)
		if err == nil {
			m.cell.set(resp.RefreshToken, resp.AccessToken)
			m.persist(resp.RefreshToken)
			return resp, nil
		}
		lastErr = err

		if isRetryable(err) {
			logger.Warnf("refresh attempt %d/%d failed, retrying: %v", attempt, maxRefreshAttempts, err)
			if attempt < maxRefreshAttempts {
				select {
				case <-ctx.Done():
					return RefreshResponse{}, ctx.Err()
				case <-m.clk.After(refreshRetryPause):
				}
			}
			continue
		}

		if !swapped && bootstrap != nil {
			trimmed := strings.TrimSpace(*bootstrap)
			if trimmed != current {
				current = trimmed
				swapped = true
				continue
			}
		}

		break
	}

	return RefreshResponse{}, lastErr
}

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

func (m *Manager) doRefresh(ctx context.Context, refreshToken string) (RefreshResponse, error) {
	body := map[string]string{
		"refresh_token": refreshToken,
		"grant_type":    "refresh_token",
	}
	if m.endpoints.AppID != "" {
		body["app_id"] = m.endpoints.AppID
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return RefreshResponse{}, fmt.Errorf("encoding refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoints.RefreshURL, bytes.NewReader(encoded))
	if err != nil {
		return RefreshResponse{}, fmt.Errorf("building refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		if isTimeoutOrConnError(err) {
			return RefreshResponse{}, &retryableError{err: err}
		}
		return RefreshResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return RefreshResponse{}, &retryableError{err: fmt.Errorf("refresh: status 429")}
	}
	if resp.StatusCode/100 != 2 {
		return RefreshResponse{}, fmt.Errorf("refresh: unexpected status %d", resp.StatusCode)
	}

	var rr RefreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return RefreshResponse{}, fmt.Errorf("decoding refresh response: %w", err)
	}
	return rr, nil
}

func isTimeoutOrConnError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// Run is the background refresh worker. It performs the first refresh
// (consulting any refresh token persisted under workdir as the bootstrap
// value), delivers the result over Bootstrapped exactly once, then sleeps
// and refreshes forever until ctx is canceled. It never returns an error:
// failures are logged, and an empty DriveID on the bootstrap result is the
// caller's signal to treat the mount as fatally unbootstrapped. After a
// failed bootstrap refresh Run delivers that empty result and returns.
func (m *Manager) Run(ctx context.Context) {
	var bootstrap *string
	if persisted, ok := m.persistedRefreshToken(); ok {
		bootstrap = &persisted
	}

	interval := defaultInitialDelay

	resp, err := m.RefreshWithRetry(ctx, bootstrap)
	if err != nil {
		logger.Errorf("bootstrap refresh failed after %d attempts: %v", maxRefreshAttempts, err)
		m.Bootstrapped <- BootstrapResult{}
		return
	}

	m.mu.Lock()
	m.driveID = resp.DefaultDriveID
	m.nickName = resp.NickName
	m.mu.Unlock()

	if resp.ExpiresIn > 0 {
		interval = time.Duration(resp.ExpiresIn-200) * time.Second
	}
	m.Bootstrapped <- BootstrapResult{DriveID: resp.DefaultDriveID, NickName: resp.NickName}

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.clk.After(interval):
		}

		resp, err := m.RefreshWithRetry(ctx, nil)
		if err != nil {
			logger.Errorf("background refresh failed after %d attempts: %v", maxRefreshAttempts, err)
			continue
		}
		if resp.ExpiresIn > 0 {
			interval = time.Duration(resp.ExpiresIn-200) * time.Second
		}
	}
}
