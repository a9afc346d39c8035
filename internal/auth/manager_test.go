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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudmount/drivefuse/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, handler http.HandlerFunc, workdir string, clk clock.Clock) *Manager {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	endpoints := Endpoints{BaseURL: server.URL, RefreshURL: server.URL + "/token/refresh"}
	return NewManager("INITIAL", workdir, endpoints, clk)
}

func TestRefreshWithRetrySucceedsImmediately(t *testing.T) {
	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(RefreshResponse{RefreshToken: "NEW", AccessToken: "A1", ExpiresIn: 7200, DefaultDriveID: "d1", NickName: "alice"})
	}, "", clock.RealClock{})

	resp, err := m.RefreshWithRetry(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, "NEW", resp.RefreshToken)
	assert.Equal(t, "A1", resp.AccessToken)
	token, ok := m.CurrentAccessToken()
	assert.True(t, ok)
	assert.Equal(t, "A1", token)
}

func TestRefreshWithRetrySucceedsOnTenthAttemptAfterNine429s(t *testing.T) {
	var attempts atomic.Int32
	sc := clock.NewSimulatedClock(time.Unix(0, 0))
	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n < 10 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(RefreshResponse{RefreshToken: "NEW", AccessToken: "A1"})
	}, "", sc)

	done := make(chan struct{})
	var resp RefreshResponse
	var err error
	go func() {
		resp, err = m.RefreshWithRetry(context.Background(), nil)
		close(done)
	}()

	// Advance the simulated clock through the nine retry pauses.
	for i := 0; i < 9; i++ {
		advanceUntilPending(t, sc, refreshRetryPause)
	}

	<-done
	require.NoError(t, err)
	assert.Equal(t, "NEW", resp.RefreshToken)
	assert.EqualValues(t, 10, attempts.Load())
}

func TestRefreshWithRetryFailsOnTenthAttempt(t *testing.T) {
	sc := clock.NewSimulatedClock(time.Unix(0, 0))
	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, "", sc)

	done := make(chan struct{})
	var err error
	go func() {
		_, err = m.RefreshWithRetry(context.Background(), nil)
		close(done)
	}()

	for i := 0; i < 9; i++ {
		advanceUntilPending(t, sc, refreshRetryPause)
	}

	<-done
	assert.Error(t, err)
}

func TestRefreshWithRetrySwapsInBootstrapTokenOnNonRetryableFailure(t *testing.T) {
	var seenTokens []string
	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		seenTokens = append(seenTokens, body["refresh_token"])
		if body["refresh_token"] == "GOOD" {
			json.NewEncoder(w).Encode(RefreshResponse{RefreshToken: "NEW", AccessToken: "A1", DefaultDriveID: "d1", NickName: "alice"})
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}, "", clock.RealClock{})

	bootstrap := " GOOD "
	resp, err := m.RefreshWithRetry(context.Background(), &bootstrap)

	require.NoError(t, err)
	assert.Equal(t, "NEW", resp.RefreshToken)
	assert.Equal(t, []string{"INITIAL", "GOOD"}, seenTokens)
}

func TestRefreshWithRetryPersistsNewRefreshToken(t *testing.T) {
	workdir := t.TempDir()
	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(RefreshResponse{RefreshToken: "PERSISTED", AccessToken: "A1"})
	}, workdir, clock.RealClock{})

	_, err := m.RefreshWithRetry(context.Background(), nil)
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(workdir, refreshTokenFile))
	require.NoError(t, err)
	assert.Equal(t, "PERSISTED", string(contents))
}

func TestRunDeliversBootstrapResultAndSchedulesNextRefresh(t *testing.T) {
	sc := clock.NewSimulatedClock(time.Unix(0, 0))
	var attempts atomic.Int32
	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		json.NewEncoder(w).Encode(RefreshResponse{RefreshToken: "NEW", AccessToken: "A1", ExpiresIn: 400, DefaultDriveID: "d1", NickName: "alice"})
	}, "", sc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	result := <-m.Bootstrapped
	assert.Equal(t, "d1", result.DriveID)
	assert.Equal(t, "alice", result.NickName)
	assert.Equal(t, "d1", m.DriveID())

	advanceUntilPending(t, sc, 200*time.Second)

	assert.Eventually(t, func() bool { return attempts.Load() == 2 }, time.Second, time.Millisecond)
}

func TestRunDeliversEmptyBootstrapResultOnFatalFailure(t *testing.T) {
	sc := clock.NewSimulatedClock(time.Unix(0, 0))
	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, "", sc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	for i := 0; i < 9; i++ {
		advanceUntilPending(t, sc, refreshRetryPause)
	}

	result := <-m.Bootstrapped
	assert.Empty(t, result.DriveID)
}

// advanceUntilPending advances the simulated clock by d, giving the
// background goroutine a moment to register its next After() call first.
func advanceUntilPending(t *testing.T, sc *clock.SimulatedClock, d time.Duration) {
	t.Helper()
	time.Sleep(5 * time.Millisecond)
	sc.AdvanceTime(d)
}

func TestResolveEndpointsDefault(t *testing.T) {
	e := ResolveEndpoints("")

	assert.Equal(t, "https://api.aliyundrive.com", e.BaseURL)
	assert.Equal(t, "https://api.aliyundrive.com/token/refresh", e.RefreshURL)
	assert.Empty(t, e.AppID)
}

func TestResolveEndpointsWithDomainID(t *testing.T) {
	e := ResolveEndpoints("d42")

	assert.Equal(t, "https://d42.api.aliyunpds.com", e.BaseURL)
	assert.Equal(t, "https://d42.auth.aliyunpds.com/v2/account/token", e.RefreshURL)
	assert.Equal(t, "BasicUI", e.AppID)
}
