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

// Package driveapi is the typed request/response layer over the remote
// drive's HTTPS API: paged directory listing, download URL issuance, quota,
// and ranged download. Every JSON call is wrapped in a retry/re-auth
// envelope; range downloads are not.
package driveapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cloudmount/drivefuse/clock"
	"github.com/cloudmount/drivefuse/internal/metrics"
)

const (
	originHeader   = "https://www.aliyundrive.com"
	refererHeader  = "https://www.aliyundrive.com/"
	userAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/105.0.0.0 Safari/537.36"
	retryPause     = time.Second
	connectTimeout = 10 * time.Second
	idleTimeout    = 50 * time.Second
	totalTimeout   = 30 * time.Second

	// Fixed list_file request parameters. Opaque to us; required by the
	// remote service, never interpreted on our behalf.
	listLimit                 = 200
	listImageThumbnailProcess = "image/resize,w_400/format,jpeg"
	listImageURLProcess       = "image/resize,w_1920/format,jpeg"
	listVideoThumbnailProcess = "video/snapshot,t_0,f_jpg,ar_auto,w_300"
	listFields                = "*"
	listOrderBy                = "updated_at"
	listOrderDirection         = "DESC"
)

// TokenSource supplies the bearer access token for drive requests and
// performs an on-demand refresh when a request comes back 401. Implemented
// by *auth.Manager.
type TokenSource interface {
	CurrentAccessToken() (string, bool)
	Refresh(ctx context.Context) error
}

// DriveIDSource supplies the drive id learned at bootstrap, required on
// every list/quota request. Implemented by *auth.Manager.
type DriveIDSource interface {
	DriveID() string
}

// Client is the authenticated drive API user-agent. It is safe for
// concurrent use: it holds a shared connection pool and a reference to the
// credentials cell via TokenSource, never its own mutable state.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	driveID    DriveIDSource
	metrics    metrics.Handle
	clk        clock.Clock
}

// NewClient builds a Client against baseURL (see auth.ResolveEndpoints).
func NewClient(baseURL string, tokens TokenSource, driveID DriveIDSource, metricsHandle metrics.Handle, clk clock.Clock) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		IdleConnTimeout: idleTimeout,
	}
	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   totalTimeout,
		},
		baseURL: baseURL,
		tokens:  tokens,
		driveID: driveID,
		metrics: metricsHandle,
		clk:     clk,
	}
}

// List fetches one page of parentID's children.
func (c *Client) List(ctx context.Context, parentID, marker string) (ListPage, error) {
	req := listFileRequest{
		DriveID:               c.driveID.DriveID(),
		ParentFileID:          parentID,
		Limit:                 listLimit,
		All:                   false,
		ImageThumbnailProcess: listImageThumbnailProcess,
		ImageURLProcess:       listImageURLProcess,
		VideoThumbnailProcess: listVideoThumbnailProcess,
		Fields:                listFields,
		OrderBy:               listOrderBy,
		OrderDirection:        listOrderDirection,
		Marker:                marker,
	}
	page, err := doRequest[ListPage](ctx, c, "list", "/v2/file/list", req)
	if err != nil {
		return ListPage{}, fmt.Errorf("listing %q: %w", parentID, err)
	}
	if page == nil {
		return ListPage{}, nil
	}
	return *page, nil
}

// ListAll concatenates every page of parentID's children, in server order.
func (c *Client) ListAll(ctx context.Context, parentID string) ([]RemoteFile, error) {
	var all []RemoteFile
	marker := ""
	for {
		page, err := c.List(ctx, parentID, marker)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if page.NextMarker == "" {
			return all, nil
		}
		marker = page.NextMarker
	}
}

// GetDownloadURL issues a fresh, short-lived download URL for fileID.
func (c *Client) GetDownloadURL(ctx context.Context, fileID string) (string, error) {
	req := getDownloadURLRequest{DriveID: c.driveID.DriveID(), FileID: fileID}
	resp, err := doRequest[getDownloadURLResponse](ctx, c, "get_download_url", "/v2/file/get_download_url", req)
	if err != nil {
		return "", fmt.Errorf("getting download url for %q: %w", fileID, err)
	}
	if resp == nil || resp.URL == "" {
		return "", fmt.Errorf("getting download url for %q: empty response", fileID)
	}
	return resp.URL, nil
}

// GetQuota reads the account's storage usage.
func (c *Client) GetQuota(ctx context.Context) (Quota, error) {
	req := getDriveRequest{DriveID: c.driveID.DriveID()}
	resp, err := doRequest[getDriveResponse](ctx, c, "get_quota", "/v2/drive/get", req)
	if err != nil {
		return Quota{}, fmt.Errorf("getting quota: %w", err)
	}
	if resp == nil {
		return Quota{}, fmt.Errorf("getting quota: empty response")
	}
	return Quota{UsedBytes: resp.UsedSize, TotalBytes: resp.TotalSize}, nil
}

// Download fetches exactly size bytes (or fewer, at end of file) starting at
// start from url, via an HTTP range request. Unlike the other operations,
// this is not wrapped by the retry/re-auth envelope: the caller (the read
// cache) surfaces failures directly.
func (c *Client) Download(ctx context.Context, url string, start, size int64) ([]byte, error) {
	if start < 0 || size <= 0 {
		return nil, fmt.Errorf("invalid download range start=%d size=%d", start, size)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building download request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, start+size-1))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading range: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("downloading range: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading download body: %w", err)
	}

	c.metrics.DriveBytesDownloaded(ctx, int64(len(data)))
	return data, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, accessToken string) ([]byte, int, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", originHeader)
	req.Header.Set("Referer", refererHeader)
	req.Header.Set("User-Agent", userAgent)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("drive api request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response body from %s: %w", path, err)
	}
	return data, resp.StatusCode, nil
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// doRequest implements the retry/re-auth envelope shared by every JSON call:
// send, retry once on 401 after a refresh, retry once on a transient status
// after a pause, surface anything else immediately. 204 No Content decodes
// to a nil result.
func doRequest[T any](ctx context.Context, c *Client, method, path string, body any) (*T, error) {
	start := time.Now()
	accessToken, _ := c.tokens.CurrentAccessToken()

	data, status, err := c.postJSON(ctx, path, body, accessToken)
	if err != nil {
		c.metrics.DriveRequestCount(ctx, 1, method, false)
		return nil, err
	}

	retried := false
	if status == http.StatusUnauthorized {
		if refreshErr := c.tokens.Refresh(ctx); refreshErr != nil {
			c.metrics.DriveRequestCount(ctx, 1, method, false)
			return nil, fmt.Errorf("refreshing after 401: %w", refreshErr)
		}
		accessToken, _ = c.tokens.CurrentAccessToken()
		retried = true
		data, status, err = c.postJSON(ctx, path, body, accessToken)
		if err != nil {
			c.metrics.DriveRequestCount(ctx, 1, method, retried)
			return nil, err
		}
	} else if isRetryableStatus(status) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.clk.After(retryPause):
		}
		retried = true
		data, status, err = c.postJSON(ctx, path, body, accessToken)
		if err != nil {
			c.metrics.DriveRequestCount(ctx, 1, method, retried)
			return nil, err
		}
	}

	c.metrics.DriveRequestCount(ctx, 1, method, retried)
	c.metrics.DriveRequestLatency(ctx, time.Since(start), method)

	if status == http.StatusNoContent {
		return nil, nil
	}
	if status/100 != 2 {
		return nil, fmt.Errorf("%s: unexpected status %d", path, status)
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding response from %s: %w", path, err)
	}
	return &out, nil
}
