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

package driveapi

import "time"

// FileType discriminates a RemoteFile between a directory and a regular
// file, mirroring the remote service's own "type" field.
type FileType string

const (
	FileTypeFolder FileType = "folder"
	FileTypeFile   FileType = "file"
)

// RemoteFile is one entry of a directory listing, or the synthesized root
// record built from a quota response.
type RemoteFile struct {
	FileID    string    `json:"file_id"`
	Name      string    `json:"name"`
	Type      FileType  `json:"type"`
	Size      uint64    `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsDir reports whether the entry is a folder.
func (f RemoteFile) IsDir() bool {
	return f.Type == FileTypeFolder
}

// listFileRequest is the body of a POST to /v2/file/list. The thumbnail and
// URL processing fields are opaque, service-specific strings the API
// requires but never interprets on our behalf.
type listFileRequest struct {
	DriveID               string `json:"drive_id"`
	ParentFileID          string `json:"parent_file_id"`
	Limit                 int    `json:"limit"`
	All                   bool   `json:"all"`
	ImageThumbnailProcess string `json:"image_thumbnail_process"`
	ImageURLProcess       string `json:"image_url_process"`
	VideoThumbnailProcess string `json:"video_thumbnail_process"`
	Fields                string `json:"fields"`
	OrderBy               string `json:"order_by"`
	OrderDirection        string `json:"order_direction"`
	Marker                string `json:"marker,omitempty"`
}

// ListPage is one page of a directory listing.
type ListPage struct {
	Items      []RemoteFile `json:"items"`
	NextMarker string       `json:"next_marker"`
}

type getDownloadURLRequest struct {
	DriveID string `json:"drive_id"`
	FileID  string `json:"file_id"`
}

type getDownloadURLResponse struct {
	URL string `json:"url"`
}

type getDriveRequest struct {
	DriveID string `json:"drive_id"`
}

type getDriveResponse struct {
	UsedSize  uint64 `json:"used_size"`
	TotalSize uint64 `json:"total_size"`
}

// Quota is the account's storage usage, read at filesystem init to size the
// synthesized root directory.
type Quota struct {
	UsedBytes  uint64
	TotalBytes uint64
}
