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

// Package mount assembles the jacobsa/fuse mount configuration and attaches
// the VFS adaptor to a mount point.
package mount

import (
	"fmt"

	"github.com/jacobsa/fuse"

	"github.com/cloudmount/drivefuse/cfg"
	"github.com/cloudmount/drivefuse/internal/logger"
)

const fsSubtype = "drivefuse"

// volumeName picks the Darwin-visible volume name: the configured name when
// set, else the account's nickname when known, otherwise a generic label.
func volumeName(configured, nickName string) string {
	if configured != "" {
		return configured
	}
	if nickName != "" {
		return fmt.Sprintf("阿里云盘(%s)", nickName)
	}
	return "阿里云盘"
}

// Config builds the jacobsa/fuse mount configuration for fsName. The mount
// is always read-only and always skips file-access-time updates, since the
// drive account has no notion of atime to report.
func Config(mountCfg cfg.MountConfig, loggingCfg cfg.LoggingConfig, fsName, nickName string) *fuse.MountConfig {
	options := map[string]string{"ro": "", "noatime": ""}
	if mountCfg.AllowOther {
		options["allow_other"] = ""
	}

	c := &fuse.MountConfig{
		FSName:     fsName,
		Subtype:    fsSubtype,
		VolumeName: volumeName(mountCfg.VolumeName, nickName),
		Options:    options,
		ReadOnly:   true,
	}

	if loggingCfg.Severity.Rank() <= cfg.ErrorLogSeverity.Rank() {
		c.ErrorLogger = logger.NewLegacyLogger(logger.LevelError, "fuse: ", fsName)
	}
	if loggingCfg.Severity.Rank() <= cfg.TraceLogSeverity.Rank() {
		c.DebugLogger = logger.NewLegacyLogger(logger.LevelTrace, "fuse_debug: ", fsName)
	}
	return c
}

// Mount attaches server (normally fuseutil.NewFileSystemServer(vfsImpl)) at
// dir and blocks until the kernel handshake completes.
func Mount(dir string, server fuse.Server, config *fuse.MountConfig) (*fuse.MountedFileSystem, error) {
	mfs, err := fuse.Mount(dir, server, config)
	if err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}
	return mfs, nil
}
