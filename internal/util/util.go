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

// Package util holds small helpers: path resolution for config-bound
// paths, JSON stringification, byte/MiB conversion, and context isolation.
package util

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// DRIVEFUSE_PARENT_PROCESS_DIR, when set, is used as the base directory for
// resolving relative paths instead of the current working directory. This
// lets a parent process (for example one that forks this binary into the
// background) tell it what "relative" should mean.
const DRIVEFUSE_PARENT_PROCESS_DIR = "DRIVEFUSE_PARENT_PROCESS_DIR"

// GetResolvedPath resolves filePath to an absolute path.
//
//   - "" resolves to "".
//   - A path starting with "~" is resolved relative to the user's home
//     directory.
//   - Any other relative path is resolved relative to
//     DRIVEFUSE_PARENT_PROCESS_DIR, falling back to the current working
//     directory when that variable is unset.
//   - An absolute path is returned unchanged.
func GetResolvedPath(filePath string) (resolvedPath string, err error) {
	if filePath == "" {
		return "", nil
	}

	if strings.HasPrefix(filePath, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, strings.TrimPrefix(filePath, "~")), nil
	}

	if filepath.IsAbs(filePath) {
		return filePath, nil
	}

	baseDir := os.Getenv(DRIVEFUSE_PARENT_PROCESS_DIR)
	if baseDir == "" {
		baseDir, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}

	return filepath.Join(baseDir, filePath), nil
}

// Stringify marshals v to a compact JSON string for logging, returning ""
// if v cannot be marshaled.
func Stringify(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// MiBsToBytes converts a size in mebibytes to bytes.
func MiBsToBytes(mib uint64) uint64 {
	return mib << 20
}

// BytesToHigherMiBs converts a size in bytes to the smallest number of whole
// mebibytes that can hold it.
func BytesToHigherMiBs(bytes uint64) uint64 {
	mib := bytes >> 20
	if bytes&(1<<20-1) != 0 {
		mib++
	}
	return mib
}

// IsolateContextFromParentContext returns a context that carries no
// cancellation relationship to parent beyond this call: canceling parent
// does not cancel the returned context.
func IsolateContextFromParentContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(context.Background())
}
