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

package cfg

import "fmt"

func isValidLogRotateConfig(config *LogRotateLoggingConfig) error {
	if config.MaxFileSizeMb <= 0 {
		return fmt.Errorf("max-file-size-mb should be at least 1")
	}
	if config.BackupFileCount < 0 {
		return fmt.Errorf("backup-file-count should be 0 (to retain all backup files) or a positive value")
	}
	return nil
}

func isValidCacheConfig(c *CacheConfig) error {
	if c.ChunkSizeMb <= 0 {
		return fmt.Errorf("cache.chunk-size-mb should be at least 1")
	}
	return nil
}

func isValidAuthConfig(c *AuthConfig) error {
	if c.RefreshToken == "" {
		return fmt.Errorf("auth.refresh-token is required")
	}
	return nil
}

// ValidateConfig returns a non-nil error if the config is invalid.
func ValidateConfig(config *Config) error {
	if err := isValidLogRotateConfig(&config.Logging.LogRotate); err != nil {
		return fmt.Errorf("error parsing log-rotate config: %w", err)
	}

	if err := isValidCacheConfig(&config.Cache); err != nil {
		return fmt.Errorf("error parsing cache config: %w", err)
	}

	if err := isValidAuthConfig(&config.Auth); err != nil {
		return fmt.Errorf("error parsing auth config: %w", err)
	}

	if config.Mount.MountPoint == "" {
		return fmt.Errorf("mount.mount-point is required")
	}

	return nil
}
