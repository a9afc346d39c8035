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

// Package cfg holds the typed configuration surface bound by cmd through
// viper: everything that tunes the mount, the drive account credentials,
// the read cache, and logging.
package cfg

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully resolved configuration for a single mount invocation,
// assembled from command-line flags, an optional YAML config file, and
// hard-coded defaults, in that order of precedence.
type Config struct {
	Mount   MountConfig   `yaml:"mount"`
	Auth    AuthConfig    `yaml:"auth"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// MountConfig controls how the filesystem is presented to the kernel.
type MountConfig struct {
	// MountPoint is the directory the drive is mounted onto.
	MountPoint ResolvedPath `yaml:"mount-point"`

	// VolumeName is shown to the OS (honored on Darwin, ignored elsewhere).
	VolumeName string `yaml:"volume-name"`

	// AllowOther lets users other than the mount owner access the
	// filesystem; requires user_allow_other in /etc/fuse.conf on Linux.
	AllowOther bool `yaml:"allow-other"`
}

// AuthConfig names the drive account and where its refresh token lives.
type AuthConfig struct {
	// RefreshToken bootstraps the credentials cell on first run.
	RefreshToken string `yaml:"refresh-token"`

	// WorkDir holds the persisted refresh token across restarts.
	WorkDir ResolvedPath `yaml:"workdir"`

	// DriveID pins the mount to a specific drive on accounts with more
	// than one (backup drive, resource drive); empty selects the
	// account's default drive.
	DriveID string `yaml:"drive-id"`
}

// CacheConfig tunes the per-handle read cache.
type CacheConfig struct {
	// ChunkSizeMb is the range-request size used to fill the cache on a
	// miss.
	ChunkSizeMb int64 `yaml:"chunk-size-mb"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Severity  LogSeverity            `yaml:"severity"`
	Format    string                 `yaml:"format"`
	FilePath  ResolvedPath           `yaml:"file-path"`
	LogRotate LogRotateLoggingConfig `yaml:"log-rotate"`
}

// LogRotateLoggingConfig mirrors lumberjack's rotation knobs.
type LogRotateLoggingConfig struct {
	MaxFileSizeMb   int  `yaml:"max-file-size-mb"`
	BackupFileCount int  `yaml:"backup-file-count"`
	Compress        bool `yaml:"compress"`
}

// BindFlags registers every flag this config supports on flagSet and binds
// each one to its viper key, so that flag > config-file > default
// precedence falls out of viper.Unmarshal for free.
func BindFlags(flagSet *pflag.FlagSet) error {
	var err error

	flagSet.StringP("mount-point", "", "", "Directory to mount the drive onto.")
	if err = viper.BindPFlag("mount.mount-point", flagSet.Lookup("mount-point")); err != nil {
		return err
	}

	flagSet.StringP("volume-name", "", "", "Volume name shown to the OS (Darwin only); empty derives it from the account nickname.")
	if err = viper.BindPFlag("mount.volume-name", flagSet.Lookup("volume-name")); err != nil {
		return err
	}

	flagSet.BoolP("allow-other", "", false, "Allow users other than the mount owner to access the filesystem.")
	if err = viper.BindPFlag("mount.allow-other", flagSet.Lookup("allow-other")); err != nil {
		return err
	}

	flagSet.StringP("refresh-token", "", "", "OAuth refresh token used to bootstrap the credentials cell.")
	if err = viper.BindPFlag("auth.refresh-token", flagSet.Lookup("refresh-token")); err != nil {
		return err
	}

	flagSet.StringP("workdir", "", "~/.drivefuse", "Directory used to persist the refresh token across restarts.")
	if err = viper.BindPFlag("auth.workdir", flagSet.Lookup("workdir")); err != nil {
		return err
	}

	flagSet.StringP("drive-id", "", "", "Drive ID to mount; empty selects the account's default drive.")
	if err = viper.BindPFlag("auth.drive-id", flagSet.Lookup("drive-id")); err != nil {
		return err
	}

	flagSet.Int64P("cache-chunk-size-mb", "", 10, "Size in MiB of each range request used to fill the read cache.")
	if err = viper.BindPFlag("cache.chunk-size-mb", flagSet.Lookup("cache-chunk-size-mb")); err != nil {
		return err
	}

	flagSet.BoolP("metrics-enabled", "", false, "Serve Prometheus metrics.")
	if err = viper.BindPFlag("metrics.enabled", flagSet.Lookup("metrics-enabled")); err != nil {
		return err
	}

	flagSet.IntP("metrics-port", "", 9477, "Port to serve Prometheus metrics on.")
	if err = viper.BindPFlag("metrics.port", flagSet.Lookup("metrics-port")); err != nil {
		return err
	}

	flagSet.StringP("log-severity", "", string(InfoLogSeverity), "Logging severity: TRACE, DEBUG, INFO, WARNING, ERROR, OFF.")
	if err = viper.BindPFlag("logging.severity", flagSet.Lookup("log-severity")); err != nil {
		return err
	}

	flagSet.StringP("log-format", "", "json", "Logging output format: text or json.")
	if err = viper.BindPFlag("logging.format", flagSet.Lookup("log-format")); err != nil {
		return err
	}

	flagSet.StringP("log-file", "", "", "Path to the log file; empty logs to stderr.")
	if err = viper.BindPFlag("logging.file-path", flagSet.Lookup("log-file")); err != nil {
		return err
	}

	flagSet.IntP("log-rotate-max-size-mb", "", 512, "Maximum size in MB of a log file before it is rotated.")
	if err = viper.BindPFlag("logging.log-rotate.max-file-size-mb", flagSet.Lookup("log-rotate-max-size-mb")); err != nil {
		return err
	}

	flagSet.IntP("log-rotate-backup-count", "", 10, "Number of rotated log files to retain.")
	if err = viper.BindPFlag("logging.log-rotate.backup-file-count", flagSet.Lookup("log-rotate-backup-count")); err != nil {
		return err
	}

	flagSet.BoolP("log-rotate-compress", "", true, "Compress rotated log files.")
	if err = viper.BindPFlag("logging.log-rotate.compress", flagSet.Lookup("log-rotate-compress")); err != nil {
		return err
	}

	return nil
}
