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

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/cloudmount/drivefuse/cfg"
	"github.com/cloudmount/drivefuse/clock"
	"github.com/cloudmount/drivefuse/internal/auth"
	"github.com/cloudmount/drivefuse/internal/driveapi"
	"github.com/cloudmount/drivefuse/internal/logger"
	"github.com/cloudmount/drivefuse/internal/metrics"
	"github.com/cloudmount/drivefuse/internal/mount"
	"github.com/cloudmount/drivefuse/internal/perms"
	"github.com/cloudmount/drivefuse/internal/vfs"
)

const fsName = "drivefuse"

// runMount brings up credentials, the drive client, and the VFS adaptor,
// attaches the mount, and blocks until it is unmounted or ctx is canceled.
func runMount(ctx context.Context, config *cfg.Config) error {
	if err := logger.InitLogFile(config.Logging); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	logger.Infof("starting drivefuse, mount point %q", config.Mount.MountPoint)

	metricsHandle, metricsServer, err := newMetricsHandle(config.Metrics)
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}
	if metricsServer != nil {
		defer func() {
			if err := metricsServer.Shutdown(context.Background()); err != nil {
				logger.Warnf("shutting down metrics server: %v", err)
			}
		}()
	}

	clk := clock.RealClock{}

	manager := auth.NewManager(config.Auth.RefreshToken, string(config.Auth.WorkDir), auth.ResolveEndpoints(""), clk)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go manager.Run(ctx)

	boot := <-manager.Bootstrapped
	driveID := config.Auth.DriveID
	if driveID == "" {
		driveID = boot.DriveID
	}
	if driveID == "" {
		return fmt.Errorf("bootstrapping credentials: no drive id available")
	}

	client := driveapi.NewClient(auth.ResolveEndpoints("").BaseURL, manager, driveIDOverride{driveID}, metricsHandle, clk)

	uid, gid, err := perms.MyUserAndGroup()
	if err != nil {
		return fmt.Errorf("resolving mount owner: %w", err)
	}

	fs := vfs.New(client, client, metricsHandle, clk, config.ChunkSizeBytes(), uid, gid)
	if err := fs.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrapping filesystem: %w", err)
	}

	mountCfg := mount.Config(config.Mount, config.Logging, fsName, boot.NickName)
	server := fuseutil.NewFileSystemServer(fs)

	mfs, err := mount.Mount(string(config.Mount.MountPoint), server, mountCfg)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Infof("received shutdown signal, unmounting")
		cancel()
	}()

	go func() {
		<-ctx.Done()
		if err := unmount(string(config.Mount.MountPoint)); err != nil {
			logger.Errorf("failed to unmount: %v", err)
		}
	}()

	logger.Infof("mounted at %q", config.Mount.MountPoint)
	return mfs.Join(context.Background())
}

// driveIDOverride satisfies driveapi.DriveIDSource with a fixed drive ID,
// letting auth.Manager's own bootstrapped drive ID be overridden by an
// explicit --drive-id flag.
type driveIDOverride struct{ id string }

func (d driveIDOverride) DriveID() string { return d.id }

// unmount asks the kernel to tear down the mount at dir, the same recovery
// path the teacher's own SIGINT handler uses.
func unmount(dir string) error {
	return fuse.Unmount(dir)
}

// newMetricsHandle starts the Prometheus exporter when metrics are enabled
// and returns the handle instruments are recorded through. The returned
// *metrics.Server is nil (and there is nothing to shut down) when metrics
// are disabled.
func newMetricsHandle(config cfg.MetricsConfig) (metrics.Handle, *metrics.Server, error) {
	if !config.Enabled {
		return metrics.NewNoop(), nil, nil
	}
	server, err := metrics.StartServer(config.Port)
	if err != nil {
		return nil, nil, fmt.Errorf("starting metrics server: %w", err)
	}

	handle, err := metrics.New()
	if err != nil {
		return nil, nil, err
	}
	return handle, server, nil
}
