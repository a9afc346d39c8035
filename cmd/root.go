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

// Package cmd wires the cobra/viper command-line surface onto cfg.Config
// and runMount.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cloudmount/drivefuse/cfg"
	"github.com/cloudmount/drivefuse/internal/util"
)

var (
	cfgFile        string
	bindErr        error
	resolvedConfig cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "drivefuse [flags] mount-point",
	Short: "Mount an Aliyun Drive account as a local, read-only filesystem",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if err := loadConfig(); err != nil {
			return err
		}

		mountPoint, err := util.GetResolvedPath(args[0])
		if err != nil {
			return fmt.Errorf("canonicalizing mount point: %w", err)
		}
		resolvedConfig.Mount.MountPoint = cfg.ResolvedPath(mountPoint)

		if err := cfg.ValidateConfig(&resolvedConfig); err != nil {
			return err
		}

		return runMount(cmd.Context(), &resolvedConfig)
	},
}

// Execute runs the root command, exiting the process with status 1 on
// failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to a YAML config file.")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile == "" {
		return
	}
	resolved, err := util.GetResolvedPath(cfgFile)
	if err != nil {
		bindErr = fmt.Errorf("resolving config file path: %w", err)
		return
	}
	viper.SetConfigFile(resolved)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		bindErr = fmt.Errorf("reading config file: %w", err)
	}
}

func loadConfig() error {
	return viper.Unmarshal(&resolvedConfig, viper.DecodeHook(cfg.DecodeHook()))
}
