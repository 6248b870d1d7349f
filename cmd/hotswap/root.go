// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/holomush/hotswap/internal/config"
	"github.com/holomush/hotswap/internal/logging"
)

// serviceName is stamped on every log record.
const serviceName = "hotswap"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the hotswap CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hotswap",
		Short: "hotswap - reload fix-up plugins without restarting",
		Long: `hotswap hosts a fix-up plugin and replaces it at runtime whenever the
library on disk is rebuilt, keeping the last good version live when a
new build fails to load.`,
		SilenceUsage: true,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/hotswap/config.yaml)")

	// Add subcommands
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newFixCmd())
	cmd.AddCommand(newChecksumCmd())
	cmd.AddCommand(newSchemaCmd())

	return cmd
}

// setup loads the configuration for cmd and installs the default logger
// writing to logOut.
func setup(cmd *cobra.Command, logOut io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logging.SetDefault(serviceName, version, cfg.LogFormat, level, logOut), nil
}
