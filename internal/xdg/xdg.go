// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package xdg provides XDG Base Directory paths for hotswap.
package xdg

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "hotswap"

// ConfigFileName is the name of the configuration file inside ConfigDir.
const ConfigFileName = "config.yaml"

// ConfigDir returns the XDG config directory for hotswap.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName), nil
}

// ConfigFile returns the default configuration file path.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}
