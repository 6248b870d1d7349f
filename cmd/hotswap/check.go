// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/holomush/hotswap/internal/checksum"
	"github.com/holomush/hotswap/internal/config"
	"github.com/holomush/hotswap/internal/dylib"
	"github.com/holomush/hotswap/internal/entry"
)

// CheckReport describes a library that loaded and constructed cleanly.
// The shadow copy check opened is removed before the report is printed, so
// only the directory it lived in is reported.
type CheckReport struct {
	Library    string `json:"library" yaml:"library"`
	ShadowDir  string `json:"shadow_dir" yaml:"shadow_dir"`
	Checksum   string `json:"checksum" yaml:"checksum"`
	Backend    string `json:"backend" yaml:"backend"`
	Symbol     string `json:"symbol" yaml:"symbol"`
	APIVersion string `json:"api_version" yaml:"api_version"`
}

// checkConfig holds configuration for the check command.
type checkConfig struct {
	jsonOutput bool
}

// newCheckCmd creates the check subcommand.
func newCheckCmd() *cobra.Command {
	cfg := &checkConfig{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load the plugin once and report what was found",
		Long: `Load the configured plugin library through the same path a reload
takes (shadow copy, open, entry point) and print what was loaded.
Exits non-zero if any step fails.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd.Context(), cmd, cfg, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output report as JSON")

	return cmd
}

// runCheck executes the check command.
func runCheck(ctx context.Context, cmd *cobra.Command, checkCfg *checkConfig, deps *Deps) error {
	deps = deps.withDefaults()

	cfg, _, err := setup(cmd, deps.LogOutput)
	if err != nil {
		return err
	}

	report, err := checkLibrary(ctx, cfg, deps)
	if err != nil {
		return err
	}

	var output []byte
	if checkCfg.jsonOutput {
		output, err = json.MarshalIndent(report, "", "  ")
		if err == nil {
			output = append(output, '\n')
		}
	} else {
		output, err = yaml.Marshal(report)
	}
	if err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}

	_, err = cmd.OutOrStdout().Write(output)
	return err
}

// checkLibrary opens and constructs the plugin once, then unloads it.
func checkLibrary(ctx context.Context, cfg *config.Config, deps *Deps) (*CheckReport, error) {
	loc, err := dylib.NewLocator(cfg.Library, cfg.ShadowDir).Locate()
	if err != nil {
		return nil, err
	}

	opener, err := deps.OpenerFactory(cfg)
	if err != nil {
		return nil, err
	}

	lib, err := opener.Open(ctx, loc)
	if err != nil {
		return nil, err
	}

	inst, err := entry.Invoke(ctx, lib, cfg.Symbol)
	if err != nil {
		_ = lib.Close()
		return nil, err
	}
	defer func() { _ = inst.Close() }()

	sum, err := checksum.File(lib.Path())
	if err != nil {
		return nil, err
	}

	return &CheckReport{
		Library:    loc.Path,
		ShadowDir:  loc.ShadowDir,
		Checksum:   sum.String(),
		Backend:    cfg.Backend,
		Symbol:     cfg.Symbol,
		APIVersion: inst.APIVersion(),
	}, nil
}
