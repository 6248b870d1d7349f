// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/hotswap/internal/config"
	"github.com/holomush/hotswap/internal/dylib"
	"github.com/holomush/hotswap/internal/reload"
	"github.com/holomush/hotswap/pkg/fixup"
)

// fixConfig holds configuration for the fix command.
type fixConfig struct {
	start uint32
	end   uint32
	edits bool
}

// newFixCmd creates the fix subcommand.
func newFixCmd() *cobra.Command {
	cfg := &fixConfig{}

	cmd := &cobra.Command{
		Use:   "fix <file>",
		Short: "Apply the plugin's fix-up to a byte range of a file",
		Long: `Load the configured plugin, run its fix-up over the byte range
[start, end) of the file, and print the resulting text. The file itself
is not modified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFix(cmd.Context(), cmd, args[0], cfg, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().Uint32Var(&cfg.start, "start", 0, "range start byte offset")
	cmd.Flags().Uint32Var(&cfg.end, "end", 0, "range end byte offset (exclusive)")
	cmd.Flags().BoolVar(&cfg.edits, "edits", false, "print the edits instead of the fixed text")

	return cmd
}

// runFix executes the fix command.
func runFix(ctx context.Context, cmd *cobra.Command, path string, fixCfg *fixConfig, deps *Deps) error {
	deps = deps.withDefaults()

	cfg, logger, err := setup(cmd, deps.LogOutput)
	if err != nil {
		return err
	}

	src, err := os.ReadFile(path) //nolint:gosec // operator-supplied input file
	if err != nil {
		return oops.With("file", path).Wrapf(err, "read input")
	}

	r := fixup.NewRange(fixCfg.start, fixCfg.end)
	if int(r.End) > len(src) {
		return oops.With("file", path).With("range", r.String()).
			Errorf("range %s exceeds file of %d bytes", r, len(src))
	}

	loc, err := dylib.NewLocator(cfg.Library, cfg.ShadowDir).Locate()
	if err != nil {
		return err
	}

	opener, err := deps.OpenerFactory(cfg)
	if err != nil {
		return err
	}

	orch := reload.New(loc, opener, reload.WithSymbol(cfg.Symbol), reload.WithLogger(logger))
	if err := orch.Load(ctx); err != nil {
		return err
	}
	defer func() { _ = orch.Close() }()

	var edit fixup.TextEdit
	err = orch.With(func(f fixup.Fixer) error {
		var fixErr error
		edit, fixErr = f.Fix(string(src), r)
		return fixErr
	})
	if err != nil {
		return oops.With("file", path).Wrapf(err, "fix-up failed")
	}

	out := cmd.OutOrStdout()
	if fixCfg.edits {
		for _, in := range edit.Indels {
			if _, err := fmt.Fprintf(out, "%s %q\n", in.Delete, in.Insert); err != nil {
				return err
			}
		}
		return nil
	}

	fixed, err := edit.Apply(string(src))
	if err != nil {
		return oops.With("file", path).Wrapf(err, "apply fix-up")
	}
	_, err = fmt.Fprint(out, fixed)
	return err
}
