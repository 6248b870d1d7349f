// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/holomush/hotswap/internal/checksum"
)

// newChecksumCmd creates the checksum subcommand.
func newChecksumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checksum <file>...",
		Short: "Print the change-detection checksum of files",
		Long: `Print the checksum hotswap uses to decide whether a library changed.
Two files with equal checksums are treated as the same build.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				sum, err := checksum.File(path)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", sum, path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
