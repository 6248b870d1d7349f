// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/hotswap/internal/config"
)

// newSchemaCmd creates the schema subcommand.
func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		},
	}
}
