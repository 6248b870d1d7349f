// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Command gen-schema writes the config file JSON Schema.
//
// Usage:
//
//	gen-schema [output]
//
// The output defaults to schemas/config.schema.json under the working
// directory.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/holomush/hotswap/internal/config"
)

const defaultOutput = "schemas/config.schema.json"

func main() {
	outPath := defaultOutput
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := write(outPath); err != nil {
		fmt.Fprintf(os.Stderr, "gen-schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s\n", outPath)
}

func write(outPath string) error {
	schema, err := config.GenerateSchema()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(outPath, append(schema, '\n'), 0o600); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	return nil
}
