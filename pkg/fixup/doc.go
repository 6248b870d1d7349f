// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package fixup defines the contract between the hotswap host and fix-up
// plugins.
//
// A plugin is a dynamically loaded library (or, with the process backend, a
// plugin executable) that exports a constructor under EntrySymbol. The
// constructor takes no arguments and returns a Fixer:
//
//	package main
//
//	import "github.com/holomush/hotswap/pkg/fixup"
//
//	var FixupAPIVersion = fixup.APIVersion
//
//	func NewFixer() (fixup.Fixer, error) {
//		return &myFixer{}, nil
//	}
//
//	func main() {}
//
// Offsets in TextRange are byte offsets into the source text.
package fixup
