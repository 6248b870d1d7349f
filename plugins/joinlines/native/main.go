// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package main builds the join-lines fix-up as a native plugin library.
//
// Build with:
//
//	go build -buildmode=plugin -ldflags="-pluginpath=joinlines-$(date +%s)" \
//	    -o joinlines.so ./plugins/joinlines/native
//
// The Go runtime refuses to open a second plugin with the same plugin path,
// so every rebuild that is meant to be hot-reloaded needs a fresh one.
//
// The library exports:
//   - NewFixer: the entry point, func() fixup.Fixer
//   - FixupAPIVersion: the fixup API version it was built against
package main

import (
	"github.com/holomush/hotswap/pkg/fixup"
	"github.com/holomush/hotswap/plugins/joinlines"
)

// FixupAPIVersion is checked by the host before NewFixer is called.
var FixupAPIVersion = fixup.APIVersion

// NewFixer is the plugin entry point.
func NewFixer() fixup.Fixer {
	return joinlines.New()
}

func main() {}
