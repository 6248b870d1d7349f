// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package main serves the join-lines fix-up under a non-standard symbol, so
// a host looking for the default entry point cannot find it.
package main

import (
	"github.com/holomush/hotswap/pkg/fixupsdk"
	"github.com/holomush/hotswap/plugins/joinlines"
)

func main() {
	fixupsdk.Serve(&fixupsdk.ServeConfig{
		Fixer:  joinlines.New(),
		Symbol: "RenamedFixer",
	})
}
