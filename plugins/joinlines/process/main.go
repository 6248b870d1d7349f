// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package main serves the join-lines fix-up as a process plugin.
//
// Build with:
//
//	go build -o joinlines ./plugins/joinlines/process
//
// and run the host with --backend=process --library=./joinlines.
package main

import (
	"github.com/holomush/hotswap/pkg/fixupsdk"
	"github.com/holomush/hotswap/plugins/joinlines"
)

func main() {
	fixupsdk.Serve(&fixupsdk.ServeConfig{Fixer: joinlines.New()})
}
