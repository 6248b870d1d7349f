// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package reload

import "github.com/holomush/hotswap/internal/checksum"

// SwapKind identifies a point in the reload protocol.
type SwapKind int

// Swap event kinds.
const (
	// SwapBefore fires after the candidate is built, before it is published.
	SwapBefore SwapKind = iota
	// SwapAfter fires once the candidate is live.
	SwapAfter
	// SwapFailed fires when a reload attempt fails. Err is set.
	SwapFailed
)

// String returns the kind name.
func (k SwapKind) String() string {
	switch k {
	case SwapBefore:
		return "before"
	case SwapAfter:
		return "after"
	case SwapFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SwapEvent is delivered to the swap hook.
type SwapEvent struct {
	Kind SwapKind
	// Old is the checksum of the live plugin when the attempt started.
	Old checksum.Sum
	// New is the candidate's checksum. Zero for failures before one was computed.
	New checksum.Sum
	// Err is the failure for SwapFailed events.
	Err error
}

// SwapHook observes the reload protocol. It runs synchronously on the
// reloading goroutine, outside every lock.
type SwapHook func(SwapEvent)
