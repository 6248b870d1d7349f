// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package reload

import (
	"fmt"

	"github.com/samber/oops"
)

// Error codes for the shared slot.
const (
	CodeMutexPoisoned = "MUTEX_POISONED"
	CodeNotLoaded     = "NOT_LOADED"
	CodeAlreadyLoaded = "ALREADY_LOADED"
	CodeLeaseReleased = "LEASE_RELEASED"
)

// ErrPoisoned creates an error for a slot whose holder panicked.
func ErrPoisoned(panicValue any) error {
	return oops.Code(CodeMutexPoisoned).
		With("panic", fmt.Sprint(panicValue)).
		Errorf("plugin slot poisoned by a panic while in use")
}

// ErrNotLoaded creates an error for a slot that holds no plugin.
func ErrNotLoaded() error {
	return oops.Code(CodeNotLoaded).
		Errorf("plugin not loaded")
}

// ErrLeaseReleased creates an error for a call through a released lease.
func ErrLeaseReleased(sum fmt.Stringer) error {
	return oops.Code(CodeLeaseReleased).
		With("checksum", sum.String()).
		Errorf("plugin lease already released")
}

// ErrAlreadyLoaded creates an error for a second initial load.
func ErrAlreadyLoaded(path string) error {
	return oops.Code(CodeAlreadyLoaded).
		With("library", path).
		Errorf("plugin already loaded")
}
