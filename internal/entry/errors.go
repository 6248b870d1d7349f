// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package entry

import "github.com/samber/oops"

// Error codes for entry-point invocation.
const (
	CodeEntrypointMissing          = "ENTRYPOINT_MISSING"
	CodeEntrypointInvocationFailed = "ENTRYPOINT_INVOCATION_FAILED"
)

// ErrEntrypointMissing creates an error for a library that does not export symbol.
func ErrEntrypointMissing(lib, symbol string, cause error) error {
	return oops.Code(CodeEntrypointMissing).
		With("library", lib).
		With("symbol", symbol).
		Wrapf(cause, "entry point %s not exported", symbol)
}

// ErrInvocationFailed creates an error for an entry point that could not
// produce a plugin object.
func ErrInvocationFailed(lib, symbol, reason string) error {
	return oops.Code(CodeEntrypointInvocationFailed).
		With("library", lib).
		With("symbol", symbol).
		Errorf("invoke %s: %s", symbol, reason)
}

// ErrInvocationFailedWrap is ErrInvocationFailed with an underlying cause.
func ErrInvocationFailedWrap(lib, symbol string, cause error) error {
	return oops.Code(CodeEntrypointInvocationFailed).
		With("library", lib).
		With("symbol", symbol).
		Wrapf(cause, "invoke %s", symbol)
}
