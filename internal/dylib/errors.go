// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dylib

import (
	"errors"

	"github.com/samber/oops"
)

// Error codes for locating and loading libraries.
const (
	CodePathNotConfigured    = "PATH_NOT_CONFIGURED"
	CodePathResolutionFailed = "PATH_RESOLUTION_FAILED"
	CodeShadowDirUnavailable = "SHADOW_DIR_UNAVAILABLE"
	CodeLibraryLoadFailed    = "LIBRARY_LOAD_FAILED"
)

// ErrSymbolNotFound is wrapped by Library.Lookup when a symbol is absent.
var ErrSymbolNotFound = errors.New("symbol not found")

// ErrPathNotConfigured creates an error for an empty library identifier.
func ErrPathNotConfigured() error {
	return oops.Code(CodePathNotConfigured).
		Errorf("plugin library path is not configured")
}

// ErrPathResolution creates an error for a library path that cannot be resolved.
func ErrPathResolution(path string, cause error) error {
	return oops.Code(CodePathResolutionFailed).
		With("path", path).
		Wrapf(cause, "resolve plugin library %s", path)
}

// ErrShadowDirUnavailable creates an error for a shadow directory that cannot be created.
func ErrShadowDirUnavailable(dir string, cause error) error {
	return oops.Code(CodeShadowDirUnavailable).
		With("shadow_dir", dir).
		Wrapf(cause, "prepare shadow directory %s", dir)
}

// ErrLoadFailed creates an error for a library that cannot be opened.
func ErrLoadFailed(path string, cause error) error {
	return oops.Code(CodeLibraryLoadFailed).
		With("path", path).
		Wrapf(cause, "load plugin library %s", path)
}
