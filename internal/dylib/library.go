// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package dylib locates, copies and opens plugin libraries.
package dylib

import "context"

// Library is an opened plugin image. It is owned by whoever opened it and
// must outlive every value obtained through Lookup.
type Library interface {
	// Lookup returns the exported symbol. Missing symbols are reported with
	// an error wrapping ErrSymbolNotFound.
	Lookup(symbol string) (any, error)

	// Path returns the file that was actually opened (the shadow copy).
	Path() string

	// Source returns the configured library path the copy was taken from.
	Source() string

	// Close releases the library. It is safe to call more than once.
	Close() error
}

// Opener opens the library described by a Location.
type Opener interface {
	Open(ctx context.Context, loc Location) (Library, error)
}
