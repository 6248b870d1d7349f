// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package checksum detects whether a plugin library changed on disk.
//
// A Sum is a 64-bit xxHash of the file contents. It is a cheap proxy for
// "the bytes differ", not a security mechanism. Modification times are never
// consulted: rebuilds and copies do not preserve them reliably.
package checksum

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/samber/oops"
)

// CodeChecksumUnavailable is the error code for unreadable library files.
const CodeChecksumUnavailable = "CHECKSUM_UNAVAILABLE"

// Sum is the content checksum of a library file.
type Sum uint64

// String returns the checksum as 16 lowercase hex digits.
func (s Sum) String() string {
	return fmt.Sprintf("%016x", uint64(s))
}

// Func computes the checksum of the file at path.
type Func func(path string) (Sum, error)

// File streams the file at path through xxHash64.
func File(path string) (Sum, error) {
	f, err := os.Open(path) //nolint:gosec // path is the configured plugin library
	if err != nil {
		return 0, ErrUnavailable(path, err)
	}
	defer func() { _ = f.Close() }()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, ErrUnavailable(path, err)
	}
	return Sum(h.Sum64()), nil
}

// Bytes returns the checksum of b.
func Bytes(b []byte) Sum {
	return Sum(xxhash.Sum64(b))
}

// ErrUnavailable creates an error for a file that could not be hashed.
func ErrUnavailable(path string, cause error) error {
	return oops.Code(CodeChecksumUnavailable).
		With("path", path).
		Wrapf(cause, "checksum %s", path)
}
