// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dylib

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// ShadowCopy copies src into shadowDir under a unique name and returns the
// copy's path. The process opens the copy, never src, so src can be rebuilt
// in place while a version of it is loaded.
func ShadowCopy(src, shadowDir string) (string, error) {
	in, err := os.Open(src) //nolint:gosec // src is the resolved plugin library
	if err != nil {
		return "", ErrLoadFailed(src, err)
	}
	defer func() { _ = in.Close() }()

	stem, ext := splitName(src)
	dst := filepath.Join(shadowDir, stem+"-"+strings.ToLower(ulid.Make().String())+ext)

	// Executable bit is required by the process backend.
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o700) //nolint:gosec // dst is inside the shadow dir
	if err != nil {
		return "", ErrShadowDirUnavailable(shadowDir, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", ErrLoadFailed(src, oops.With("stage", "shadow_copy").Wrap(err))
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", ErrLoadFailed(src, oops.With("stage", "shadow_copy").Wrap(err))
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", ErrLoadFailed(src, oops.With("stage", "shadow_copy").Wrap(err))
	}

	return dst, nil
}

// RemoveShadow deletes a shadow copy. A copy that is already gone is not an error.
func RemoveShadow(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return oops.With("path", path).Wrap(err)
	}
	return nil
}

// splitName splits the base name of path into stem and extension.
func splitName(path string) (stem, ext string) {
	base := filepath.Base(path)
	ext = filepath.Ext(base)
	return strings.TrimSuffix(base, ext), ext
}

// isShadowOf reports whether name is a copy ShadowCopy made of library.
func isShadowOf(name, library string) bool {
	stem, ext := splitName(library)
	prefix := stem + "-"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
		return false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext)
	_, err := ulid.ParseStrict(strings.ToUpper(id))
	return err == nil
}

// PruneShadowDir removes copies of library left behind by earlier processes
// and returns how many were removed. Only names ShadowCopy produces for
// library are touched; anything else in shadowDir is left alone. Call it
// before the first load.
func PruneShadowDir(shadowDir, library string) (int, error) {
	entries, err := os.ReadDir(shadowDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, ErrShadowDirUnavailable(shadowDir, err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !isShadowOf(entry.Name(), library) {
			continue
		}
		if err := RemoveShadow(filepath.Join(shadowDir, entry.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
