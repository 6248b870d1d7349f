// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dylib

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultShadowDirName is the shadow directory created next to the library
// when none is configured.
const DefaultShadowDirName = ".hotswap-shadow"

// Location is a resolved plugin library.
type Location struct {
	// Path is the absolute path of the library file.
	Path string
	// Dir is the directory containing the library; it is the watch target.
	Dir string
	// ShadowDir receives the copies that are actually opened.
	ShadowDir string
}

// Locator resolves the configured library identifier into a Location.
type Locator struct {
	library   string
	shadowDir string
}

// NewLocator creates a locator for library. An empty shadowDir selects
// DefaultShadowDirName under the library's directory.
func NewLocator(library, shadowDir string) *Locator {
	return &Locator{
		library:   strings.TrimSpace(library),
		shadowDir: strings.TrimSpace(shadowDir),
	}
}

// Locate resolves the library path and prepares the shadow directory.
// It is idempotent.
func (l *Locator) Locate() (Location, error) {
	if l.library == "" {
		return Location{}, ErrPathNotConfigured()
	}

	path, err := filepath.Abs(l.library)
	if err != nil {
		return Location{}, ErrPathResolution(l.library, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Location{}, ErrPathResolution(path, err)
	}
	if info.IsDir() {
		return Location{}, ErrPathResolution(path, fmt.Errorf("%s is a directory", path))
	}

	dir := filepath.Dir(path)
	shadow := l.shadowDir
	if shadow == "" {
		shadow = filepath.Join(dir, DefaultShadowDirName)
	}
	shadow, err = filepath.Abs(shadow)
	if err != nil {
		return Location{}, ErrShadowDirUnavailable(l.shadowDir, err)
	}

	if err := os.MkdirAll(shadow, 0o700); err != nil {
		return Location{}, ErrShadowDirUnavailable(shadow, err)
	}

	return Location{
		Path:      path,
		Dir:       dir,
		ShadowDir: shadow,
	}, nil
}
