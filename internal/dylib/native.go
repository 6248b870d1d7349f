// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dylib

import (
	"context"
	"fmt"
	"plugin"
	"sync"
)

// NativeOpener opens Go plugins built with -buildmode=plugin.
//
// Each Open loads a fresh shadow copy. The Go runtime refuses to load two
// images with the same plugin path, so every rebuild meant for hot reload
// must be linked with a unique -pluginpath.
//
// Go cannot unmap a loaded plugin. Closing a native library removes its
// shadow copy; the code stays mapped until the process exits, so values
// obtained from it can never dangle.
type NativeOpener struct{}

// Compile-time interface check.
var _ Opener = (*NativeOpener)(nil)

// NewNativeOpener creates an opener for Go plugins.
func NewNativeOpener() *NativeOpener {
	return &NativeOpener{}
}

// Open copies the library into the shadow directory and opens the copy.
func (o *NativeOpener) Open(_ context.Context, loc Location) (Library, error) {
	shadow, err := ShadowCopy(loc.Path, loc.ShadowDir)
	if err != nil {
		return nil, err
	}

	p, err := plugin.Open(shadow)
	if err != nil {
		_ = RemoveShadow(shadow)
		return nil, ErrLoadFailed(loc.Path, err)
	}

	return &nativeLibrary{
		plugin: p,
		path:   shadow,
		source: loc.Path,
	}, nil
}

// nativeLibrary is a Library backed by the Go plugin runtime.
type nativeLibrary struct {
	plugin    *plugin.Plugin
	path      string
	source    string
	closeOnce sync.Once
	closeErr  error
}

// Lookup returns the exported symbol. plugin.Lookup only fails for missing symbols.
func (l *nativeLibrary) Lookup(symbol string) (any, error) {
	sym, err := l.plugin.Lookup(symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSymbolNotFound, symbol, err) //nolint:errorlint // runtime error text only
	}
	return sym, nil
}

func (l *nativeLibrary) Path() string   { return l.path }
func (l *nativeLibrary) Source() string { return l.source }

// Close removes the shadow copy.
func (l *nativeLibrary) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = RemoveShadow(l.path)
	})
	return l.closeErr
}
