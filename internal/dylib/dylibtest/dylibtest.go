// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package dylibtest provides in-memory libraries and openers for tests.
package dylibtest

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/holomush/hotswap/internal/dylib"
)

// Library is a dylib.Library backed by a symbol map.
type Library struct {
	Symbols     map[string]any
	PathValue   string
	SourceValue string
	CloseErr    error
	// OnClose runs on the first Close.
	OnClose func()

	mu     sync.Mutex
	closes int
}

// Lookup returns Symbols[symbol] or an error wrapping dylib.ErrSymbolNotFound.
func (l *Library) Lookup(symbol string) (any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sym, ok := l.Symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dylib.ErrSymbolNotFound, symbol)
	}
	return sym, nil
}

// Path returns PathValue.
func (l *Library) Path() string { return l.PathValue }

// Source returns SourceValue.
func (l *Library) Source() string { return l.SourceValue }

// Close records the call and returns CloseErr.
func (l *Library) Close() error {
	l.mu.Lock()
	l.closes++
	first := l.closes == 1
	l.mu.Unlock()
	if first && l.OnClose != nil {
		l.OnClose()
	}
	return l.CloseErr
}

// Closed reports whether Close has been called.
func (l *Library) Closed() bool {
	return l.Closes() > 0
}

// Closes returns how many times Close has been called.
func (l *Library) Closes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closes
}

// BuildFunc derives a library's symbols from the bytes of the file opened.
type BuildFunc func(content []byte) (map[string]any, error)

// FileOpener shadow-copies the located file like a real opener, then builds
// the symbol table from the copy's contents.
type FileOpener struct {
	Build BuildFunc

	mu        sync.Mutex
	libraries []*Library
}

// NewFileOpener creates a FileOpener.
func NewFileOpener(build BuildFunc) *FileOpener {
	return &FileOpener{Build: build}
}

// Open implements dylib.Opener.
func (o *FileOpener) Open(_ context.Context, loc dylib.Location) (dylib.Library, error) {
	shadow, err := dylib.ShadowCopy(loc.Path, loc.ShadowDir)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(shadow) //nolint:gosec // shadow copy created above
	if err != nil {
		_ = dylib.RemoveShadow(shadow)
		return nil, dylib.ErrLoadFailed(loc.Path, err)
	}

	symbols, err := o.Build(content)
	if err != nil {
		_ = dylib.RemoveShadow(shadow)
		return nil, dylib.ErrLoadFailed(loc.Path, err)
	}

	lib := &Library{
		Symbols:     symbols,
		PathValue:   shadow,
		SourceValue: loc.Path,
		OnClose:     func() { _ = dylib.RemoveShadow(shadow) },
	}

	o.mu.Lock()
	o.libraries = append(o.libraries, lib)
	o.mu.Unlock()

	return lib, nil
}

// Opens returns how many libraries were opened successfully.
func (o *FileOpener) Opens() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.libraries)
}

// Libraries returns the libraries opened so far, oldest first.
func (o *FileOpener) Libraries() []*Library {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Library(nil), o.libraries...)
}

// MockOpener is a testify mock of dylib.Opener.
type MockOpener struct {
	mock.Mock
}

// Open implements dylib.Opener.
func (m *MockOpener) Open(ctx context.Context, loc dylib.Location) (dylib.Library, error) {
	args := m.Called(ctx, loc)
	lib, _ := args.Get(0).(dylib.Library)
	return lib, args.Error(1)
}

// Verify interfaces are satisfied.
var (
	_ dylib.Library = (*Library)(nil)
	_ dylib.Opener  = (*FileOpener)(nil)
	_ dylib.Opener  = (*MockOpener)(nil)
)
