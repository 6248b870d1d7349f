// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package entry calls a plugin library's exported constructor and binds the
// resulting Fixer to the library it came from.
package entry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/holomush/hotswap/internal/dylib"
	"github.com/holomush/hotswap/pkg/fixup"
)

var hostConstraint = func() *semver.Constraints {
	c, err := semver.NewConstraint(fixup.APIConstraint)
	if err != nil {
		panic(fmt.Sprintf("entry: invalid API constraint %q: %v", fixup.APIConstraint, err))
	}
	return c
}()

// Instance is a plugin object together with the library that produced it.
// The library is closed when the instance is.
type Instance struct {
	lib        dylib.Library
	fixer      fixup.Fixer
	apiVersion string

	closeOnce sync.Once
	closeErr  error
}

// Fixer returns the plugin object.
func (i *Instance) Fixer() fixup.Fixer { return i.fixer }

// Library returns the library the Fixer was manufactured from.
func (i *Instance) Library() dylib.Library { return i.lib }

// APIVersion returns the contract version the plugin declared, or "" if it
// declared none.
func (i *Instance) APIVersion() string { return i.apiVersion }

// Close drops the Fixer and closes the library. Safe to call more than once.
func (i *Instance) Close() error {
	i.closeOnce.Do(func() {
		i.fixer = nil
		i.closeErr = i.lib.Close()
	})
	return i.closeErr
}

// Invoke looks up symbol in lib, calls it and wraps the result.
//
// On error lib is left open; the caller owns it and must close it.
func Invoke(ctx context.Context, lib dylib.Library, symbol string) (*Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrInvocationFailedWrap(lib.Source(), symbol, err)
	}

	sym, err := lib.Lookup(symbol)
	if err != nil {
		return nil, ErrEntrypointMissing(lib.Source(), symbol, err)
	}

	ctor, ok := asConstructor(sym)
	if !ok {
		return nil, ErrInvocationFailed(lib.Source(), symbol,
			fmt.Sprintf("unsupported entry point type %T", sym))
	}

	version, err := declaredVersion(lib)
	if err != nil {
		return nil, ErrInvocationFailedWrap(lib.Source(), symbol, err)
	}

	fixer, err := call(ctor)
	if err != nil {
		return nil, ErrInvocationFailedWrap(lib.Source(), symbol, err)
	}
	if fixer == nil {
		return nil, ErrInvocationFailed(lib.Source(), symbol, "constructor returned nil")
	}

	return &Instance{lib: lib, fixer: fixer, apiVersion: version}, nil
}

// asConstructor normalizes the entry point shapes a plugin may export.
// plugin.Lookup returns functions by value and variables by pointer.
func asConstructor(sym any) (fixup.Constructor, bool) {
	switch fn := sym.(type) {
	case fixup.Constructor:
		return fn, fn != nil
	case func() (fixup.Fixer, error):
		return fn, fn != nil
	case func() fixup.Fixer:
		if fn == nil {
			return nil, false
		}
		return func() (fixup.Fixer, error) { return fn(), nil }, true
	case *fixup.Constructor:
		if fn == nil {
			return nil, false
		}
		return asConstructor(*fn)
	case *func() (fixup.Fixer, error):
		if fn == nil {
			return nil, false
		}
		return asConstructor(*fn)
	case *func() fixup.Fixer:
		if fn == nil {
			return nil, false
		}
		return asConstructor(*fn)
	default:
		return nil, false
	}
}

// call runs the constructor, turning a panic into an error.
func call(ctor fixup.Constructor) (fixer fixup.Fixer, err error) {
	defer func() {
		if r := recover(); r != nil {
			fixer = nil
			err = fmt.Errorf("constructor panicked: %v", r)
		}
	}()
	return ctor()
}

// declaredVersion reads the optional version symbol and checks it against
// fixup.APIConstraint.
func declaredVersion(lib dylib.Library) (string, error) {
	sym, err := lib.Lookup(fixup.APIVersionSymbol)
	if err != nil {
		if errors.Is(err, dylib.ErrSymbolNotFound) {
			return "", nil
		}
		return "", err
	}

	var raw string
	switch v := sym.(type) {
	case string:
		raw = v
	case *string:
		if v == nil {
			return "", nil
		}
		raw = *v
	default:
		return "", fmt.Errorf("%s has unsupported type %T", fixup.APIVersionSymbol, sym)
	}

	if err := CheckAPIVersion(raw); err != nil {
		return "", err
	}
	return raw, nil
}

// CheckAPIVersion reports whether a plugin built against version can be
// hosted.
func CheckAPIVersion(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", fixup.APIVersionSymbol, version, err)
	}
	if ok, errs := hostConstraint.Validate(v); !ok {
		return fmt.Errorf("plugin API %s does not satisfy %s: %w",
			version, fixup.APIConstraint, errors.Join(errs...))
	}
	return nil
}
