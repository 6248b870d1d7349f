// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package reload

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/holomush/hotswap/internal/checksum"
	"github.com/holomush/hotswap/internal/entry"
	"github.com/holomush/hotswap/pkg/errutil"
	"github.com/holomush/hotswap/pkg/fixup"
)

// triad is one loaded plugin version: the instance (which owns its library)
// and the checksum of the exact file that was opened. It is immutable once
// built and is destroyed when its last reference is released.
type triad struct {
	inst   *entry.Instance
	sum    checksum.Sum
	logger *slog.Logger
	refs   atomic.Int64
}

func newTriad(inst *entry.Instance, sum checksum.Sum, logger *slog.Logger) *triad {
	t := &triad{inst: inst, sum: sum, logger: logger}
	t.refs.Store(1)
	return t
}

func (t *triad) acquire() {
	t.refs.Add(1)
}

func (t *triad) release() {
	if t.refs.Add(-1) != 0 {
		return
	}
	lib := t.inst.Library().Path()
	if err := t.inst.Close(); err != nil {
		errutil.LogError(t.logger, "failed to close plugin library", err, "library", lib)
		return
	}
	t.logger.Debug("plugin library closed", "library", lib, "checksum", t.sum.String())
}

// Lease pins one plugin version. The library it came from stays open until
// Release is called, even if a newer version goes live in the meantime.
// A lease is used by one goroutine at a time.
type Lease struct {
	t        *triad
	once     sync.Once
	released atomic.Bool
}

// Fixer returns the pinned plugin object, or nil once the lease is released.
// The returned value is borrowed: it must not be kept past Release.
func (l *Lease) Fixer() fixup.Fixer {
	if l.released.Load() {
		return nil
	}
	return l.t.inst.Fixer()
}

// Checksum returns the checksum of the pinned version.
func (l *Lease) Checksum() checksum.Sum {
	return l.t.sum
}

// APIVersion returns the contract version the pinned plugin declared.
func (l *Lease) APIVersion() string {
	return l.t.inst.APIVersion()
}

// LibraryPath returns the file the pinned version was opened from.
func (l *Lease) LibraryPath() string {
	return l.t.inst.Library().Path()
}

// Fix calls the pinned plugin. After Release it fails with LEASE_RELEASED.
func (l *Lease) Fix(source string, r fixup.TextRange) (fixup.TextEdit, error) {
	f := l.Fixer()
	if f == nil {
		return fixup.TextEdit{}, ErrLeaseReleased(l.t.sum)
	}
	//nolint:wrapcheck // plugin errors pass through to the host unchanged
	return f.Fix(source, r)
}

// Release unpins the version. Safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.released.Store(true)
		l.t.release()
	})
}
