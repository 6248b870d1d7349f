// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package reload keeps one live plugin version in a shared slot and replaces
// it when the library on disk changes.
//
// Readers call Current or With. A single strategy (Poller or Watcher) calls
// MaybeReload, which builds a complete new version before publishing it with
// one pointer assignment. A failed reload leaves the live version in place.
//
// A Fixer obtained from a Lease or handed to a With callback is borrowed from
// the pinned version. Keeping it past Release, or past the callback's
// return, is unsupported: the version it came from may be unloaded.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/hotswap/internal/checksum"
	"github.com/holomush/hotswap/internal/dylib"
	"github.com/holomush/hotswap/internal/entry"
	"github.com/holomush/hotswap/pkg/errutil"
	"github.com/holomush/hotswap/pkg/fixup"
)

var tracer = otel.Tracer("hotswap/reload")

// Orchestrator owns the shared plugin slot.
type Orchestrator struct {
	loc         dylib.Location
	opener      dylib.Opener
	symbol      string
	logger      *slog.Logger
	hook        SwapHook
	metrics     *Metrics
	checksummer checksum.Func

	// reloadMu serializes writers. MaybeReload only try-locks it.
	reloadMu sync.Mutex

	// mu guards the fields below. The write lock is held only to assign them.
	mu         sync.RWMutex
	current    *triad
	state      State
	poisoned   bool
	panicValue any
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSymbol sets the entry point name. Defaults to fixup.EntrySymbol.
func WithSymbol(symbol string) Option {
	return func(o *Orchestrator) {
		if symbol != "" {
			o.symbol = symbol
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSwapHook registers a hook for swap events.
func WithSwapHook(hook SwapHook) Option {
	return func(o *Orchestrator) {
		o.hook = hook
	}
}

// WithMetrics records reload metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithChecksummer replaces the change detector. Defaults to checksum.File.
func WithChecksummer(fn checksum.Func) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.checksummer = fn
		}
	}
}

// New creates an orchestrator for the library at loc. Nothing is loaded
// until Load is called.
// Panics if opener is nil.
func New(loc dylib.Location, opener dylib.Opener, opts ...Option) *Orchestrator {
	if opener == nil {
		panic("reload: opener cannot be nil")
	}
	o := &Orchestrator{
		loc:         loc,
		opener:      opener,
		symbol:      fixup.EntrySymbol,
		logger:      slog.Default(),
		checksummer: checksum.File,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Location returns the library location the orchestrator watches.
func (o *Orchestrator) Location() dylib.Location {
	return o.loc
}

// Load performs the initial load. A failure leaves the orchestrator Failed
// and is returned to the caller; Load may be called again.
func (o *Orchestrator) Load(ctx context.Context) (err error) {
	o.reloadMu.Lock()
	defer o.reloadMu.Unlock()

	ctx, span := tracer.Start(ctx, "reload.load",
		trace.WithAttributes(attribute.String("library", o.loc.Path)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	o.mu.RLock()
	state := o.state
	o.mu.RUnlock()
	if state == StateLive {
		return ErrAlreadyLoaded(o.loc.Path)
	}

	t, err := o.build(ctx)
	if err != nil {
		o.mu.Lock()
		o.state = StateFailed
		o.mu.Unlock()
		errutil.LogError(o.logger, "initial plugin load failed", err, "library", o.loc.Path)
		return err
	}

	o.mu.Lock()
	o.current = t
	o.state = StateLive
	o.mu.Unlock()

	o.metrics.live(t.sum)
	span.SetAttributes(attribute.String("checksum", t.sum.String()))
	o.logger.InfoContext(ctx, "plugin loaded",
		"library", o.loc.Path,
		"checksum", t.sum.String(),
		"api_version", t.inst.APIVersion())
	return nil
}

// Current pins the live plugin version. The caller must Release the lease.
func (o *Orchestrator) Current() (*Lease, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.poisoned {
		return nil, ErrPoisoned(o.panicValue)
	}
	if o.current == nil {
		return nil, ErrNotLoaded()
	}
	o.current.acquire()
	return &Lease{t: o.current}, nil
}

// With runs fn against the live plugin. fn must not retain the Fixer after
// it returns. A panic in fn poisons the slot and is re-raised; afterwards
// Current and With fail with MUTEX_POISONED.
func (o *Orchestrator) With(fn func(fixup.Fixer) error) error {
	lease, err := o.Current()
	if err != nil {
		return err
	}
	defer lease.Release()

	defer func() {
		if r := recover(); r != nil {
			o.poison(r)
			panic(r)
		}
	}()

	return fn(lease.Fixer())
}

func (o *Orchestrator) poison(r any) {
	o.mu.Lock()
	if !o.poisoned {
		o.poisoned = true
		o.panicValue = r
	}
	o.mu.Unlock()

	o.metrics.poisoned()
	o.logger.Error("plugin slot poisoned", "panic", fmt.Sprint(r), "library", o.loc.Path)
}

// Poisoned reports whether a panic has poisoned the slot.
func (o *Orchestrator) Poisoned() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.poisoned
}

// State returns the lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Checksum returns the checksum of the live version.
func (o *Orchestrator) Checksum() (checksum.Sum, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.current == nil {
		return 0, false
	}
	return o.current.sum, true
}

// Ready reports whether readers can be served.
func (o *Orchestrator) Ready() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state == StateLive && !o.poisoned
}

// MaybeReload replaces the live plugin if the library on disk has changed.
//
// Overlapping calls do not wait: all but one return OutcomeBusy. Failures
// are logged, reported to the swap hook and returned; the live version is
// never touched by a failed attempt.
func (o *Orchestrator) MaybeReload(ctx context.Context) (outcome Outcome, err error) {
	started := time.Now()

	if !o.reloadMu.TryLock() {
		o.metrics.observe(OutcomeBusy, started)
		return OutcomeBusy, nil
	}
	defer o.reloadMu.Unlock()

	ctx, span := tracer.Start(ctx, "reload.maybe_reload",
		trace.WithAttributes(attribute.String("library", o.loc.Path)))
	defer func() {
		span.SetAttributes(attribute.String("outcome", outcome.String()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		o.metrics.observe(outcome, started)
	}()

	o.mu.RLock()
	old, state, poisoned, panicValue := o.current, o.state, o.poisoned, o.panicValue
	o.mu.RUnlock()

	if poisoned {
		return OutcomeFailed, ErrPoisoned(panicValue)
	}
	if state != StateLive || old == nil {
		return OutcomeFailed, ErrNotLoaded()
	}
	if err := ctx.Err(); err != nil {
		return OutcomeFailed, oops.With("library", o.loc.Path).Wrap(err)
	}

	onDisk, err := o.checksummer(o.loc.Path)
	if err != nil {
		return o.fail(old.sum, 0, err)
	}
	if onDisk == old.sum {
		o.logger.DebugContext(ctx, "plugin unchanged", "library", o.loc.Path, "checksum", onDisk.String())
		return OutcomeUnchanged, nil
	}

	candidate, err := o.build(ctx)
	if err != nil {
		return o.fail(old.sum, onDisk, err)
	}
	if candidate.sum == old.sum {
		// The file changed back between the pre-check and the copy.
		candidate.release()
		o.logger.DebugContext(ctx, "plugin unchanged", "library", o.loc.Path, "checksum", old.sum.String())
		return OutcomeUnchanged, nil
	}

	o.emit(SwapEvent{Kind: SwapBefore, Old: old.sum, New: candidate.sum})

	o.mu.Lock()
	o.current = candidate
	o.mu.Unlock()

	o.emit(SwapEvent{Kind: SwapAfter, Old: old.sum, New: candidate.sum})
	old.release()

	o.metrics.live(candidate.sum)
	o.logger.InfoContext(ctx, "plugin reloaded",
		"library", o.loc.Path,
		"old_checksum", old.sum.String(),
		"new_checksum", candidate.sum.String(),
		"api_version", candidate.inst.APIVersion())
	return OutcomeSwapped, nil
}

func (o *Orchestrator) fail(old, candidate checksum.Sum, err error) (Outcome, error) {
	o.emit(SwapEvent{Kind: SwapFailed, Old: old, New: candidate, Err: err})
	errutil.LogError(o.logger, "plugin reload failed", err,
		"library", o.loc.Path,
		"checksum", old.String())
	return OutcomeFailed, err
}

// build opens a fresh copy of the library and derives a complete triad from
// it. Nothing shared is touched.
func (o *Orchestrator) build(ctx context.Context) (*triad, error) {
	lib, err := o.opener.Open(ctx, o.loc)
	if err != nil {
		return nil, err
	}

	inst, err := entry.Invoke(ctx, lib, o.symbol)
	if err != nil {
		_ = lib.Close()
		return nil, err
	}

	sum, err := o.checksummer(lib.Path())
	if err != nil {
		_ = inst.Close()
		return nil, err
	}

	return newTriad(inst, sum, o.logger), nil
}

func (o *Orchestrator) emit(ev SwapEvent) {
	if o.hook != nil {
		o.hook(ev)
	}
}

// Close empties the slot. The live library is closed once outstanding
// leases are released. The orchestrator returns to StateUninitialized.
func (o *Orchestrator) Close() error {
	o.reloadMu.Lock()
	defer o.reloadMu.Unlock()

	o.mu.Lock()
	t := o.current
	o.current = nil
	o.state = StateUninitialized
	o.mu.Unlock()

	if t != nil {
		t.release()
	}
	o.metrics.unloaded()
	return nil
}
