// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package reload

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/holomush/hotswap/internal/dylib"
)

// Defaults for the reload strategies.
const (
	DefaultPollInterval = time.Second
	DefaultDebounce     = 2 * time.Second
)

// Reloader is the write path a strategy drives. *Orchestrator implements it.
type Reloader interface {
	MaybeReload(ctx context.Context) (Outcome, error)
}

// Strategy decides when to attempt a reload. Run blocks until ctx is done.
type Strategy interface {
	Run(ctx context.Context) error
}

// Compile-time interface checks.
var (
	_ Reloader = (*Orchestrator)(nil)
	_ Strategy = (*Poller)(nil)
	_ Strategy = (*Watcher)(nil)
)

// Poller attempts a reload on a fixed interval.
type Poller struct {
	reloader Reloader
	interval time.Duration
	logger   *slog.Logger
}

// NewPoller creates a poller. A non-positive interval uses DefaultPollInterval.
// Panics if reloader is nil.
func NewPoller(reloader Reloader, interval time.Duration, logger *slog.Logger) *Poller {
	if reloader == nil {
		panic("reload: reloader cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{reloader: reloader, interval: interval, logger: logger}
}

// Run polls until ctx is cancelled. Reload failures are already logged by
// the orchestrator and do not stop the poller.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("polling plugin for changes", "interval", p.interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			//nolint:errcheck // failures are logged by the orchestrator
			p.reloader.MaybeReload(ctx)
		}
	}
}

// Watcher attempts a reload when the library's directory reports a change to
// a matching file. A burst of events restarts one quiet-period timer, and
// the reload runs on the Run goroutine once the timer fires.
type Watcher struct {
	reloader Reloader
	dir      string
	pattern  string
	matcher  glob.Glob
	debounce time.Duration
	logger   *slog.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithPattern sets the glob matched against changed file names. Defaults to
// the library's base name.
func WithPattern(pattern string) WatcherOption {
	return func(w *Watcher) {
		if pattern != "" {
			w.pattern = pattern
		}
	}
}

// WithDebounce sets the quiet period. Defaults to DefaultDebounce.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the logger. Defaults to slog.Default().
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher creates a watcher for loc.Dir.
// Panics if reloader is nil.
func NewWatcher(reloader Reloader, loc dylib.Location, opts ...WatcherOption) (*Watcher, error) {
	if reloader == nil {
		panic("reload: reloader cannot be nil")
	}
	w := &Watcher{
		reloader: reloader,
		dir:      loc.Dir,
		pattern:  glob.QuoteMeta(filepath.Base(loc.Path)),
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	matcher, err := glob.Compile(w.pattern)
	if err != nil {
		return nil, oops.With("pattern", w.pattern).Wrapf(err, "compile watch pattern")
	}
	w.matcher = matcher
	return w, nil
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return oops.With("dir", w.dir).Wrapf(err, "create file watcher")
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.dir); err != nil {
		return oops.With("dir", w.dir).Wrapf(err, "watch plugin directory")
	}

	// Stopped until the first relevant event; each event restarts it.
	quiet := time.NewTimer(w.debounce)
	quiet.Stop()
	defer quiet.Stop()

	w.logger.Info("watching plugin directory",
		"dir", w.dir,
		"pattern", w.pattern,
		"debounce", w.debounce)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev) {
				w.logger.Debug("plugin file changed", "path", ev.Name, "op", ev.Op.String())
				quiet.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "dir", w.dir, "error", err)

		case <-quiet.C:
			//nolint:errcheck // failures are logged by the orchestrator
			w.reloader.MaybeReload(ctx)
		}
	}
}

// relevant reports whether ev can change the library's bytes.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return w.matcher.Match(filepath.Base(ev.Name))
}
