// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/holomush/hotswap/internal/config"
	"github.com/holomush/hotswap/internal/dylib"
	"github.com/holomush/hotswap/internal/dylib/goplugin"
	"github.com/holomush/hotswap/internal/observability"
	"github.com/holomush/hotswap/internal/reload"
)

// Deps contains injectable dependencies for the hotswap commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// OpenerFactory creates the library opener for the configured backend.
	// Default: newOpener
	OpenerFactory func(cfg *config.Config) (dylib.Opener, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker, status observability.StatusFunc) ObservabilityServer

	// StrategyFactory creates the reload strategy driving the orchestrator.
	// Default: newStrategy
	StrategyFactory func(cfg *config.Config, orch *reload.Orchestrator, logger *slog.Logger) (reload.Strategy, error)

	// SignalContext returns a context cancelled on shutdown signals.
	// Default: signal.NotifyContext for SIGINT and SIGTERM
	SignalContext func(ctx context.Context) (context.Context, context.CancelFunc)

	// LogOutput receives log records.
	// Default: os.Stderr
	LogOutput io.Writer

	// RetryBase is the first backoff delay between initial load attempts.
	// Default: 500ms
	RetryBase time.Duration
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Registry() *prometheus.Registry
}

const defaultRetryBase = 500 * time.Millisecond

// withDefaults fills nil fields. A nil receiver yields all defaults.
func (d *Deps) withDefaults() *Deps {
	out := &Deps{}
	if d != nil {
		*out = *d
	}
	if out.OpenerFactory == nil {
		out.OpenerFactory = newOpener
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker, status observability.StatusFunc) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker, observability.WithStatus(status))
		}
	}
	if out.StrategyFactory == nil {
		out.StrategyFactory = newStrategy
	}
	if out.SignalContext == nil {
		out.SignalContext = func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		}
	}
	if out.LogOutput == nil {
		out.LogOutput = os.Stderr
	}
	if out.RetryBase <= 0 {
		out.RetryBase = defaultRetryBase
	}
	return out
}

// newOpener returns the opener for cfg.Backend.
func newOpener(cfg *config.Config) (dylib.Opener, error) {
	switch cfg.Backend {
	case config.BackendNative:
		return dylib.NewNativeOpener(), nil
	case config.BackendProcess:
		return goplugin.NewOpener(goplugin.WithSymbol(cfg.Symbol)), nil
	default:
		return nil, oops.Code(config.CodeConfigInvalid).
			With("backend", cfg.Backend).
			Errorf("unknown backend %q", cfg.Backend)
	}
}

// newStrategy returns the strategy named by cfg.Strategy.
func newStrategy(cfg *config.Config, orch *reload.Orchestrator, logger *slog.Logger) (reload.Strategy, error) {
	switch cfg.Strategy {
	case config.StrategyPoll:
		return reload.NewPoller(orch, cfg.PollInterval, logger), nil
	case config.StrategyWatch:
		opts := []reload.WatcherOption{
			reload.WithDebounce(cfg.Debounce),
			reload.WithWatchLogger(logger),
		}
		if cfg.WatchPattern != "" {
			opts = append(opts, reload.WithPattern(cfg.WatchPattern))
		}
		return reload.NewWatcher(orch, orch.Location(), opts...)
	default:
		return nil, oops.Code(config.CodeConfigInvalid).
			With("strategy", cfg.Strategy).
			Errorf("unknown strategy %q", cfg.Strategy)
	}
}
