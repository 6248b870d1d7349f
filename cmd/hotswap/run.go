// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/holomush/hotswap/internal/checksum"
	"github.com/holomush/hotswap/internal/config"
	"github.com/holomush/hotswap/internal/dylib"
	"github.com/holomush/hotswap/internal/reload"
	"github.com/holomush/hotswap/pkg/errutil"
)

// statusSnapshot is served on /status.
type statusSnapshot struct {
	Library  string `json:"library"`
	Backend  string `json:"backend"`
	Strategy string `json:"strategy"`
	State    string `json:"state"`
	Checksum string `json:"checksum,omitempty"`
	Poisoned bool   `json:"poisoned"`
}

// newRunCmd creates the run subcommand.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load the plugin and reload it whenever it changes",
		Long: `Load the configured plugin library, then keep watching it and swap
in each rebuilt version once it loads cleanly. A broken build never
replaces the live plugin.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithDeps(cmd.Context(), cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

// runWithDeps runs the host with injectable dependencies.
// If deps is nil, default implementations are used.
func runWithDeps(ctx context.Context, cmd *cobra.Command, deps *Deps) error {
	deps = deps.withDefaults()

	cfg, logger, err := setup(cmd, deps.LogOutput)
	if err != nil {
		return err
	}

	logger.Info("starting hotswap",
		"library", cfg.Library,
		"backend", cfg.Backend,
		"strategy", cfg.Strategy,
	)

	loc, err := dylib.NewLocator(cfg.Library, cfg.ShadowDir).Locate()
	if err != nil {
		return err
	}

	if n, err := dylib.PruneShadowDir(loc.ShadowDir, loc.Path); err != nil {
		logger.Warn("failed to prune shadow directory", "dir", loc.ShadowDir, "error", err)
	} else if n > 0 {
		logger.Info("pruned stale shadow copies", "dir", loc.ShadowDir, "count", n)
	}

	opener, err := deps.OpenerFactory(cfg)
	if err != nil {
		return err
	}

	opts := []reload.Option{
		reload.WithSymbol(cfg.Symbol),
		reload.WithLogger(logger),
	}

	// orch is assigned before the server starts serving.
	var orch *reload.Orchestrator
	var obsServer ObservabilityServer
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr,
			func() bool { return orch.Ready() },
			func() any { return snapshot(cfg, orch) },
		)
		opts = append(opts, reload.WithMetrics(reload.NewMetrics(obsServer.Registry())))
	}

	orch = reload.New(loc, opener, opts...)
	defer func() {
		if closeErr := orch.Close(); closeErr != nil {
			logger.Warn("error unloading plugin", "error", closeErr)
		}
	}()

	ctx, stop := deps.SignalContext(ctx)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if obsServer != nil {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.With("addr", cfg.MetricsAddr).Wrapf(err, "start observability server")
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := obsServer.Stop(shutdownCtx); err != nil {
				logger.Warn("error stopping observability server", "error", err)
			}
		}()
		// Monitor observability server errors - cancel context on error
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability", logger)
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	if err := initialLoad(ctx, orch, cfg.StartupRetries, deps.RetryBase, logger); err != nil {
		return err
	}

	strategy, err := deps.StrategyFactory(cfg, orch, logger)
	if err != nil {
		return err
	}

	cmd.Println("hotswap running")
	if err := strategy.Run(ctx); err != nil {
		return err
	}

	logger.Info("shutting down")
	return nil
}

// initialLoad loads the plugin, retrying transient failures with
// exponential backoff. retries is the number of extra attempts.
func initialLoad(ctx context.Context, orch *reload.Orchestrator, retries int, base time.Duration, logger *slog.Logger) error {
	if retries < 0 {
		retries = 0
	}
	b := retry.WithMaxRetries(uint64(retries), retry.NewExponential(base)) //nolint:gosec // clamped above

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := orch.Load(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		logger.Warn("initial plugin load failed",
			"attempt", attempt,
			"code", errutil.Code(err),
			"error", err)
		return retry.RetryableError(err)
	})
}

// retryable reports whether a load error may clear up on its own, such as
// a library caught mid-write.
func retryable(err error) bool {
	switch errutil.Code(err) {
	case dylib.CodeLibraryLoadFailed, checksum.CodeChecksumUnavailable:
		return true
	default:
		return false
	}
}

func snapshot(cfg *config.Config, orch *reload.Orchestrator) statusSnapshot {
	s := statusSnapshot{
		Library:  orch.Location().Path,
		Backend:  cfg.Backend,
		Strategy: cfg.Strategy,
		State:    orch.State().String(),
		Poisoned: orch.Poisoned(),
	}
	if sum, ok := orch.Checksum(); ok {
		s.Checksum = sum.String()
	}
	return s
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
