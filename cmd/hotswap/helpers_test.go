// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/holomush/hotswap/internal/config"
	"github.com/holomush/hotswap/internal/dylib"
	"github.com/holomush/hotswap/internal/dylib/dylibtest"
	"github.com/holomush/hotswap/internal/observability"
	"github.com/holomush/hotswap/internal/reload"
	"github.com/holomush/hotswap/pkg/fixup"
)

// prefixFixer inserts its tag at the start of the range.
type prefixFixer struct{ tag string }

func (f *prefixFixer) Fix(_ string, r fixup.TextRange) (fixup.TextEdit, error) {
	b := fixup.NewBuilder()
	b.Insert(r.Start, f.tag)
	return b.Finish(), nil
}

// buildTagged exports a prefixFixer tagged with the file contents. The
// content "broken" fails to load.
func buildTagged(content []byte) (map[string]any, error) {
	if string(content) == "broken" {
		return nil, errors.New("not a plugin image")
	}
	tag := string(content)
	return map[string]any{
		fixup.EntrySymbol:      func() fixup.Fixer { return &prefixFixer{tag: tag} },
		fixup.APIVersionSymbol: fixup.APIVersion,
	}, nil
}

// isolate clears the environment sources config.Load reads.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	configFile = ""
	t.Cleanup(func() { configFile = "" })
}

// writeLibrary writes content as the plugin library and returns its path.
func writeLibrary(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "fixer.so")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// withFlags builds cmd and sets the given flags as if typed by the user.
func withFlags(t *testing.T, cmd *cobra.Command, flags map[string]string) *cobra.Command {
	t.Helper()
	for name, value := range flags {
		require.NoError(t, cmd.Flags().Set(name, value), name)
	}
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	return cmd
}

// testDeps returns deps backed by a FileOpener, discarding logs.
func testDeps(opener dylib.Opener) *Deps {
	return &Deps{
		OpenerFactory: func(*config.Config) (dylib.Opener, error) { return opener, nil },
		SignalContext: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return context.WithCancel(ctx)
		},
		LogOutput: io.Discard,
		RetryBase: 1,
	}
}

// newFileOpener returns a FileOpener using buildTagged.
func newFileOpener() *dylibtest.FileOpener {
	return dylibtest.NewFileOpener(buildTagged)
}

// strategyFunc adapts a function to reload.Strategy.
type strategyFunc func(ctx context.Context) error

func (f strategyFunc) Run(ctx context.Context) error { return f(ctx) }

// strategyWith returns a StrategyFactory that runs fn once against the
// orchestrator.
func strategyWith(fn func(ctx context.Context, orch *reload.Orchestrator) error) func(*config.Config, *reload.Orchestrator, *slog.Logger) (reload.Strategy, error) {
	return func(_ *config.Config, orch *reload.Orchestrator, _ *slog.Logger) (reload.Strategy, error) {
		return strategyFunc(func(ctx context.Context) error { return fn(ctx, orch) }), nil
	}
}

// mockObservabilityServer implements ObservabilityServer for testing.
type mockObservabilityServer struct {
	mu        sync.Mutex
	registry  *prometheus.Registry
	ready     observability.ReadinessChecker
	status    observability.StatusFunc
	startErr  error
	started   bool
	stopped   bool
	errCh     chan error
	addrValue string
}

func newMockObservabilityServer() *mockObservabilityServer {
	return &mockObservabilityServer{
		registry:  prometheus.NewRegistry(),
		errCh:     make(chan error, 1),
		addrValue: "127.0.0.1:9100",
	}
}

func (m *mockObservabilityServer) factory(_ string, ready observability.ReadinessChecker, status observability.StatusFunc) ObservabilityServer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = ready
	m.status = status
	return m
}

func (m *mockObservabilityServer) Start() (<-chan error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return nil, m.startErr
	}
	m.started = true
	return m.errCh, nil
}

func (m *mockObservabilityServer) Stop(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *mockObservabilityServer) Addr() string { return m.addrValue }

func (m *mockObservabilityServer) Registry() *prometheus.Registry { return m.registry }

// newTestLogger returns a text logger writing to w.
func newTestLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, nil))
}
