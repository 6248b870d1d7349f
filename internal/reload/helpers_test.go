// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package reload_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/holomush/hotswap/internal/dylib"
	"github.com/holomush/hotswap/internal/dylib/dylibtest"
	"github.com/holomush/hotswap/internal/reload"
	"github.com/holomush/hotswap/pkg/fixup"
)

// Library contents understood by testBuild.
const (
	contentBroken  = "broken"
	contentNoEntry = "no-entry"
)

// versionFixer inserts its version at the start of the range.
type versionFixer struct{ version string }

func (f *versionFixer) Fix(_ string, r fixup.TextRange) (fixup.TextEdit, error) {
	b := fixup.NewBuilder()
	b.Insert(r.Start, f.version)
	return b.Finish(), nil
}

// testBuild turns file contents into a symbol table: "broken" fails to load,
// "no-entry" loads without an entry point, anything else exports a
// versionFixer named after the contents.
func testBuild(content []byte) (map[string]any, error) {
	switch {
	case bytes.Equal(content, []byte(contentBroken)):
		return nil, errors.New("not a plugin image")
	case bytes.Equal(content, []byte(contentNoEntry)):
		return map[string]any{"SomethingElse": 1}, nil
	}
	version := string(content)
	return map[string]any{
		fixup.EntrySymbol: func() fixup.Fixer { return &versionFixer{version: version} },
	}, nil
}

// blockingBuild wraps testBuild so that building gate content waits until
// release is closed. entered receives once per blocked build.
type blockingBuild struct {
	gate    string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingBuild(gate string) *blockingBuild {
	return &blockingBuild{
		gate:    gate,
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (b *blockingBuild) build(content []byte) (map[string]any, error) {
	if string(content) == b.gate {
		b.entered <- struct{}{}
		<-b.release
	}
	return testBuild(content)
}

func (b *blockingBuild) unblock() {
	b.once.Do(func() { close(b.release) })
}

type fixture struct {
	loc    dylib.Location
	opener *dylibtest.FileOpener
}

func newFixture(t *testing.T, content string) *fixture {
	t.Helper()
	return newFixtureWithBuild(t, content, testBuild)
}

func newFixtureWithBuild(t *testing.T, content string, build dylibtest.BuildFunc) *fixture {
	t.Helper()
	dir := t.TempDir()
	lib := filepath.Join(dir, "libfix.so")
	require.NoError(t, os.WriteFile(lib, []byte(content), 0o600))

	loc, err := dylib.NewLocator(lib, "").Locate()
	require.NoError(t, err)

	return &fixture{loc: loc, opener: dylibtest.NewFileOpener(build)}
}

func (f *fixture) write(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.loc.Path, []byte(content), 0o600))
}

func (f *fixture) orchestrator(opts ...reload.Option) *reload.Orchestrator {
	return reload.New(f.loc, f.opener, opts...)
}

func (f *fixture) loaded(t *testing.T, opts ...reload.Option) *reload.Orchestrator {
	t.Helper()
	o := f.orchestrator(opts...)
	require.NoError(t, o.Load(t.Context()))
	t.Cleanup(func() { _ = o.Close() })
	return o
}

// versionOf runs the live plugin and returns the version it reports.
func versionOf(t *testing.T, o *reload.Orchestrator) string {
	t.Helper()
	lease, err := o.Current()
	require.NoError(t, err)
	defer lease.Release()
	return leaseVersion(t, lease)
}

func leaseVersion(t *testing.T, lease *reload.Lease) string {
	t.Helper()
	edit, err := lease.Fix("", fixup.NewRange(0, 0))
	require.NoError(t, err)
	out, err := edit.Apply("")
	require.NoError(t, err)
	return out
}

// eventRecorder collects swap events.
type eventRecorder struct {
	mu     sync.Mutex
	events []reload.SwapEvent
}

func (r *eventRecorder) hook(ev reload.SwapEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) kinds() []reload.SwapKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]reload.SwapKind, len(r.events))
	for i, ev := range r.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func (r *eventRecorder) all() []reload.SwapEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reload.SwapEvent(nil), r.events...)
}

func removeFile(path string) error {
	//nolint:wrapcheck // test helper, no need to wrap
	return os.Remove(path)
}
