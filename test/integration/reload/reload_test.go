// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package reload_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/hotswap/internal/checksum"
	"github.com/holomush/hotswap/internal/config"
	"github.com/holomush/hotswap/internal/dylib"
	"github.com/holomush/hotswap/internal/entry"
	"github.com/holomush/hotswap/internal/reload"
	"github.com/holomush/hotswap/pkg/errutil"
	"github.com/holomush/hotswap/pkg/fixup"
)

// joinAll runs the live plugin over the whole of source.
func joinAll(orch *reload.Orchestrator, source string) string {
	lease, err := orch.Current()
	Expect(err).NotTo(HaveOccurred())
	defer lease.Release()

	edit, err := lease.Fix(source, fixup.NewRange(0, uint32(len(source)))) //nolint:gosec // short literal
	Expect(err).NotTo(HaveOccurred())
	out, err := edit.Apply(source)
	Expect(err).NotTo(HaveOccurred())
	return out
}

func liveChecksum(orch *reload.Orchestrator) checksum.Sum {
	sum, ok := orch.Checksum()
	Expect(ok).To(BeTrue())
	return sum
}

var _ = Describe("Reloading a process plugin", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("initial load", func() {
		It("serves a usable fixer whose checksum matches the library", func() {
			h := newHost()

			Expect(h.orch.Load(ctx)).To(Succeed())

			Expect(h.orch.State()).To(Equal(reload.StateLive))
			Expect(joinAll(h.orch, "call(\n    arg,\n)")).To(Equal("call(arg)"))

			want, err := checksum.File(h.lib)
			Expect(err).NotTo(HaveOccurred())
			Expect(liveChecksum(h.orch)).To(Equal(want))
		})

		It("runs the plugin from a private copy", func() {
			h := newHost()
			Expect(h.orch.Load(ctx)).To(Succeed())

			lease, err := h.orch.Current()
			Expect(err).NotTo(HaveOccurred())
			defer lease.Release()
			Expect(lease.LibraryPath()).NotTo(Equal(h.lib), "the shadow copy runs, not the library")
		})
	})

	Describe("missing configuration or library", func() {
		It("fails with CONFIG_MISSING when no library is configured", func() {
			cfg := config.Default()
			err := cfg.Validate()
			Expect(errutil.Code(err)).To(Equal(config.CodeConfigMissing))
		})

		It("fails with PATH_RESOLUTION_FAILED when the library does not exist", func() {
			_, err := dylib.NewLocator(filepath.Join(GinkgoT().TempDir(), "absent"), "").Locate()
			Expect(errutil.Code(err)).To(Equal(dylib.CodePathResolutionFailed))
		})

		It("has no plugin to serve before a successful load", func() {
			h := newHost()
			_, err := h.orch.Current()
			Expect(errutil.Code(err)).To(Equal(reload.CodeNotLoaded))
		})
	})

	Describe("library rewritten with different bytes", func() {
		It("installs the new build and stops the old process", func() {
			h := newHost()
			Expect(h.orch.Load(ctx)).To(Succeed())
			before := liveChecksum(h.orch)

			old, err := h.orch.Current()
			Expect(err).NotTo(HaveOccurred())
			oldCopy := old.LibraryPath()
			old.Release()

			install(joinlinesBin, h.lib, "rebuild-2")
			outcome, err := h.orch.MaybeReload(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(reload.OutcomeSwapped))
			Expect(liveChecksum(h.orch)).NotTo(Equal(before))
			Expect(joinAll(h.orch, "a\nb")).To(Equal("a b"))

			_, err = os.Stat(oldCopy)
			Expect(os.IsNotExist(err)).To(BeTrue(), "the previous copy is released")
		})
	})

	Describe("library rewritten with identical bytes", func() {
		It("leaves the live plugin untouched", func() {
			h := newHost()
			Expect(h.orch.Load(ctx)).To(Succeed())

			lease, err := h.orch.Current()
			Expect(err).NotTo(HaveOccurred())
			path := lease.LibraryPath()
			lease.Release()

			install(joinlinesBin, h.lib, "")
			outcome, err := h.orch.MaybeReload(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(reload.OutcomeUnchanged))

			lease, err = h.orch.Current()
			Expect(err).NotTo(HaveOccurred())
			defer lease.Release()
			Expect(lease.LibraryPath()).To(Equal(path))
		})
	})

	Describe("library without the entry point", func() {
		It("fails the initial load with ENTRYPOINT_MISSING", func() {
			h := newHost()
			install(renamedBin, h.lib, "")

			err := h.orch.Load(ctx)

			Expect(errutil.Code(err)).To(Equal(entry.CodeEntrypointMissing))
			Expect(h.orch.State()).To(Equal(reload.StateFailed))
		})

		It("keeps the good plugin live on reload", func() {
			h := newHost()
			Expect(h.orch.Load(ctx)).To(Succeed())
			before := liveChecksum(h.orch)

			install(renamedBin, h.lib, "")
			outcome, err := h.orch.MaybeReload(ctx)

			Expect(outcome).To(Equal(reload.OutcomeFailed))
			Expect(errutil.Code(err)).To(Equal(entry.CodeEntrypointMissing))
			Expect(liveChecksum(h.orch)).To(Equal(before))
			Expect(joinAll(h.orch, "x\n  y")).To(Equal("x y"))
		})
	})

	Describe("watch strategy", func() {
		It("swaps in a rebuilt plugin without an explicit reload call", func() {
			var mu sync.Mutex
			var swapped []reload.SwapEvent
			h := newHost(reload.WithSwapHook(func(ev reload.SwapEvent) {
				if ev.Kind == reload.SwapAfter {
					mu.Lock()
					swapped = append(swapped, ev)
					mu.Unlock()
				}
			}))
			Expect(h.orch.Load(ctx)).To(Succeed())
			before := liveChecksum(h.orch)

			watcher, err := reload.NewWatcher(h.orch, h.loc, reload.WithDebounce(200*time.Millisecond))
			Expect(err).NotTo(HaveOccurred())

			runCtx, cancel := context.WithCancel(ctx)
			done := make(chan error, 1)
			go func() { done <- watcher.Run(runCtx) }()
			DeferCleanup(func() {
				cancel()
				Eventually(done).Should(Receive(BeNil()))
			})

			// Give the watcher time to subscribe before writing.
			time.Sleep(100 * time.Millisecond)
			install(joinlinesBin, h.lib, "watched")
			want, err := checksum.File(h.lib)
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() checksum.Sum { return liveChecksum(h.orch) }, 10*time.Second, 50*time.Millisecond).
				Should(Equal(want))

			mu.Lock()
			defer mu.Unlock()
			Expect(swapped).NotTo(BeEmpty())
			Expect(swapped[0].Old).To(Equal(before))
			Expect(swapped[len(swapped)-1].New).To(Equal(want))
		})
	})
})
