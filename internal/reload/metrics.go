// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package reload

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/hotswap/internal/checksum"
)

// Metrics contains Prometheus metrics for the reload protocol.
type Metrics struct {
	ReloadsTotal   *prometheus.CounterVec
	ReloadDuration prometheus.Histogram
	PluginInfo     *prometheus.GaugeVec
	Poisoned       prometheus.Gauge
}

// NewMetrics creates and registers the reload metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hotswap_reloads_total",
				Help: "Total number of reload attempts by outcome",
			},
			[]string{"outcome"},
		),
		ReloadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hotswap_reload_duration_seconds",
				Help:    "Time spent in reload attempts that did work",
				Buckets: prometheus.DefBuckets,
			},
		),
		PluginInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hotswap_plugin_info",
				Help: "Set to 1 for the checksum of the live plugin",
			},
			[]string{"checksum"},
		),
		Poisoned: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hotswap_poisoned",
				Help: "1 if the plugin slot is poisoned",
			},
		),
	}

	reg.MustRegister(m.ReloadsTotal)
	reg.MustRegister(m.ReloadDuration)
	reg.MustRegister(m.PluginInfo)
	reg.MustRegister(m.Poisoned)

	return m
}

// The methods below tolerate a nil receiver so the orchestrator can run
// without metrics.

func (m *Metrics) observe(outcome Outcome, started time.Time) {
	if m == nil {
		return
	}
	m.ReloadsTotal.WithLabelValues(outcome.String()).Inc()
	if outcome != OutcomeBusy {
		m.ReloadDuration.Observe(time.Since(started).Seconds())
	}
}

func (m *Metrics) live(sum checksum.Sum) {
	if m == nil {
		return
	}
	m.PluginInfo.Reset()
	m.PluginInfo.WithLabelValues(sum.String()).Set(1)
}

func (m *Metrics) unloaded() {
	if m == nil {
		return
	}
	m.PluginInfo.Reset()
}

func (m *Metrics) poisoned() {
	if m == nil {
		return
	}
	m.Poisoned.Set(1)
}
