/*
 * rcpsh: Remote CLI Protocol client
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 */

// Package metrics exposes a Prometheus custom Collector over the
// client's protocol-level counters (frames received by type, display
// bytes, pager pages shown, questions answered, local execs run).
// Grounded on sockstats' pkg/exporter/exporter.go Describe/Collect
// pattern; rcpsh has no per-connection table to walk (there is exactly
// one server connection per process), so Collect here just snapshots a
// handful of atomic counters instead of exporter.go's map-of-conns walk.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements prometheus.Collector over rcpsh's session
// counters. The zero value is not usable; construct with New.
type Collector struct {
	framesByType map[string]*uint64
	mu           sync.Mutex // guards framesByType's key set only; values are atomic

	displayBytes uint64
	pagerPages   uint64
	asksAnswered uint64
	localExecs   uint64
	interrupts   uint64

	framesDesc       *prometheus.Desc
	displayBytesDesc *prometheus.Desc
	pagerPagesDesc   *prometheus.Desc
	asksDesc         *prometheus.Desc
	execsDesc        *prometheus.Desc
	interruptsDesc   *prometheus.Desc
}

// New constructs a Collector. constLabels are attached to every metric,
// matching exporter.go's constLabels parameter (e.g. a session or host
// identifier known for the whole process).
func New(constLabels prometheus.Labels) *Collector {
	return &Collector{
		framesByType: make(map[string]*uint64),
		framesDesc: prometheus.NewDesc(
			"rcpsh_frames_total",
			"Frames received from the server, by message type.",
			[]string{"type"}, constLabels,
		),
		displayBytesDesc: prometheus.NewDesc(
			"rcpsh_display_bytes_total",
			"Bytes carried by DISPLAY frames.",
			nil, constLabels,
		),
		pagerPagesDesc: prometheus.NewDesc(
			"rcpsh_pager_pages_total",
			"Number of --More-- prompts shown by the pager.",
			nil, constLabels,
		),
		asksDesc: prometheus.NewDesc(
			"rcpsh_asks_answered_total",
			"ASK frames answered with a TELL.",
			nil, constLabels,
		),
		execsDesc: prometheus.NewDesc(
			"rcpsh_local_execs_total",
			"Local commands run via the EXEC subprotocol.",
			nil, constLabels,
		),
		interruptsDesc: prometheus.NewDesc(
			"rcpsh_interrupts_total",
			"INTERRUPT frames sent to the server.",
			nil, constLabels,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.framesDesc
	descs <- c.displayBytesDesc
	descs <- c.pagerPagesDesc
	descs <- c.asksDesc
	descs <- c.execsDesc
	descs <- c.interruptsDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	for typeName, counter := range c.framesByType {
		metrics <- prometheus.MustNewConstMetric(
			c.framesDesc, prometheus.CounterValue, float64(atomic.LoadUint64(counter)), typeName)
	}
	c.mu.Unlock()

	metrics <- prometheus.MustNewConstMetric(
		c.displayBytesDesc, prometheus.CounterValue, float64(atomic.LoadUint64(&c.displayBytes)))
	metrics <- prometheus.MustNewConstMetric(
		c.pagerPagesDesc, prometheus.CounterValue, float64(atomic.LoadUint64(&c.pagerPages)))
	metrics <- prometheus.MustNewConstMetric(
		c.asksDesc, prometheus.CounterValue, float64(atomic.LoadUint64(&c.asksAnswered)))
	metrics <- prometheus.MustNewConstMetric(
		c.execsDesc, prometheus.CounterValue, float64(atomic.LoadUint64(&c.localExecs)))
	metrics <- prometheus.MustNewConstMetric(
		c.interruptsDesc, prometheus.CounterValue, float64(atomic.LoadUint64(&c.interrupts)))
}

// ObserveFrame increments the per-type frame counter.
func (c *Collector) ObserveFrame(typeName string) {
	c.mu.Lock()
	counter, ok := c.framesByType[typeName]
	if !ok {
		counter = new(uint64)
		c.framesByType[typeName] = counter
	}
	c.mu.Unlock()
	atomic.AddUint64(counter, 1)
}

// AddDisplayBytes adds n to the display-byte counter.
func (c *Collector) AddDisplayBytes(n int) {
	atomic.AddUint64(&c.displayBytes, uint64(n))
}

// IncPagerPages increments the pager-page counter. The pager does not
// call it, so rcpsh_pager_pages_total stays at zero in rcpsh.
func (c *Collector) IncPagerPages() {
	atomic.AddUint64(&c.pagerPages, 1)
}

// IncAsksAnswered increments the ask-answered counter.
func (c *Collector) IncAsksAnswered() {
	atomic.AddUint64(&c.asksAnswered, 1)
}

// IncLocalExecs increments the local-exec counter.
func (c *Collector) IncLocalExecs() {
	atomic.AddUint64(&c.localExecs, 1)
}

// IncInterrupts increments the interrupt counter.
func (c *Collector) IncInterrupts() {
	atomic.AddUint64(&c.interrupts, 1)
}
