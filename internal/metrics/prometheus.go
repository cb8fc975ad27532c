// Package metrics exports loop timing and world statistics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/plife/internal/clock"
)

// LoopSource is the part of a loop the collector reads. *loop.Loop satisfies it.
type LoopSource interface {
	Stats() clock.Stats
	Iterations() uint64
	Paused() bool
	Pending() int
}

// WorldStats is a reading of the simulated world.
type WorldStats struct {
	Particles     int
	Types         int
	Steps         uint64
	KineticEnergy float64
}

// WorldSource returns the current world reading.
type WorldSource func() WorldStats

// PrometheusMetrics reads a loop, and optionally a world, on every scrape.
type PrometheusMetrics struct {
	loop  LoopSource
	world WorldSource

	frameSeconds *prometheus.GaugeVec
	framerate    *prometheus.GaugeVec
	paused       prometheus.Gauge
	pending      prometheus.Gauge

	particles *prometheus.GaugeVec
	energy    prometheus.Gauge

	iterationsDesc *prometheus.Desc
	stepsDesc      *prometheus.Desc
}

// NewPrometheusMetrics creates a collector. world may be nil.
func NewPrometheusMetrics(loop LoopSource, world WorldSource) *PrometheusMetrics {
	return &PrometheusMetrics{
		loop:  loop,
		world: world,
		frameSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "plife_loop_frame_seconds",
				Help: "Frame duration by statistic (last, average, stddev)",
			},
			[]string{"stat"},
		),
		framerate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "plife_loop_framerate",
				Help: "Frames per second by statistic (instant, average)",
			},
			[]string{"stat"},
		),
		paused: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plife_loop_paused",
			Help: "1 if stepping is paused",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plife_loop_pending_commands",
			Help: "Commands waiting for the worker",
		}),
		particles: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "plife_world_size",
				Help: "World size by dimension (particles, types)",
			},
			[]string{"dimension"},
		),
		energy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plife_world_kinetic_energy",
			Help: "Total kinetic energy of all particles",
		}),
		iterationsDesc: prometheus.NewDesc(
			"plife_loop_iterations_total",
			"Loop iterations completed",
			nil, nil,
		),
		stepsDesc: prometheus.NewDesc(
			"plife_world_steps_total",
			"World steps taken",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (pm *PrometheusMetrics) Describe(ch chan<- *prometheus.Desc) {
	pm.frameSeconds.Describe(ch)
	pm.framerate.Describe(ch)
	pm.paused.Describe(ch)
	pm.pending.Describe(ch)
	ch <- pm.iterationsDesc
	if pm.world != nil {
		pm.particles.Describe(ch)
		pm.energy.Describe(ch)
		ch <- pm.stepsDesc
	}
}

// Collect implements prometheus.Collector.
func (pm *PrometheusMetrics) Collect(ch chan<- prometheus.Metric) {
	pm.collectLoop()
	pm.frameSeconds.Collect(ch)
	pm.framerate.Collect(ch)
	pm.paused.Collect(ch)
	pm.pending.Collect(ch)
	ch <- prometheus.MustNewConstMetric(pm.iterationsDesc, prometheus.CounterValue, float64(pm.loop.Iterations()))

	if pm.world == nil {
		return
	}
	ws := pm.world()
	pm.particles.WithLabelValues("particles").Set(float64(ws.Particles))
	pm.particles.WithLabelValues("types").Set(float64(ws.Types))
	pm.energy.Set(ws.KineticEnergy)
	pm.particles.Collect(ch)
	pm.energy.Collect(ch)
	ch <- prometheus.MustNewConstMetric(pm.stepsDesc, prometheus.CounterValue, float64(ws.Steps))
}

func (pm *PrometheusMetrics) collectLoop() {
	s := pm.loop.Stats()
	pm.frameSeconds.WithLabelValues("last").Set(s.LastMillis / 1000)
	pm.frameSeconds.WithLabelValues("average").Set(s.AverageMillis / 1000)
	pm.frameSeconds.WithLabelValues("stddev").Set(s.StdDevMillis / 1000)
	pm.framerate.WithLabelValues("instant").Set(s.Rate)
	pm.framerate.WithLabelValues("average").Set(s.AverageRate)

	if pm.loop.Paused() {
		pm.paused.Set(1)
	} else {
		pm.paused.Set(0)
	}
	pm.pending.Set(float64(pm.loop.Pending()))
}
