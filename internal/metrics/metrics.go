// Package metrics exposes Prometheus collectors for the render pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	ActiveRenders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reelforge_active_renders",
		Help: "Number of render requests currently in flight",
	})
)

// Counters
var (
	SynthesisAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelforge_synthesis_attempts_total",
		Help: "Speech synthesis attempts by character and outcome",
	}, []string{"character", "outcome"})
	AlignmentFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelforge_alignment_fallbacks_total",
		Help: "Segments whose word timings came from the estimator",
	})
	UnresolvedCuesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelforge_unresolved_media_cues_total",
		Help: "Media cues dropped because their asset was not supplied",
	})
	RendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelforge_renders_total",
		Help: "Render requests by outcome (ok or error class)",
	}, []string{"outcome"})
)

// Histograms
var (
	StageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reelforge_stage_duration_seconds",
		Help:    "Pipeline stage duration in seconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 900},
	}, []string{"stage"})
)

// Outcome labels shared by counters.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)
