// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes Prometheus instruments for the pipeline stages.
// Every method is safe to call on a nil *Metrics, so components can take an
// optional metrics handle without guarding each call site.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for the paperlens pipeline.
type Metrics struct {
	// Cache lookups by kind and result ("hit", "miss", "error").
	CacheLookups *prometheus.CounterVec

	// Cache writes by kind and result ("ok", "error").
	CacheWrites *prometheus.CounterVec

	// Raw-text extractions by method ("ocr", "text_layer", "failed").
	Extractions *prometheus.CounterVec

	// OCR probe results ("available", "unavailable").
	OCRProbes *prometheus.CounterVec

	// Classifier call latency by operation ("relevance", "sections", "analysis").
	ClassifierLatency *prometheus.HistogramVec

	// Relevance decisions by outcome.
	RelevanceOutcomes *prometheus.CounterVec

	// Stage latency by stage and status.
	StageLatency *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a Metrics instance registered on a fresh registry. Each call
// owns its registry so tests can build as many instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paperlens_cache_lookups_total",
			Help: "Artifact store lookups by kind and result",
		}, []string{"kind", "result"}),

		CacheWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paperlens_cache_writes_total",
			Help: "Artifact store writes by kind and result",
		}, []string{"kind", "result"}),

		Extractions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paperlens_extractions_total",
			Help: "Raw-text extractions by method used",
		}, []string{"method"}),

		OCRProbes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paperlens_ocr_probes_total",
			Help: "OCR backend availability probes by result",
		}, []string{"result"}),

		ClassifierLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paperlens_classifier_duration_seconds",
			Help:    "Classification service call duration by operation",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"operation"}),

		RelevanceOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paperlens_relevance_decisions_total",
			Help: "Relevance decisions by outcome",
		}, []string{"outcome"}),

		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paperlens_stage_duration_seconds",
			Help:    "Pipeline stage duration by stage and status",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"stage", "status"}),

		registry: reg,
	}
}

// Registry returns the registry the instruments are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncCacheLookup records a store lookup.
func (m *Metrics) IncCacheLookup(kind, result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(kind, result).Inc()
	}
}

// IncCacheWrite records a store write.
func (m *Metrics) IncCacheWrite(kind, result string) {
	if m != nil {
		m.CacheWrites.WithLabelValues(kind, result).Inc()
	}
}

// IncExtraction records the method that produced raw text.
func (m *Metrics) IncExtraction(method string) {
	if m != nil {
		m.Extractions.WithLabelValues(method).Inc()
	}
}

// IncOCRProbe records an OCR probe result.
func (m *Metrics) IncOCRProbe(available bool) {
	if m == nil {
		return
	}
	result := "unavailable"
	if available {
		result = "available"
	}
	m.OCRProbes.WithLabelValues(result).Inc()
}

// ObserveClassifier records a classifier call duration.
func (m *Metrics) ObserveClassifier(operation string, d time.Duration) {
	if m != nil {
		m.ClassifierLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// IncRelevance records a relevance decision.
func (m *Metrics) IncRelevance(outcome string) {
	if m != nil {
		m.RelevanceOutcomes.WithLabelValues(outcome).Inc()
	}
}

// ObserveStage records a pipeline stage duration.
func (m *Metrics) ObserveStage(stage string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.StageLatency.WithLabelValues(stage, status).Observe(d.Seconds())
}
