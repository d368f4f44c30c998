// Package metrics provides Prometheus metrics for extraction and alerting.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters. A nil *Metrics records nothing.
type Metrics struct {
	ExtractionsTotal         *prometheus.CounterVec   // by modality, source
	RecognitionFailuresTotal *prometheus.CounterVec   // by modality
	ExtractionDuration       *prometheus.HistogramVec // by modality
	AllergenAlertsTotal      *prometheus.CounterVec   // by level
	AlertPublishFailures     prometheus.Counter

	registry *prometheus.Registry
}

// New creates the metrics on a fresh registry that also carries the Go and
// process collectors.
func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	m := &Metrics{registry: registry}
	m.ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutrition_extractions_total",
			Help: "Completed extractions by modality and the source that produced the items",
		},
		[]string{"modality", "source"},
	)
	m.RecognitionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutrition_recognition_failures_total",
			Help: "Extractions that fell back because the primary recognizer was unavailable",
		},
		[]string{"modality"},
	)
	m.ExtractionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nutrition_extraction_duration_seconds",
			Help:    "Time spent extracting items by modality",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"modality"},
	)
	m.AllergenAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nutrition_allergen_alerts_total",
			Help: "Allergen alerts raised by alert level",
		},
		[]string{"level"},
	)
	m.AlertPublishFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nutrition_alert_publish_failures_total",
		Help: "Alert notifications that could not be handed to the broker",
	})

	for _, c := range []prometheus.Collector{
		m.ExtractionsTotal, m.RecognitionFailuresTotal, m.ExtractionDuration,
		m.AllergenAlertsTotal, m.AlertPublishFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveExtraction(modality, source string, degraded bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(modality, source).Inc()
	m.ExtractionDuration.WithLabelValues(modality).Observe(elapsed.Seconds())
	if degraded {
		m.RecognitionFailuresTotal.WithLabelValues(modality).Inc()
	}
}

func (m *Metrics) ObserveAlert(level string) {
	if m == nil {
		return
	}
	m.AllergenAlertsTotal.WithLabelValues(level).Inc()
}

func (m *Metrics) ObservePublishFailure() {
	if m == nil {
		return
	}
	m.AlertPublishFailures.Inc()
}
