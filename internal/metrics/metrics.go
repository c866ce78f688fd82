// Package metrics records per-stage pipeline metrics in Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hyperjump/ragpipe/internal/apperr"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	vectorsAdded  prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rag_stage_duration_seconds",
				Help:    "Duration of pipeline stages",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		stageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rag_stage_errors_total",
				Help: "Pipeline stage failures by error kind",
			},
			[]string{"stage", "kind"},
		),
		vectorsAdded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rag_vectors_added_total",
				Help: "Vectors committed to the vector store",
			},
		),
	}
}

// ObserveStage records the duration of a stage and, when err is non-nil, a
// failure labelled with its kind.
func (m *Metrics) ObserveStage(stage apperr.Stage, start time.Time, err error) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
	if err != nil {
		m.stageErrors.WithLabelValues(string(stage), string(apperr.KindOf(err))).Inc()
	}
}

// AddVectors counts committed vectors.
func (m *Metrics) AddVectors(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.vectorsAdded.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
