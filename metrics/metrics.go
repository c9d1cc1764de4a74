// Package metrics - Prometheus counters and histograms for detection and redaction.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nvr-ai/safegaze/pipeline"
)

const namespace = "safegaze"

// Metrics implements pipeline.Observer and render.Telemetry on a private
// registry.
type Metrics struct {
	registry *prometheus.Registry

	blurred      prometheus.Counter
	harmful      prometheus.Counter
	modelLatency *prometheus.HistogramVec
	modelErrors  *prometheus.CounterVec
	outcomes     *prometheus.CounterVec
	imageLatency prometheus.Histogram
	persons      prometheus.Counter
	requests     *prometheus.CounterVec
}

// New creates and registers every collector.
//
// Returns:
//   - *Metrics: The collectors and their registry.
//
// @example
//
//	m := metrics.New()
//	orch, _ := pipeline.New(cfg, d, pipeline.WithObserver(m))
//	router.GET("/metrics", gin.WrapH(m.Handler()))
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		blurred: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_blurred_total",
			Help:      "Images modified by the renderer",
		}),
		harmful: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "harmful_content_total",
			Help:      "Images classified unsafe",
		}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_duration_seconds",
			Help:      "Model call latency by stage",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"stage"}),
		modelErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_errors_total",
			Help:      "Failed model calls by stage",
		}, []string{"stage"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_processed_total",
			Help:      "Processed images by outcome reason",
		}, []string{"reason"}),
		imageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_duration_seconds",
			Help:      "End-to-end detection latency per image",
			Buckets:   prometheus.DefBuckets,
		}),
		persons: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persons_detected_total",
			Help:      "Persons returned by the pose estimator",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"route", "status"}),
	}

	m.registry.MustRegister(
		m.blurred, m.harmful,
		m.modelLatency, m.modelErrors,
		m.outcomes, m.imageLatency, m.persons,
		m.requests,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveModel records one model call.
func (m *Metrics) ObserveModel(stage pipeline.Stage, d time.Duration, err error) {
	m.modelLatency.WithLabelValues(string(stage)).Observe(d.Seconds())
	if err != nil {
		m.modelErrors.WithLabelValues(string(stage)).Inc()
	}
}

// ObserveOutcome records one processed image.
func (m *Metrics) ObserveOutcome(o pipeline.Outcome, d time.Duration) {
	m.outcomes.WithLabelValues(string(o.Reason)).Inc()
	m.imageLatency.Observe(d.Seconds())
	m.persons.Add(float64(len(o.Persons)))
}

// ImageBlurred counts an image the renderer modified.
func (m *Metrics) ImageBlurred() {
	m.blurred.Inc()
}

// HarmfulContent counts an image classified unsafe.
func (m *Metrics) HarmfulContent() {
	m.harmful.Inc()
}

// ObserveRequest counts one HTTP request.
func (m *Metrics) ObserveRequest(route string, status int) {
	m.requests.WithLabelValues(route, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
