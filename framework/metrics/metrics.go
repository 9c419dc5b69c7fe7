// Package metrics exposes registry activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-fenix/framework/container"
)

// Collector holds the registry metrics. It implements container.Recorder.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	Registrations  *prometheus.CounterVec
	Resolutions    *prometheus.CounterVec
	Removals       *prometheus.CounterVec
	DisposeFailure prometheus.Counter
	BuildDuration  *prometheus.HistogramVec
}

var _ container.Recorder = (*Collector)(nil)

// NewCollector creates a collector with its own registry, so several can
// coexist in one process.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	registrations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Total number of registrations by kind",
		},
		[]string{"kind"},
	)

	resolutions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Total number of successful resolutions by the kind that served them",
		},
		[]string{"kind"},
	)

	removals := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "removals_total",
			Help:      "Total number of removed keys by removal path",
		},
		[]string{"path"},
	)

	disposeFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispose_failures_total",
			Help:      "Total number of dispose calls that panicked or returned an error",
		},
	)

	buildDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Builder run time in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	registry.MustRegister(
		registrations,
		resolutions,
		removals,
		disposeFailures,
		buildDuration,
		collectors.NewGoCollector(),
	)

	return &Collector{
		registry:       registry,
		Registrations:  registrations,
		Resolutions:    resolutions,
		Removals:       removals,
		DisposeFailure: disposeFailures,
		BuildDuration:  buildDuration,
	}
}

// Registered implements container.Recorder.
func (c *Collector) Registered(kind container.Kind) {
	c.Registrations.WithLabelValues(kind.String()).Inc()
}

// Resolved implements container.Recorder.
func (c *Collector) Resolved(kind container.Kind) {
	c.Resolutions.WithLabelValues(kind.String()).Inc()
}

// Built implements container.Recorder.
func (c *Collector) Built(kind container.Kind, d time.Duration) {
	c.BuildDuration.WithLabelValues(kind.String()).Observe(d.Seconds())
}

// Removed implements container.Recorder.
func (c *Collector) Removed(async bool) {
	path := "sync"
	if async {
		path = "async"
	}
	c.Removals.WithLabelValues(path).Inc()
}

// DisposeFailed implements container.Recorder.
func (c *Collector) DisposeFailed() {
	c.DisposeFailure.Inc()
}

// Registry returns the Prometheus registry for this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
