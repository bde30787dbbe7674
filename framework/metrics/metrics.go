// Package metrics exports container activity to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-dipend/framework/dependency"
	"github.com/km-arc/go-dipend/framework/errs"
)

const namespace = "dipend"

// Collector records registrations and resolutions. It satisfies
// container.Observer.
type Collector struct {
	registry *prometheus.Registry

	added      *prometheus.CounterVec
	resolved   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	registered prometheus.Gauge
}

// New creates a collector backed by its own registry, including the Go and
// process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		added: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dependencies_added_total",
			Help:      "Dependencies registered, by lifecycle.",
		}, []string{"lifecycle"}),
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Top-level dependency resolutions, by lifecycle and outcome.",
		}, []string{"lifecycle", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Time spent resolving a dependency, arguments included.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"lifecycle"}),
		registered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registrations",
			Help:      "Live registrations in the container.",
		}),
	}

	c.registry.MustRegister(
		c.added, c.resolved, c.duration, c.registered,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) DependencyAdded(_ string, l dependency.Lifecycle) {
	c.added.WithLabelValues(label(l)).Inc()
}

func (c *Collector) RegistrationsChanged(count int) {
	c.registered.Set(float64(count))
}

func (c *Collector) DependencyResolved(_ string, l dependency.Lifecycle, elapsed time.Duration, err error) {
	c.resolved.WithLabelValues(label(l), outcome(err)).Inc()
	c.duration.WithLabelValues(label(l)).Observe(elapsed.Seconds())
}

func label(l dependency.Lifecycle) string {
	if l == "" {
		return "none"
	}
	return string(l)
}

// outcome names the failure kind so dashboards can split cycles from misses.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrMissingDependency):
		return "missing"
	case errors.Is(err, errs.ErrCyclicDependencies):
		return "cyclic"
	case errors.Is(err, errs.ErrInvalidLifecycle):
		return "invalid_lifecycle"
	case errors.Is(err, errs.ErrCanNotConstructDependency):
		return "unconstructable"
	default:
		return "error"
	}
}
