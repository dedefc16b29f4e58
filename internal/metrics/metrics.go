// Package metrics holds the Prometheus collectors for store calls and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/starford/acadworld/internal/apperr"
)

const namespace = "acadworld"

// Collector owns a private registry so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	StoreOps      *prometheus.CounterVec
	StoreDuration *prometheus.HistogramVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	Writes        *prometheus.CounterVec
}

// New builds a collector and registers the Go runtime collectors with it.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		StoreOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Store operations by store, operation and outcome.",
			},
			[]string{"store", "operation", "outcome"},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Store operation latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"store", "operation"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "writes_total",
				Help:      "Note and review writes by kind and status.",
			},
			[]string{"kind", "status"},
		),
	}
	c.registry.MustRegister(
		c.StoreOps,
		c.StoreDuration,
		c.HTTPRequests,
		c.HTTPDuration,
		c.Writes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveStore records one store call. A nil collector is a no-op.
func (c *Collector) ObserveStore(store, op string, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	c.StoreOps.WithLabelValues(store, op, Outcome(err)).Inc()
	c.StoreDuration.WithLabelValues(store, op).Observe(elapsed.Seconds())
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveWrite counts a note or review write by its status label.
func (c *Collector) ObserveWrite(kind, status string) {
	if c == nil {
		return
	}
	c.Writes.WithLabelValues(kind, status).Inc()
}

// Outcome maps an error to a low-cardinality label.
func Outcome(err error) string {
	switch apperr.KindOf(err) {
	case nil:
		return "ok"
	case apperr.ErrNotFound:
		return "not_found"
	case apperr.ErrInvalid:
		return "invalid"
	default:
		return "unavailable"
	}
}
