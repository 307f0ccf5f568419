// Package metrics exposes Prometheus instrumentation for the server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "skycast"

// Collector holds the server's metric families. Each Collector owns its
// registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	WeatherLookupsTotal *prometheus.CounterVec
	FavoritesOpsTotal   *prometheus.CounterVec
}

// NewCollector creates a Collector registered on a fresh registry together
// with the Go runtime and process collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by route, method, and status",
			},
			[]string{"route", "method", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by route",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
			[]string{"route"},
		),

		WeatherLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weather_lookups_total",
				Help:      "Provider adapter lookups by query kind and outcome",
			},
			[]string{"kind", "outcome"},
		),

		FavoritesOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "favorites_operations_total",
				Help:      "Favorites store operations by type and result",
			},
			[]string{"op", "result"},
		),
	}
}

// RecordHTTPRequest observes one served request.
func (c *Collector) RecordHTTPRequest(route, method string, status int, elapsed time.Duration) {
	c.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// RecordWeatherLookup counts one adapter call; outcome is "ok" or an error kind.
func (c *Collector) RecordWeatherLookup(kind, outcome string) {
	if kind == "" {
		kind = "none"
	}
	c.WeatherLookupsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordFavoritesOp counts one favorites API operation.
func (c *Collector) RecordFavoritesOp(op, result string) {
	c.FavoritesOpsTotal.WithLabelValues(op, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry exposes the underlying registry (for tests and extra collectors).
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
