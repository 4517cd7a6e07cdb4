// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpDurationBuckets       = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	generationDurationBuckets = []float64{.5, 1, 2, 5, 10, 20, 30, 60, 120}
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	GenerationRequests *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	WebhookEvents      *prometheus.CounterVec
	EventsPublished    *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propertyscope_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "propertyscope_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "route"}),
		GenerationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propertyscope_generation_requests_total",
			Help: "Text generation calls by analysis kind and outcome.",
		}, []string{"kind", "outcome"}),
		GenerationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "propertyscope_generation_duration_seconds",
			Help:    "Text generation latency by analysis kind.",
			Buckets: generationDurationBuckets,
		}, []string{"kind"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propertyscope_billing_webhook_events_total",
			Help: "Billing webhook deliveries by event type and outcome.",
		}, []string{"type", "outcome"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propertyscope_analysis_events_total",
			Help: "Analysis events handed to the queue by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.GenerationRequests,
		m.GenerationDuration,
		m.WebhookEvents,
		m.EventsPublished,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveGeneration records one generation call.
func (m *Metrics) ObserveGeneration(kind string, elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.GenerationRequests.WithLabelValues(kind, outcome).Inc()
	m.GenerationDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// Middleware counts requests by matched route so path parameters do not
// explode label cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, status).Inc()
		m.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
