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

const namespace = "scholarstream"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	applicationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "applications_created_total",
			Help:      "Applications successfully submitted.",
		},
	)

	applicationTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "application_transitions_total",
			Help:      "Application status transitions by target status.",
		},
		[]string{"to"},
	)

	paymentsConfirmed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_confirmed_total",
			Help:      "Application fee payments confirmed, by confirmation source.",
		},
		[]string{"source"},
	)

	checkoutSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_total",
			Help:      "Checkout session requests by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		applicationsCreated,
		applicationTransitions,
		paymentsConfirmed,
		checkoutSessions,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request count, latency and in-flight requests.
// Routes are labelled by their pattern so path parameters do not explode cardinality.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "/metrics" {
			c.Next()
			return
		}
		if route == "" {
			route = "unmatched"
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		method := c.Request.Method
		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordApplicationCreated counts a submitted application
func RecordApplicationCreated() {
	applicationsCreated.Inc()
}

// RecordTransition counts a status change into status
func RecordTransition(status string) {
	applicationTransitions.WithLabelValues(status).Inc()
}

// RecordPaymentConfirmed counts a confirmed payment by source (webhook, redirect)
func RecordPaymentConfirmed(source string) {
	paymentsConfirmed.WithLabelValues(source).Inc()
}

// RecordCheckoutSession counts a checkout attempt by result (created, reused, failed)
func RecordCheckoutSession(result string) {
	checkoutSessions.WithLabelValues(result).Inc()
}
