// Package metrics exposes Prometheus collectors for HTTP traffic and the mess
// workflow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the application-specific Prometheus collectors.
var Registry = prometheus.NewRegistry()

var (
	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mess",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mess",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mess",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mess",
			Subsystem: "identity",
			Name:      "registrations_total",
			Help:      "Accounts created, by role.",
		},
		[]string{"role"},
	)

	ledgerRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mess",
			Subsystem: "ledger",
			Name:      "rows_written_total",
			Help:      "Mess entries written, by source.",
		},
		[]string{"source"},
	)

	seedFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mess",
			Subsystem: "ledger",
			Name:      "seed_failures_total",
			Help:      "Registrations whose ledger seeding failed.",
		},
	)

	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mess",
			Subsystem: "requests",
			Name:      "transitions_total",
			Help:      "Mess-off request transitions, by resulting status.",
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpInFlight,
		httpRequests,
		httpDuration,
		registrations,
		ledgerRows,
		seedFailures,
		requests,
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one completed request.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// InFlight tracks a request in progress; call the returned func when done.
func InFlight() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// RecordRegistration counts a created account.
func RecordRegistration(role string) {
	registrations.WithLabelValues(role).Inc()
}

// RecordLedgerRows counts mess entries written by seeding, approval or manual toggles.
func RecordLedgerRows(source string, n int) {
	if n > 0 {
		ledgerRows.WithLabelValues(source).Add(float64(n))
	}
}

// RecordSeedFailure counts a registration left without ledger rows.
func RecordSeedFailure() {
	seedFailures.Inc()
}

// RecordRequestTransition counts a request entering status.
func RecordRequestTransition(status string) {
	requests.WithLabelValues(status).Inc()
}
