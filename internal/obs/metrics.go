package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP-level metrics shared by all endpoints.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Domain metrics for the ledger core.
var (
	postingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_postings_total",
			Help: "Posted journal entries by source document type.",
		},
		[]string{"source_type"},
	)

	postingFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_posting_failures_total",
			Help: "Rejected journal postings by reason.",
		},
		[]string{"reason"},
	)

	reportIntegrityFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_integrity_failures_total",
			Help: "Compiled reports withheld because a cross-check invariant failed.",
		},
		[]string{"report"},
	)
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		postingsTotal, postingFailures, reportIntegrityFailures,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CountPosting records a successfully posted journal entry.
func CountPosting(sourceType string) {
	postingsTotal.WithLabelValues(sourceType).Inc()
}

// CountPostingFailure records a rejected posting attempt.
func CountPostingFailure(reason string) {
	postingFailures.WithLabelValues(reason).Inc()
}

// CountReportIntegrityFailure records a report withheld by its cross-check.
func CountReportIntegrityFailure(report string) {
	reportIntegrityFailures.WithLabelValues(report).Inc()
}

// CanonicalPath collapses resource identifiers in a request path to keep
// metric label cardinality bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	for _, p := range []struct{ prefix, suffix, canon string }{
		{"/v1/accounts/", "/deactivate", "/v1/accounts/:code/deactivate"},
		{"/v1/accounts/", "/children", "/v1/accounts/:code/children"},
		{"/v1/accounts/", "", "/v1/accounts/:code"},
		{"/v1/parties/", "", "/v1/parties/:id"},
		{"/v1/batches/", "/allocate", "/v1/batches/:id/allocate"},
		{"/v1/batches/", "/lock", "/v1/batches/:id/lock"},
		{"/v1/batches/", "/quantity", "/v1/batches/:id/quantity"},
		{"/v1/batches/", "/charges", "/v1/batches/:id/charges"},
		{"/v1/batches/", "", "/v1/batches/:id"},
		{"/v1/journal/entries/", "/reverse", "/v1/journal/entries/:id/reverse"},
		{"/v1/journal/entries/", "", "/v1/journal/entries/:id"},
	} {
		rest, ok := strings.CutPrefix(path, p.prefix)
		if !ok || rest == "" {
			continue
		}
		if p.suffix == "" {
			if !strings.Contains(rest, "/") {
				return p.canon
			}
			continue
		}
		if id, ok := strings.CutSuffix(rest, p.suffix); ok && id != "" && !strings.Contains(id, "/") {
			return p.canon
		}
	}
	return path
}

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for metric labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
