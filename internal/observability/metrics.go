package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/simplesdash/simplesdash/internal/analytics"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reportsTotal    *prometheus.CounterVec
	reportDuration  *prometheus.HistogramVec
	skippedInputs   *prometheus.CounterVec
	historyFilled   prometheus.Counter
}

// Jenis input yang dilewati saat membangun laporan.
const (
	SkippedInvalidFile       = "invalid_file"
	SkippedDuplicate         = "duplicate"
	SkippedUnparseablePeriod = "unparseable_period"
	SkippedUnparseableLabel  = "unparseable_label"
)

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simplesdash_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simplesdash_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	reports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simplesdash_reports_total",
		Help: "Report builds by cache source (memo, redis, shared, build).",
	}, []string{"source"})
	reportDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simplesdash_report_duration_seconds",
		Help:    "Report build latency by cache source.",
		Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"source"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simplesdash_report_skipped_inputs_total",
		Help: "Inputs left out of report aggregation by kind.",
	}, []string{"kind"})
	history := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simplesdash_report_history_filled_total",
		Help: "Months filled from the external revenue history.",
	})
	registry.MustRegister(requests, duration, reports, reportDuration, skipped, history)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		reportsTotal:    reports,
		reportDuration:  reportDuration,
		skippedInputs:   skipped,
		historyFilled:   history,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveReport mencatat sumber dan durasi pembuatan laporan.
func (m *Metrics) ObserveReport(source string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.reportsTotal.WithLabelValues(source).Inc()
	m.reportDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveDiagnostics menghitung input yang dilewati.
func (m *Metrics) ObserveDiagnostics(d analytics.Diagnostics) {
	if m == nil {
		return
	}
	m.addSkipped(SkippedInvalidFile, len(d.InvalidFiles))
	m.addSkipped(SkippedDuplicate, len(d.Duplicates))
	m.addSkipped(SkippedUnparseablePeriod, len(d.UnparseablePeriods))
	m.addSkipped(SkippedUnparseableLabel, len(d.UnparseableLabels))
	if n := len(d.HistoryFilled); n > 0 {
		m.historyFilled.Add(float64(n))
	}
}

func (m *Metrics) addSkipped(kind string, n int) {
	if n > 0 {
		m.skippedInputs.WithLabelValues(kind).Add(float64(n))
	}
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
