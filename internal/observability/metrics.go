// Package observability exposes Prometheus metrics for the HTTP surface and
// the dataset pipeline.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adparams_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"},
	)
	Latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adparams_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "adparams_http_in_flight",
		Help: "In-flight HTTP requests",
	})

	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adparams_uploads_total",
			Help: "Validated uploads by schema and outcome",
		}, []string{"schema", "outcome"},
	)
	ValidationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adparams_validation_errors_total",
			Help: "Validation errors by kind",
		}, []string{"kind"},
	)
	UploadRows = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "adparams_upload_rows",
		Help:    "Rows per validated upload",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	})
	DatasetsStored = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "adparams_datasets_stored",
		Help: "Datasets currently held in memory",
	})
	UploadsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "adparams_uploads_in_flight",
		Help: "Uploads holding a processing slot",
	})
	ExportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "adparams_exports_total",
		Help: "CSV exports written",
	})
	DownloadRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adparams_download_requests_total",
			Help: "Download request payloads built by level",
		}, []string{"level"},
	)
	DroppedFilterRules = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adparams_dropped_filter_rules_total",
			Help: "Filters left out of download requests because their column has no external mapping",
		}, []string{"column"},
	)
	AuditFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "adparams_audit_failures_total",
		Help: "Audit entries that could not be stored",
	})
)

func init() {
	prometheus.MustRegister(
		RequestsTotal, Latency, InFlight,
		UploadsTotal, ValidationErrors, UploadRows, DatasetsStored, UploadsInFlight,
		ExportsTotal, DownloadRequestsTotal, DroppedFilterRules, AuditFailures,
	)
}

// MetricsHandler serves the default registry.
func MetricsHandler() http.Handler { return promhttp.Handler() }

type rec struct {
	http.ResponseWriter
	code int
}

func (r *rec) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (r *rec) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Measure records latency and status per chi route pattern.
func Measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		rr := &rec{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rr, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		Latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(route, strconv.Itoa(rr.code)).Inc()
	})
}
