package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	pagesIngestedTotal  *prometheus.CounterVec
	mappingBuildsTotal  *prometheus.CounterVec
	mappingCoverage     *prometheus.GaugeVec
	mappingUnresolved   *prometheus.GaugeVec
	mappingConflicts    *prometheus.GaugeVec
	rateLimitedRequests *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "akey",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "akey",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "akey",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	pagesIngestedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "akey",
			Subsystem: "ingest",
			Name:      "pages_total",
			Help:      "Total pages accepted by the ingest endpoint.",
		},
		[]string{"service"},
	)
	mappingBuildsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "akey",
			Subsystem: "mapping",
			Name:      "builds_total",
			Help:      "Total mapping builds by outcome.",
		},
		[]string{"service", "status"},
	)
	mappingCoverage := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "akey",
			Subsystem: "mapping",
			Name:      "coverage_ratio",
			Help:      "Resolved share of parsed records in the latest build.",
		},
		[]string{"service"},
	)
	mappingUnresolved := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "akey",
			Subsystem: "mapping",
			Name:      "unresolved_records",
			Help:      "Unresolved records in the latest build.",
		},
		[]string{"service"},
	)
	mappingConflicts := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "akey",
			Subsystem: "mapping",
			Name:      "conflicts",
			Help:      "Join-table conflicts in the latest build.",
		},
		[]string{"service"},
	)
	rateLimitedRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "akey",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the ingest rate limiter.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		pagesIngestedTotal,
		mappingBuildsTotal,
		mappingCoverage,
		mappingUnresolved,
		mappingConflicts,
		rateLimitedRequests,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		pagesIngestedTotal:  pagesIngestedTotal,
		mappingBuildsTotal:  mappingBuildsTotal,
		mappingCoverage:     mappingCoverage,
		mappingUnresolved:   mappingUnresolved,
		mappingConflicts:    mappingConflicts,
		rateLimitedRequests: rateLimitedRequests,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/pages/"):
		return "/v1/pages/{page_id}"
	case strings.HasPrefix(path, "/v1/answers/"):
		return "/v1/answers/{uid}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordPageIngested(service string) {
	m.pagesIngestedTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordMappingBuild(service string, err error, coverage float64, unresolved, conflicts int) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.mappingBuildsTotal.WithLabelValues(service, status).Inc()
	if err != nil {
		return
	}
	m.mappingCoverage.WithLabelValues(service).Set(coverage)
	m.mappingUnresolved.WithLabelValues(service).Set(float64(unresolved))
	m.mappingConflicts.WithLabelValues(service).Set(float64(conflicts))
}

func (m *HTTPServerMetrics) RecordRateLimited(service string) {
	m.rateLimitedRequests.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
