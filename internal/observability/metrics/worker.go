package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec
	rowsParsed      *prometheus.HistogramVec
	suspiciousLines *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "akey",
			Subsystem: "worker",
			Name:      "page_process_total",
			Help:      "Total processed pages by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "akey",
			Subsystem: "worker",
			Name:      "page_process_duration_seconds",
			Help:      "Page processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "akey",
			Subsystem: "worker",
			Name:      "page_process_in_flight",
			Help:      "Number of in-flight page processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "akey",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between page upload and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	rowsParsed := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "akey",
			Subsystem: "worker",
			Name:      "rows_parsed",
			Help:      "Distribution of answer rows parsed per page.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"service"},
	)
	suspiciousLines := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "akey",
			Subsystem: "worker",
			Name:      "suspicious_lines",
			Help:      "Distribution of suspicious lines emitted per page.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag, rowsParsed, suspiciousLines)

	return &WorkerMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		queueLag:        queueLag,
		rowsParsed:      rowsParsed,
		suspiciousLines: suspiciousLines,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartPage() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishPage(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) ObservePageOutcome(service string, rows, suspicious int) {
	m.rowsParsed.WithLabelValues(service).Observe(float64(rows))
	m.suspiciousLines.WithLabelValues(service).Observe(float64(suspicious))
}
