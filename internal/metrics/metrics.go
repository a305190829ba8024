package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts handled requests.
	// Labels: method, route (gin full path), status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompt_manager_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prompt_manager_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// AuditEntriesTotal counts audit deliveries per sink.
	// Labels: sink (db/stream), status (success/error/dropped)
	AuditEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompt_manager_audit_entries_total",
			Help: "Audit entries delivered by sink and outcome",
		},
		[]string{"sink", "status"},
	)

	VersionsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompt_manager_versions_created_total",
			Help: "Prompt versions created, by cause (update/rollback)",
		},
		[]string{"cause"},
	)

	// ModelRunsTotal counts test runs. Labels: model, status (success/failed/timeout)
	ModelRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prompt_manager_model_runs_total",
			Help: "Prompt test runs by model and outcome",
		},
		[]string{"model", "status"},
	)

	ModelRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prompt_manager_model_run_duration_seconds",
			Help:    "Model latency observed by test runs",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model"},
	)
)

func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func RecordAudit(sink string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	AuditEntriesTotal.WithLabelValues(sink, status).Inc()
}

func RecordAuditDropped() {
	AuditEntriesTotal.WithLabelValues("dispatch", "dropped").Inc()
}

func RecordVersion(cause string) {
	VersionsCreatedTotal.WithLabelValues(cause).Inc()
}

func RecordModelRun(model, status string, elapsed time.Duration) {
	ModelRunsTotal.WithLabelValues(model, status).Inc()
	ModelRunDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
