// Package observability wires the Prometheus registry and HTTP
// instrumentation.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	jobRuns         *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
}

// NewMetrics initialises the registry and base collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insider_http_requests_total",
		Help: "HTTP requests partitioned by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "insider_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insider_jobs_total",
		Help: "Background job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "insider_job_duration_seconds",
		Help:    "Background job duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	registry.MustRegister(requests, duration, jobRuns, jobDuration)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		jobRuns:         jobRuns,
		jobDuration:     jobDuration,
	}
}

// Handler returns the http.Handler serving /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
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

// TrackJob returns a tracker recording one background job run.
func (m *Metrics) TrackJob(job string) *JobTracker {
	return &JobTracker{metrics: m, job: job, start: time.Now()}
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// JobTracker instruments a single job run.
type JobTracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// End records duration and outcome, returning the error untouched.
func (t *JobTracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	t.metrics.jobRuns.WithLabelValues(t.job, status).Inc()
	t.metrics.jobDuration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
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
