// Package metrics wraps prometheus/client_golang the way the teacher's
// MetricsService does: one registry, one promhttp handler, and a small
// set of named Observe methods so callers never touch a *prometheus.*
// collector directly.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics encapsulates every Prometheus collector this service exposes:
// HTTP access metrics plus the scheduling core's own phase timings
// (spec.md 5's named bottlenecks - CSP search, GA generations, fitness
// cache effectiveness).
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	httpDuration *prometheus.HistogramVec
	httpTotal    *prometheus.CounterVec

	generateDuration *prometheus.HistogramVec
	solverDuration   prometheus.Histogram
	gaGenerations    prometheus.Histogram
	gaFitnessCache   *prometheus.CounterVec
	postValidateOut  *prometheus.CounterVec
}

// New registers every collector against a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	httpTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	generateDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_generate_duration_seconds",
		Help:    "Duration of a full Engine.Generate call",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"outcome"})

	solverDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_csp_solve_duration_seconds",
		Help:    "Duration of the CSP Solver phase",
		Buckets: prometheus.DefBuckets,
	})

	gaGenerations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_ga_generations_run",
		Help:    "Number of GA generations run before stopping",
		Buckets: []float64{1, 5, 10, 20, 30, 50, 75, 100},
	})

	gaFitnessCache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_ga_fitness_cache_total",
		Help: "GA fitness cache lookups by outcome (hit/miss)",
	}, []string{"outcome"})

	postValidateOut := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_postvalidate_total",
		Help: "Post-Validator verdicts by status (pass/fail)",
	}, []string{"status"})

	registry.MustRegister(httpDuration, httpTotal, generateDuration, solverDuration, gaGenerations, gaFitnessCache, postValidateOut)

	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		httpDuration:     httpDuration,
		httpTotal:        httpTotal,
		generateDuration: generateDuration,
		solverDuration:   solverDuration,
		gaGenerations:    gaGenerations,
		gaFitnessCache:   gaFitnessCache,
		postValidateOut:  postValidateOut,
	}
}

// Handler exposes the Prometheus exposition endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := statusLabel(status)
	m.httpDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.httpTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveGenerate records one Engine.Generate call's wall-clock time,
// labelled by outcome ("ok", "infeasible", "error").
func (m *Metrics) ObserveGenerate(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.generateDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveSolve records one CSP Solver call's wall-clock time.
func (m *Metrics) ObserveSolve(duration time.Duration) {
	if m == nil {
		return
	}
	m.solverDuration.Observe(duration.Seconds())
}

// ObserveGAGenerations records how many generations one Evolve call ran.
func (m *Metrics) ObserveGAGenerations(n int) {
	if m == nil {
		return
	}
	m.gaGenerations.Observe(float64(n))
}

// ObserveFitnessCacheLookup records one GA fitness cache hit or miss.
func (m *Metrics) ObserveFitnessCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.gaFitnessCache.WithLabelValues("hit").Inc()
		return
	}
	m.gaFitnessCache.WithLabelValues("miss").Inc()
}

// ObservePostValidate records one Post-Validator verdict.
func (m *Metrics) ObservePostValidate(passed bool) {
	if m == nil {
		return
	}
	if passed {
		m.postValidateOut.WithLabelValues("pass").Inc()
		return
	}
	m.postValidateOut.WithLabelValues("fail").Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
