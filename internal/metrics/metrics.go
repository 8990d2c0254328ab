// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "anyprog"

// Outcome labels of solver calls.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Metrics records solver, search, job and heuristic activity. It satisfies
// constrained.Recorder.
type Metrics struct {
	SolverCalls    *prometheus.CounterVec
	SolverDuration *prometheus.HistogramVec
	SearchRestarts prometheus.Counter
	Jobs           *prometheus.CounterVec
	HeuristicRuns  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		SolverCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solver_calls_total",
			Help:      "Local solver invocations by method and outcome.",
		}, []string{"method", "outcome"}),
		SolverDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solver_duration_seconds",
			Help:      "Wall time of a local solver invocation.",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 4, 10),
		}, []string{"method"}),
		SearchRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_restarts_total",
			Help:      "Restart epochs run by adaptive searches.",
		}),
		Jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Optimization jobs by terminal status.",
		}, []string{"status"}),
		HeuristicRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heuristic_runs_total",
			Help:      "Assignment and TSP heuristic runs.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.SolverCalls, m.SolverDuration, m.SearchRestarts, m.Jobs, m.HeuristicRuns)
	return m
}

// SolverCall records one solver invocation.
func (m *Metrics) SolverCall(method string, ok bool, elapsed time.Duration) {
	outcome := OutcomeFailed
	if ok {
		outcome = OutcomeOK
	}
	m.SolverCalls.WithLabelValues(method, outcome).Inc()
	m.SolverDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// SearchRestart records one restart epoch.
func (m *Metrics) SearchRestart() {
	m.SearchRestarts.Inc()
}

// JobFinished records a job reaching a terminal status.
func (m *Metrics) JobFinished(status string) {
	m.Jobs.WithLabelValues(status).Inc()
}

// HeuristicRun records a run of the named heuristic.
func (m *Metrics) HeuristicRun(kind string) {
	m.HeuristicRuns.WithLabelValues(kind).Inc()
}
