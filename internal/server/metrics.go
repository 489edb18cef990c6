package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the API.
type Metrics struct {
	registry *prometheus.Registry

	RequestDuration  *prometheus.HistogramVec
	EvaluationsTotal *prometheus.CounterVec
	ScenarioShifts   prometheus.Histogram
	ScenarioRuns     prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shiftline_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"method", "status"},
		),

		EvaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shiftline_eligibility_evaluations_total",
				Help: "Shift eligibility evaluations by surface",
			},
			[]string{"surface"},
		),

		ScenarioShifts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shiftline_scenario_batch_shifts",
				Help:    "Shift count per scenario simulation batch",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 200},
			},
		),

		ScenarioRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "shiftline_scenario_runs_total",
				Help: "Scenario coverage simulations executed",
			},
		),
	}
	m.registry.MustRegister(m.RequestDuration, m.EvaluationsTotal, m.ScenarioShifts, m.ScenarioRuns)
	return m
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// middleware times every request by method and response status.
func (m *Metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, req)
		m.RequestDuration.WithLabelValues(req.Method, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}
