package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the process-wide collectors. Everything registers on
// Registry rather than the global default so tests can build isolated sets.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Calculations     *prometheus.CounterVec
	CalculationError *prometheus.CounterVec

	DiscountRejections *prometheus.CounterVec

	JobRuns     *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caremarket",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "caremarket",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		Calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caremarket",
			Subsystem: "pricing",
			Name:      "calculations_total",
			Help:      "Monetary calculations performed, by kind.",
		}, []string{"kind"}),
		CalculationError: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caremarket",
			Subsystem: "pricing",
			Name:      "calculation_errors_total",
			Help:      "Rejected monetary calculations, by kind.",
		}, []string{"kind"}),
		DiscountRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caremarket",
			Subsystem: "discount",
			Name:      "rejections_total",
			Help:      "Discount codes rejected, by reason.",
		}, []string{"reason"}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "caremarket",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by job and outcome.",
		}, []string{"job", "outcome"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "caremarket",
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Scheduled job duration.",
			Buckets:   []float64{.05, .1, .5, 1, 5, 15, 60, 300},
		}, []string{"job"}),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.Calculations,
		m.CalculationError,
		m.DiscountRejections,
		m.JobRuns,
		m.JobDuration,
	)
	return m
}

func (m *Metrics) ObserveCalculation(kind string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.CalculationError.WithLabelValues(kind).Inc()
		return
	}
	m.Calculations.WithLabelValues(kind).Inc()
}
