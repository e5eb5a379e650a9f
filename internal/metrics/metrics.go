// Package metrics defines the Prometheus metrics of the coverage service.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the service metrics. A nil *Collector is valid and
// records nothing, which keeps tests and the CLI free of registry setup.
type Collector struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	CoverageRuns      *prometheus.CounterVec
	CoverageDurations *prometheus.HistogramVec
	CoverageCells     prometheus.Histogram
	CacheRequests     *prometheus.CounterVec

	JobsTotal  *prometheus.CounterVec
	JobsActive prometheus.Gauge
}

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil. Registering twice against the same registry returns the
// collectors already there.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	c := &Collector{gatherer: gatherer}

	var err error
	if c.HTTPRequests, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocover_http_requests_total",
		Help: "Handled HTTP requests by method, route and status code.",
	}, []string{"method", "route", "code"}), "geocover_http_requests_total"); err != nil {
		return nil, err
	}
	if c.HTTPDurations, err = registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geocover_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method", "route"}), "geocover_http_request_duration_seconds"); err != nil {
		return nil, err
	}
	if c.CoverageRuns, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocover_coverage_runs_total",
		Help: "Coverage computations by strategy, mode and outcome.",
	}, []string{"strategy", "mode", "outcome"}), "geocover_coverage_runs_total"); err != nil {
		return nil, err
	}
	if c.CoverageDurations, err = registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geocover_coverage_duration_seconds",
		Help:    "Coverage computation time in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"strategy"}), "geocover_coverage_duration_seconds"); err != nil {
		return nil, err
	}
	if c.CoverageCells, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geocover_coverage_cells",
		Help:    "Number of cells in computed coverage sets.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	}), "geocover_coverage_cells"); err != nil {
		return nil, err
	}
	if c.CacheRequests, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocover_cache_requests_total",
		Help: "Coverage cache lookups by result (hit, miss, error).",
	}, []string{"result"}), "geocover_cache_requests_total"); err != nil {
		return nil, err
	}
	if c.JobsTotal, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocover_jobs_total",
		Help: "Finished coverage jobs by final status.",
	}, []string{"status"}), "geocover_jobs_total"); err != nil {
		return nil, err
	}
	if c.JobsActive, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geocover_jobs_active",
		Help: "Coverage jobs currently pending or running.",
	}), "geocover_jobs_active"); err != nil {
		return nil, err
	}
	return c, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveHTTP records one handled request.
func (c *Collector) ObserveHTTP(method, route string, code int, d time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.HTTPDurations.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveCoverage records one coverage computation. outcome is "ok",
// "empty", "cancelled" or "error".
func (c *Collector) ObserveCoverage(strategy, mode, outcome string, cells int, d time.Duration) {
	if c == nil {
		return
	}
	c.CoverageRuns.WithLabelValues(strategy, mode, outcome).Inc()
	c.CoverageDurations.WithLabelValues(strategy).Observe(d.Seconds())
	if outcome == "ok" {
		c.CoverageCells.Observe(float64(cells))
	}
}

// ObserveCache records a cache lookup result: "hit", "miss" or "error".
func (c *Collector) ObserveCache(result string) {
	if c == nil {
		return
	}
	c.CacheRequests.WithLabelValues(result).Inc()
}

// JobStarted and JobFinished track the job gauge and final-status counter.
func (c *Collector) JobStarted() {
	if c == nil {
		return
	}
	c.JobsActive.Inc()
}

func (c *Collector) JobFinished(status string) {
	if c == nil {
		return
	}
	c.JobsActive.Dec()
	c.JobsTotal.WithLabelValues(status).Inc()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
