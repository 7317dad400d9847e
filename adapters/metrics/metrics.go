// Package metrics provides Prometheus metrics collection for imgquota.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "imgquota"

// Consume outcomes.
const (
	OutcomeAdmitted = "admitted"
	OutcomeDenied   = "denied"
	OutcomeError    = "error"
)

// Collector holds all Prometheus metrics for imgquota.
type Collector struct {
	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Auth metrics
	AuthFailures *prometheus.CounterVec

	// Enforcement metrics
	ConsumeTotal    *prometheus.CounterVec
	ConsumeDuration *prometheus.HistogramVec
	PartialFailures prometheus.Counter
	StoreErrors     *prometheus.CounterVec
	ConsumedUnits   *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a collector registered with the default Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),
		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_failures_total",
				Help:      "Total number of service key authentication failures",
			},
			[]string{"reason"},
		),
		ConsumeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consume_total",
				Help:      "Total number of consume decisions by plan and outcome",
			},
			[]string{"plan_id", "outcome"},
		),
		ConsumeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "consume_duration_seconds",
				Help:      "Time to reach a consume decision in seconds",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"strategy"},
		),
		PartialFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "partial_failures_total",
				Help:      "Admit decisions whose ledger write failed",
			},
		),
		StoreErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Ledger errors by operation",
			},
			[]string{"op"},
		),
		ConsumedUnits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consumed_units_total",
				Help:      "Admitted quantity by plan",
			},
			[]string{"plan_id"},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// ObserveConsume records one consume decision. A nil collector is a no-op.
func (c *Collector) ObserveConsume(planID, strategy, outcome string, quantity int64, d time.Duration) {
	if c == nil {
		return
	}
	c.ConsumeTotal.WithLabelValues(planID, outcome).Inc()
	c.ConsumeDuration.WithLabelValues(strategy).Observe(d.Seconds())
	if outcome == OutcomeAdmitted {
		c.ConsumedUnits.WithLabelValues(planID).Add(float64(quantity))
	}
}

// ObserveStoreError counts a ledger failure for op.
func (c *Collector) ObserveStoreError(op string) {
	if c == nil {
		return
	}
	c.StoreErrors.WithLabelValues(op).Inc()
}

// ObservePartialFailure counts an admit whose write failed.
func (c *Collector) ObservePartialFailure() {
	if c == nil {
		return
	}
	c.PartialFailures.Inc()
}

// ObserveRequest records one finished HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	code := strconv.Itoa(status)
	c.RequestsTotal.WithLabelValues(method, route, code).Inc()
	c.RequestDuration.WithLabelValues(method, route, code).Observe(d.Seconds())
}

// ObserveReload records a config reload attempt.
func (c *Collector) ObserveReload(err error, at time.Time) {
	if c == nil {
		return
	}
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.Set(float64(at.Unix()))
}
