// Package metrics provides Prometheus metrics collection for bazaargate.
package metrics

import (
	"strings"
	"time"

	"github.com/artpar/bazaargate/domain/quota"
	"github.com/artpar/bazaargate/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bazaargate"

// Collector holds all Prometheus metrics for bazaargate.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Quota metrics
	QuotaDecisions *prometheus.CounterVec

	// Store metrics
	StoreErrors            *prometheus.CounterVec
	SnapshotReadsCoalesced prometheus.Counter

	// Reset scheduler metrics
	ResetSweeps      *prometheus.CounterVec
	ResetKeysZeroed  prometheus.Counter
	ResetLastSuccess prometheus.Gauge

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a new metrics collector registered with the default registry.
func New() *Collector {
	return newCollector(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return newCollector(promauto.With(reg))
}

func newCollector(factory promauto.Factory) *Collector {
	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),

		QuotaDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quota_decisions_total",
				Help:      "Quota consume decisions by outcome",
			},
			[]string{"outcome"},
		),

		StoreErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Store failures by operation",
			},
			[]string{"operation"},
		),
		SnapshotReadsCoalesced: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_reads_coalesced_total",
				Help:      "Latest-snapshot reads answered by an in-flight read of the same product",
			},
		),

		ResetSweeps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reset_sweeps_total",
				Help:      "Quota reset sweeps by result",
			},
			[]string{"result"},
		),
		ResetKeysZeroed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reset_keys_zeroed_total",
				Help:      "Total number of usage counters zeroed by reset sweeps",
			},
		),
		ResetLastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "reset_last_success_timestamp",
				Help:      "Unix timestamp of the last successful reset sweep",
			},
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

const bazaarPrefix = "/api/skyblock/bazaar/"

// NormalizePath reduces cardinality by replacing path parameters with their names.
// e.g., /api/skyblock/bazaar/WHEAT/sellPrice/10 -> /api/skyblock/bazaar/{productID}/{field}/{limit}
// Paths outside the known routes collapse to "other".
func NormalizePath(path string) string {
	switch path {
	case "/health", "/health/live", "/health/ready", "/version", "/metrics":
		return path
	}
	if !strings.HasPrefix(path, bazaarPrefix) {
		return "other"
	}

	rest := strings.TrimSuffix(strings.TrimPrefix(path, bazaarPrefix), "/")
	switch strings.Count(rest, "/") {
	case 0:
		return bazaarPrefix + "{productID}"
	case 1:
		return bazaarPrefix + "{productID}/{field}"
	case 2:
		return bazaarPrefix + "{productID}/{field}/{limit}"
	}
	return "other"
}

// QuotaDecision counts one consume outcome.
func (c *Collector) QuotaDecision(outcome quota.Outcome) {
	c.QuotaDecisions.WithLabelValues(outcome.String()).Inc()
}

// StoreError counts one failed store operation.
func (c *Collector) StoreError(operation string) {
	c.StoreErrors.WithLabelValues(operation).Inc()
}

// SnapshotReadCoalesced counts a latest read served by another caller's query.
func (c *Collector) SnapshotReadCoalesced() {
	c.SnapshotReadsCoalesced.Inc()
}

// ResetSweep records the result of one reset sweep.
func (c *Collector) ResetSweep(zeroed int64, err error, at time.Time) {
	if err != nil {
		c.ResetSweeps.WithLabelValues("error").Inc()
		return
	}
	c.ResetSweeps.WithLabelValues("ok").Inc()
	c.ResetKeysZeroed.Add(float64(zeroed))
	c.ResetLastSuccess.Set(float64(at.Unix()))
}

// ConfigReload records one configuration reload attempt.
func (c *Collector) ConfigReload(err error, at time.Time) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.Set(float64(at.Unix()))
}

// Ensure interface compliance.
var _ ports.Metrics = (*Collector)(nil)
