/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package reqqueue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector collects metrics about queued and running operations.
// Counters are reported as deltas, so one collector may be shared by many queues.
type MetricsCollector interface {
	// AddQueued changes the number of operations waiting in queues.
	AddQueued(delta int)

	// AddRunning changes the number of operations being executed.
	AddRunning(delta int)

	// IncOperations increments the number of settled operations with the given result.
	IncOperations(result string)

	// ObserveWaitDuration observes how long an operation waited before being started.
	ObserveWaitDuration(d time.Duration)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents Prometheus metrics for request queues.
type PrometheusMetrics struct {
	QueuedAmount    prometheus.Gauge
	RunningAmount   prometheus.Gauge
	OperationsTotal *prometheus.CounterVec
	WaitDurations   prometheus.Histogram
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	return &PrometheusMetrics{
		QueuedAmount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "request_queue_queued_operations",
			Help:        "Number of operations waiting in request queues.",
			ConstLabels: opts.ConstLabels,
		}),
		RunningAmount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "request_queue_running_operations",
			Help:        "Number of operations being executed by request queues.",
			ConstLabels: opts.ConstLabels,
		}),
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "request_queue_operations_total",
			Help:        "Number of settled operations by result.",
			ConstLabels: opts.ConstLabels,
		}, []string{"result"}),
		WaitDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "request_queue_wait_duration_seconds",
			Help:        "Time operations spent in the queue before being started.",
			ConstLabels: opts.ConstLabels,
			Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.QueuedAmount, pm.RunningAmount, pm.OperationsTotal, pm.WaitDurations)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.QueuedAmount)
	prometheus.Unregister(pm.RunningAmount)
	prometheus.Unregister(pm.OperationsTotal)
	prometheus.Unregister(pm.WaitDurations)
}

// AddQueued changes the number of operations waiting in queues.
func (pm *PrometheusMetrics) AddQueued(delta int) {
	pm.QueuedAmount.Add(float64(delta))
}

// AddRunning changes the number of operations being executed.
func (pm *PrometheusMetrics) AddRunning(delta int) {
	pm.RunningAmount.Add(float64(delta))
}

// IncOperations increments the number of settled operations with the given result.
func (pm *PrometheusMetrics) IncOperations(result string) {
	pm.OperationsTotal.WithLabelValues(result).Inc()
}

// ObserveWaitDuration observes how long an operation waited before being started.
func (pm *PrometheusMetrics) ObserveWaitDuration(d time.Duration) {
	pm.WaitDurations.Observe(d.Seconds())
}

type disabledMetrics struct{}

func (disabledMetrics) AddQueued(int)                     {}
func (disabledMetrics) AddRunning(int)                    {}
func (disabledMetrics) IncOperations(string)              {}
func (disabledMetrics) ObserveWaitDuration(time.Duration) {}

var disabledMetricsCollector = disabledMetrics{}
