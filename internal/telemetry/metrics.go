package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus observability primitives for the import
// pipeline.
type Metrics struct {
	exceptions      *prometheus.CounterVec
	events          *prometheus.CounterVec
	usageRecords    prometheus.Counter
	enumerationRuns *prometheus.CounterVec
	queueMessages   *prometheus.CounterVec
	tableWrites     *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
}

// NewMetrics registers and returns Prometheus metrics for telemetry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer registers the metrics against a specific
// registerer. Tests use a fresh registry to avoid duplicate registration.
func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	exceptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "importer_exceptions_total",
		Help: "Counts reported exceptions by component.",
	}, []string{"component"})

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "importer_events_total",
		Help: "Counts reported telemetry events by name.",
	}, []string{"event"})

	usageRecords := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "importer_usage_records_total",
		Help: "Counts usage records accumulated across all subscriptions.",
	})

	enumerationRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "importer_enumeration_runs_total",
		Help: "Counts enumeration runs by provider and status.",
	}, []string{"provider", "status"})

	queueMessages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "importer_queue_messages_total",
		Help: "Counts subscription queue messages by outcome.",
	}, []string{"outcome"})

	tableWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "importer_table_writes_total",
		Help: "Counts table writes by table and status.",
	}, []string{"table", "status"})

	processDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "importer_process_duration_seconds",
		Help:    "Per-subscription processing durations by billing type.",
		Buckets: prometheus.DefBuckets,
	}, []string{"billing_type"})

	reg.MustRegister(
		exceptions,
		events,
		usageRecords,
		enumerationRuns,
		queueMessages,
		tableWrites,
		processDuration,
	)

	return &Metrics{
		exceptions:      exceptions,
		events:          events,
		usageRecords:    usageRecords,
		enumerationRuns: enumerationRuns,
		queueMessages:   queueMessages,
		tableWrites:     tableWrites,
		processDuration: processDuration,
	}
}

// EnumerationRun records one enumerator pass outcome.
func (m *Metrics) EnumerationRun(provider, status string) {
	m.enumerationRuns.WithLabelValues(provider, status).Inc()
}

// QueueMessage records one consumed queue message outcome.
func (m *Metrics) QueueMessage(outcome string) {
	m.queueMessages.WithLabelValues(outcome).Inc()
}

// TableWrite records one table write attempt.
func (m *Metrics) TableWrite(table, status string) {
	m.tableWrites.WithLabelValues(table, status).Inc()
}

// ObserveProcessDuration records one subscription processing duration.
func (m *Metrics) ObserveProcessDuration(billingType string, seconds float64) {
	m.processDuration.WithLabelValues(billingType).Observe(seconds)
}
