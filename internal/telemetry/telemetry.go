// Package telemetry is the reporting channel for the import pipeline.
// Failures never halt a batch unit; they are visible to operators only
// through this sink.
package telemetry

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the telemetry sink via Fx.
var Module = fx.Options(
	fx.Provide(NewMetrics),
	fx.Provide(NewSink),
	fx.Invoke(RegisterInstrumentation),
)

// Sink receives exception and event reports from every processing unit.
type Sink interface {
	// ReportException records a failure with optional context properties.
	ReportException(ctx context.Context, err error, props map[string]string)

	// ReportEvent records a named event with properties and numeric metrics.
	ReportEvent(ctx context.Context, name string, props map[string]string, metrics map[string]float64)
}

type sink struct {
	log     *zap.Logger
	metrics *Metrics
}

// NewSink builds the production sink backed by zap and Prometheus.
func NewSink(log *zap.Logger, metrics *Metrics) Sink {
	return &sink{
		log:     log.Named("telemetry"),
		metrics: metrics,
	}
}

func (s *sink) ReportException(_ context.Context, err error, props map[string]string) {
	fields := make([]zap.Field, 0, len(props)+1)
	fields = append(fields, zap.Error(err))
	component := "unknown"
	for k, v := range props {
		if k == "component" {
			component = v
		}
		fields = append(fields, zap.String(k, v))
	}
	s.log.Error("exception reported", fields...)
	s.metrics.exceptions.WithLabelValues(component).Inc()
}

func (s *sink) ReportEvent(_ context.Context, name string, props map[string]string, metrics map[string]float64) {
	fields := make([]zap.Field, 0, len(props)+len(metrics)+1)
	fields = append(fields, zap.String("event", name))
	for k, v := range props {
		fields = append(fields, zap.String(k, v))
	}
	for k, v := range metrics {
		fields = append(fields, zap.Float64(k, v))
	}
	s.log.Info("event reported", fields...)
	s.metrics.events.WithLabelValues(name).Inc()

	if count, ok := metrics["NumberOfUsageRecords"]; ok {
		s.metrics.usageRecords.Add(count)
	}
}
