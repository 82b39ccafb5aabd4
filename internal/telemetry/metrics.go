package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/wolfeidau/bundlecfg"
)

// Metrics holds the build and dev server instruments
type Metrics struct {
	// Build metrics
	BuildsTotal      metric.Int64Counter
	BuildErrorsTotal metric.Int64Counter
	BuildDuration    metric.Float64Histogram
	OutputBytes      metric.Int64Counter

	// Dev server metrics
	ReloadClients     metric.Int64UpDownCounter
	ReloadEventsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// Tracer returns the tracer used for build spans.
func Tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(instrumentationName)
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(instrumentationName)

	m := &Metrics{}

	m.BuildsTotal, _ = meter.Int64Counter(
		"bundlecfg.builds.total",
		metric.WithDescription("Total number of bundle builds"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"bundlecfg.builds.errors.total",
		metric.WithDescription("Total number of failed bundle builds"),
		metric.WithUnit("{error}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"bundlecfg.builds.duration",
		metric.WithDescription("Duration of bundle builds"),
		metric.WithUnit("ms"),
	)

	m.OutputBytes, _ = meter.Int64Counter(
		"bundlecfg.builds.output.bytes",
		metric.WithDescription("Bytes written to the output directory"),
		metric.WithUnit("By"),
	)

	m.ReloadClients, _ = meter.Int64UpDownCounter(
		"bundlecfg.devserver.reload_clients",
		metric.WithDescription("Number of pages connected to the reload stream"),
		metric.WithUnit("{client}"),
	)

	m.ReloadEventsTotal, _ = meter.Int64Counter(
		"bundlecfg.devserver.reload_events.total",
		metric.WithDescription("Total number of reload notifications sent"),
		metric.WithUnit("{event}"),
	)

	return m
}
