// Package observe provides application-wide observability primitives for
// dronedeck: OpenTelemetry metrics plus the Prometheus exporter bridge that
// backs the /metrics endpoint.
//
// A package-level default [Metrics] instance is available via [Default];
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to
// avoid cross-test pollution.
package observe

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope name used for all dronedeck metrics.
const meterName = "github.com/skyops/go-dronedeck"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// Commands counts executed commands. Use with attribute:
	//   attribute.String("status", "success"|"error")
	Commands metric.Int64Counter

	// FramesCaptured counts frames pulled from the simulator and published.
	FramesCaptured metric.Int64Counter

	// FramesSkipped counts capture ticks with no frame available.
	FramesSkipped metric.Int64Counter

	// StreamClients tracks currently connected video stream consumers.
	StreamClients metric.Int64UpDownCounter

	// EventClients tracks currently connected websocket event consumers.
	EventClients metric.Int64UpDownCounter

	// TranscriptionDuration tracks speech-to-text latency.
	TranscriptionDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for the
// transcription path.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Commands, err = m.Int64Counter("dronedeck.commands",
		metric.WithDescription("Number of executed vehicle commands."),
	); err != nil {
		return nil, err
	}
	if met.FramesCaptured, err = m.Int64Counter("dronedeck.frames.captured",
		metric.WithDescription("Number of camera frames captured and published."),
	); err != nil {
		return nil, err
	}
	if met.FramesSkipped, err = m.Int64Counter("dronedeck.frames.skipped",
		metric.WithDescription("Number of capture ticks with no frame available."),
	); err != nil {
		return nil, err
	}
	if met.StreamClients, err = m.Int64UpDownCounter("dronedeck.stream.clients",
		metric.WithDescription("Currently connected video stream consumers."),
	); err != nil {
		return nil, err
	}
	if met.EventClients, err = m.Int64UpDownCounter("dronedeck.event.clients",
		metric.WithDescription("Currently connected websocket event consumers."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionDuration, err = m.Float64Histogram("dronedeck.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Default returns the shared Metrics instance built from the global meter
// provider. Instruments created before InitProvider runs record into a
// no-op provider, so call InitProvider first in main().
func Default() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			// Instrument creation only fails on invalid names; fall back
			// to no-op instruments so callers never nil-check.
			m, _ = NewMetrics(noop.NewMeterProvider())
		}
		defaultMetrics = m
	})
	return defaultMetrics
}
