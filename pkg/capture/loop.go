// Package capture runs the camera polling loop: pull raw pixels from the
// simulator at a fixed rate, process them, and publish the result to the
// shared frame buffer.
package capture

import (
	"context"
	"errors"
	"time"

	"github.com/skyops/go-dronedeck/internal/log"
	"github.com/skyops/go-dronedeck/internal/observe"
	"github.com/skyops/go-dronedeck/pkg/sim"
	"github.com/skyops/go-dronedeck/pkg/video"
)

// DefaultInterval is the capture cadence, matching the stream rate.
const DefaultInterval = time.Second / 30

// FrameProcessor converts raw sensor pixels into an encoded frame.
// *video.Processor is the production implementation.
type FrameProcessor interface {
	Process(pixels []byte, w, h int, tel *video.Telemetry) (*video.Frame, error)
}

// TelemetryFunc supplies the overlay state for the frame being processed.
type TelemetryFunc func() *video.Telemetry

// Loop polls one vision sensor and keeps the frame buffer current.
type Loop struct {
	source    sim.FrameSource
	camera    sim.Handle
	buffer    *video.Buffer
	processor FrameProcessor
	telemetry TelemetryFunc

	// Interval defaults to DefaultInterval when zero.
	Interval time.Duration

	metrics *observe.Metrics
}

// NewLoop wires a capture loop. telemetry may be nil to disable the overlay.
func NewLoop(source sim.FrameSource, camera sim.Handle, buffer *video.Buffer, processor FrameProcessor, telemetry TelemetryFunc) *Loop {
	return &Loop{
		source:    source,
		camera:    camera,
		buffer:    buffer,
		processor: processor,
		telemetry: telemetry,
		Interval:  DefaultInterval,
		metrics:   observe.Default(),
	}
}

// Run polls until ctx is cancelled. It always returns ctx.Err(); transient
// frame errors are logged and skipped, they never stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	log.Info("capture loop started", "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("capture loop stopped")
			return ctx.Err()
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	pixels, w, h, err := l.source.GetFrame(ctx, l.camera)
	if err != nil {
		l.metrics.FramesSkipped.Add(ctx, 1)
		if !errors.Is(err, sim.ErrNoFrame) {
			log.Debug("frame fetch failed", "error", err)
		}
		return
	}

	var tel *video.Telemetry
	if l.telemetry != nil {
		tel = l.telemetry()
	}

	frame, err := l.processor.Process(pixels, w, h, tel)
	if err != nil {
		l.metrics.FramesSkipped.Add(ctx, 1)
		log.Debug("frame processing failed", "error", err)
		return
	}

	// Do not publish a frame processed after shutdown began.
	if ctx.Err() != nil {
		return
	}
	l.buffer.Publish(frame)
	l.metrics.FramesCaptured.Add(ctx, 1)
}
