// Package stream serves the live camera feed as a multipart JPEG
// stream, the format <img> tags consume directly. Each client gets its
// own pacing loop over the shared frame buffer, so a slow client never
// holds up capture or other viewers.
package stream

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/skyops/go-dronedeck/internal/log"
	"github.com/skyops/go-dronedeck/internal/observe"
	"github.com/skyops/go-dronedeck/pkg/video"
)

// DefaultInterval paces frames to each client, matching the capture rate.
const DefaultInterval = time.Second / 30

const (
	contentType = "multipart/x-mixed-replace; boundary=frame"
	partHeader  = "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n"
)

// Broadcaster serves the latest buffered frame to any number of clients.
type Broadcaster struct {
	buffer *video.Buffer

	// Interval defaults to DefaultInterval when zero.
	Interval time.Duration

	metrics *observe.Metrics
}

// New creates a broadcaster reading from buffer.
func New(buffer *video.Buffer) *Broadcaster {
	return &Broadcaster{
		buffer:   buffer,
		Interval: DefaultInterval,
		metrics:  observe.Default(),
	}
}

// Handler returns the fiber handler for the video feed endpoint. ctx
// bounds every client stream; cancelling it ends them all.
func (b *Broadcaster) Handler(ctx context.Context) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, contentType)
		c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate")
		c.Set(fiber.HeaderConnection, "close")

		remote := c.IP()
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			b.serve(ctx, w, remote)
		})
		return nil
	}
}

// serve pushes frames to one client until it disconnects or ctx ends.
func (b *Broadcaster) serve(ctx context.Context, w *bufio.Writer, remote string) {
	b.metrics.StreamClients.Add(ctx, 1)
	defer b.metrics.StreamClients.Add(ctx, -1)
	log.Info("stream client connected", "remote", remote)
	defer log.Info("stream client disconnected", "remote", remote)

	interval := b.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, ok := b.buffer.Latest()
		if !ok {
			frame = video.PlaceholderFrame()
		}
		if len(frame.JPEG) == 0 {
			continue
		}

		if err := writePart(w, frame.JPEG); err != nil {
			// Client went away.
			return
		}
	}
}

func writePart(w *bufio.Writer, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, partHeader, len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	return w.Flush()
}
