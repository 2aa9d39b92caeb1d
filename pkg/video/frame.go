// Package video turns raw simulator pixels into JPEG frames for the
// browser: flip, channel reorder, telemetry overlay, encode. The latest
// encoded frame sits in a single-slot buffer shared with the stream layer.
package video

import "time"

// Frame is one encoded camera frame.
type Frame struct {
	JPEG       []byte
	Width      int
	Height     int
	CapturedAt time.Time
}
