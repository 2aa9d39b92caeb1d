package video

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"

	"github.com/skyops/go-dronedeck/pkg/sim"
)

// DefaultJPEGQuality is the encoder quality used for streamed frames.
const DefaultJPEGQuality = 85

// Telemetry is the overlay state drawn onto each frame. LastCommand is
// only drawn when non-empty; callers decide how recent is recent enough.
type Telemetry struct {
	Timestamp    time.Time
	Connected    bool
	Position     sim.Vector3
	HasPosition  bool
	CommandCount int64
	LastCommand  string
}

// Processor converts raw simulator pixels into display-ready JPEG frames.
// Simulator vision sensors deliver RGB pixels bottom row first, so every
// frame is flipped vertically and reordered to BGR before drawing.
type Processor struct {
	Quality int
	Overlay bool
}

// NewProcessor returns a processor with the default JPEG quality and the
// telemetry overlay enabled.
func NewProcessor() *Processor {
	return &Processor{Quality: DefaultJPEGQuality, Overlay: true}
}

var (
	overlayGreen = color.RGBA{0, 255, 0, 0}
	overlayWhite = color.RGBA{255, 255, 255, 0}
	overlayRed   = color.RGBA{0, 0, 255, 0} // BGR order after CvtColor
)

// Process encodes one raw frame. pixels must hold w*h*3 bytes of RGB
// data, bottom row first.
func (p *Processor) Process(pixels []byte, w, h int, tel *Telemetry) (*Frame, error) {
	if len(pixels) != w*h*3 {
		return nil, fmt.Errorf("frame size mismatch: got %d bytes for %dx%d", len(pixels), w, h)
	}

	src, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, pixels)
	if err != nil {
		return nil, fmt.Errorf("wrap pixels: %w", err)
	}
	defer src.Close()

	img := gocv.NewMat()
	defer img.Close()
	gocv.Flip(src, &img, 0)

	// The RGB<->BGR swap is symmetric, so the BGR2RGB code works both ways.
	gocv.CvtColor(img, &img, gocv.ColorBGRToRGB)

	if p.Overlay && tel != nil {
		p.drawOverlay(&img, tel)
	}

	quality := p.Quality
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	jpeg := make([]byte, len(buf.GetBytes()))
	copy(jpeg, buf.GetBytes())

	ts := tel.timestamp()
	return &Frame{JPEG: jpeg, Width: w, Height: h, CapturedAt: ts}, nil
}

func (t *Telemetry) timestamp() time.Time {
	if t == nil || t.Timestamp.IsZero() {
		return time.Now()
	}
	return t.Timestamp
}

func (p *Processor) drawOverlay(img *gocv.Mat, tel *Telemetry) {
	font := gocv.FontHersheySimplex

	gocv.PutText(img, tel.timestamp().Format("15:04:05"),
		image.Pt(10, 25), font, 0.6, overlayGreen, 2)

	status, statusColor := "DISCONNECTED", overlayRed
	if tel.Connected {
		status, statusColor = "CONNECTED", overlayGreen
	}
	gocv.PutText(img, "Drone: "+status,
		image.Pt(10, 50), font, 0.5, statusColor, 1)

	if tel.HasPosition {
		pos := fmt.Sprintf("Pos: (%.2f, %.2f, %.2f)", tel.Position.X, tel.Position.Y, tel.Position.Z)
		gocv.PutText(img, pos, image.Pt(10, 72), font, 0.5, overlayWhite, 1)
	}

	gocv.PutText(img, fmt.Sprintf("Commands: %d", tel.CommandCount),
		image.Pt(10, 94), font, 0.5, overlayWhite, 1)

	if tel.LastCommand != "" {
		gocv.PutText(img, "Cmd: "+tel.LastCommand,
			image.Pt(10, 116), font, 0.5, overlayGreen, 1)
	}
}
