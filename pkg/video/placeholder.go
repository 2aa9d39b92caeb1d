package video

import (
	"image"
	"image/color"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	placeholderWidth  = 640
	placeholderHeight = 480
)

var (
	placeholderOnce sync.Once
	placeholderJPEG []byte
)

// Placeholder returns the cached "no signal" JPEG served while no camera
// frame has arrived. The image is rendered once and reused; the returned
// slice must not be modified.
func Placeholder() []byte {
	placeholderOnce.Do(renderPlaceholder)
	return placeholderJPEG
}

// PlaceholderFrame wraps the placeholder JPEG with a fresh timestamp so
// stream clients still see the frame advance.
func PlaceholderFrame() *Frame {
	return &Frame{
		JPEG:       Placeholder(),
		Width:      placeholderWidth,
		Height:     placeholderHeight,
		CapturedAt: time.Now(),
	}
}

func renderPlaceholder() {
	img := gocv.NewMatWithSize(placeholderHeight, placeholderWidth, gocv.MatTypeCV8UC3)
	defer img.Close()
	img.SetTo(gocv.NewScalar(40, 40, 40, 0))

	gocv.PutText(&img, "WAITING FOR CAMERA...",
		image.Pt(140, 230), gocv.FontHersheySimplex, 0.9, color.RGBA{200, 200, 200, 0}, 2)
	gocv.PutText(&img, "Check simulator connection",
		image.Pt(170, 270), gocv.FontHersheySimplex, 0.6, color.RGBA{140, 140, 140, 0}, 1)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img,
		[]int{gocv.IMWriteJpegQuality, DefaultJPEGQuality})
	if err != nil {
		// A render failure here means OpenCV itself is broken; serve an
		// empty body rather than crash the stream.
		placeholderJPEG = nil
		return
	}
	defer buf.Close()

	placeholderJPEG = make([]byte, len(buf.GetBytes()))
	copy(placeholderJPEG, buf.GetBytes())
}
