package stream

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/skyops/go-dronedeck/pkg/video"
)

func TestWritePart(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	payload := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	if err := writePart(w, payload); err != nil {
		t.Fatalf("writePart: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "--frame\r\n") {
		t.Errorf("part does not start with boundary: %q", out[:20])
	}
	if !strings.Contains(out, "Content-Type: image/jpeg\r\n") {
		t.Error("missing content type header")
	}
	if !strings.Contains(out, "Content-Length: 4\r\n") {
		t.Error("missing or wrong content length")
	}
	if !bytes.Contains(buf.Bytes(), payload) {
		t.Error("payload missing from part")
	}
	if !strings.HasSuffix(out, "\r\n") {
		t.Error("part not terminated with CRLF")
	}
}

func TestServe_PacesFramesUntilCancelled(t *testing.T) {
	buffer := video.NewBuffer()
	buffer.Publish(&video.Frame{JPEG: []byte("fake-jpeg"), Width: 2, Height: 2, CapturedAt: time.Now()})

	b := New(buffer)
	b.Interval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	var buf bytes.Buffer
	b.serve(ctx, bufio.NewWriter(&buf), "test")

	parts := strings.Count(buf.String(), "--frame\r\n")
	if parts < 2 {
		t.Errorf("served %d parts, want several", parts)
	}
	if !strings.Contains(buf.String(), "fake-jpeg") {
		t.Error("frame payload missing from stream")
	}
}
