package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"

	"github.com/skyops/go-dronedeck/internal/httpc"
)

// HTTPLink talks to the simulator bridge over its REST API.
// This is the default transport.
type HTTPLink struct {
	BaseURL string

	client    *http.Client
	connected atomic.Bool
}

// NewHTTPLink creates a link against the bridge at baseURL,
// e.g. "http://127.0.0.1:23050".
func NewHTTPLink(baseURL string) *HTTPLink {
	return &HTTPLink{
		BaseURL: baseURL,
		client:  httpc.Client,
	}
}

// Connect verifies the bridge is reachable.
func (l *HTTPLink) Connect(ctx context.Context) error {
	var status struct {
		Connected bool `json:"connected"`
	}
	if err := l.getJSON(ctx, "/api/status", &status); err != nil {
		return fmt.Errorf("sim: bridge unreachable: %w", err)
	}
	if !status.Connected {
		return ErrNotConnected
	}
	l.connected.Store(true)
	return nil
}

// Close marks the link as disconnected. HTTP requests are stateless, so
// there is no connection to tear down.
func (l *HTTPLink) Close() error {
	l.connected.Store(false)
	return nil
}

// IsConnected reports whether the last bridge interaction succeeded.
func (l *HTTPLink) IsConnected() bool {
	return l.connected.Load()
}

// GetObject resolves a scene object by name.
func (l *HTTPLink) GetObject(ctx context.Context, name string) (Handle, error) {
	var resp struct {
		Handle int `json:"handle"`
	}
	path := "/api/objects?name=" + url.QueryEscape(name)
	if err := l.getJSON(ctx, path, &resp); err != nil {
		return 0, err
	}
	return Handle(resp.Handle), nil
}

// ObjectsInTree returns all objects below root in the scene hierarchy.
func (l *HTTPLink) ObjectsInTree(ctx context.Context, root Handle) ([]Handle, error) {
	var resp struct {
		Handles []int `json:"handles"`
	}
	if err := l.getJSON(ctx, fmt.Sprintf("/api/objects/%d/tree", root), &resp); err != nil {
		return nil, err
	}
	handles := make([]Handle, len(resp.Handles))
	for i, h := range resp.Handles {
		handles[i] = Handle(h)
	}
	return handles, nil
}

// ObjectType returns the simulator type marker for an object.
func (l *HTTPLink) ObjectType(ctx context.Context, h Handle) (string, error) {
	var resp struct {
		Type string `json:"type"`
	}
	if err := l.getJSON(ctx, fmt.Sprintf("/api/objects/%d/type", h), &resp); err != nil {
		return "", err
	}
	return resp.Type, nil
}

// GetPosition returns an object's world position.
func (l *HTTPLink) GetPosition(ctx context.Context, h Handle) (Vector3, error) {
	var pos Vector3
	if err := l.getJSON(ctx, fmt.Sprintf("/api/objects/%d/position", h), &pos); err != nil {
		return Vector3{}, err
	}
	return pos, nil
}

// SetPosition moves an object to a new world position.
func (l *HTTPLink) SetPosition(ctx context.Context, h Handle, pos Vector3) error {
	body, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("sim: marshal position: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		l.BaseURL+fmt.Sprintf("/api/objects/%d/position", h), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		l.connected.Store(false)
		return fmt.Errorf("sim: set position: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sim: set position: bridge returned %d", resp.StatusCode)
	}
	l.connected.Store(true)
	return nil
}

// GetFrame pulls the latest raw RGB frame from a vision sensor.
// The bridge returns the pixel buffer as the response body with the
// resolution in X-Frame-Width / X-Frame-Height headers, and 204 when the
// sensor has nothing to serve.
func (l *HTTPLink) GetFrame(ctx context.Context, camera Handle) ([]byte, int, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		l.BaseURL+fmt.Sprintf("/api/vision/%d/frame", camera), nil)
	if err != nil {
		return nil, 0, 0, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		l.connected.Store(false)
		return nil, 0, 0, fmt.Errorf("sim: get frame: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil, 0, 0, ErrNoFrame
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, 0, 0, fmt.Errorf("sim: get frame: bridge returned %d", resp.StatusCode)
	}

	width, err := strconv.Atoi(resp.Header.Get("X-Frame-Width"))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("sim: get frame: bad width header: %w", err)
	}
	height, err := strconv.Atoi(resp.Header.Get("X-Frame-Height"))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("sim: get frame: bad height header: %w", err)
	}

	pixels, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("sim: get frame: read body: %w", err)
	}
	if len(pixels) != width*height*3 {
		return nil, 0, 0, fmt.Errorf("sim: get frame: got %d bytes, want %d", len(pixels), width*height*3)
	}

	l.connected.Store(true)
	return pixels, width, height, nil
}

// getJSON performs a GET and decodes the JSON response.
// A 404 maps to ErrObjectNotFound so resolution can try the next candidate.
func (l *HTTPLink) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.BaseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		l.connected.Store(false)
		return fmt.Errorf("sim: %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return ErrObjectNotFound
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("sim: %s: bridge returned %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("sim: %s: decode: %w", path, err)
	}
	l.connected.Store(true)
	return nil
}
