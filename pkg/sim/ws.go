package sim

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/skyops/go-dronedeck/internal/log"
)

// wsCallTimeout bounds a single request/response round trip so no caller
// blocks indefinitely on a dead connection.
const wsCallTimeout = 5 * time.Second

// wsRequest is one operation sent to the bridge.
type wsRequest struct {
	ID       string   `json:"id"`
	Op       string   `json:"op"`
	Name     string   `json:"name,omitempty"`
	Handle   *int     `json:"handle,omitempty"`
	Position *Vector3 `json:"position,omitempty"`
}

// wsResponse is the bridge's reply, correlated by ID.
type wsResponse struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`

	Handle   int      `json:"handle,omitempty"`
	Handles  []int    `json:"handles,omitempty"`
	Type     string   `json:"type,omitempty"`
	Position *Vector3 `json:"position,omitempty"`
	Frame    *struct {
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Pixels string `json:"pixels"` // base64 RGB
	} `json:"frame,omitempty"`
}

// WSLink talks to the simulator bridge over a single persistent WebSocket
// connection, multiplexing request/response pairs by ID. Lower per-call
// overhead than HTTPLink at frame cadence.
type WSLink struct {
	URL string

	conn    *websocket.Conn
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan wsResponse

	connected atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewWSLink creates a link against the bridge WebSocket endpoint,
// e.g. "ws://127.0.0.1:23050/ws".
func NewWSLink(wsURL string) *WSLink {
	return &WSLink{
		URL:     wsURL,
		pending: make(map[string]chan wsResponse),
		done:    make(chan struct{}),
	}
}

// Connect dials the bridge and starts the read loop.
func (l *WSLink) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, l.URL, nil)
	if err != nil {
		return fmt.Errorf("sim: ws dial failed: %w", err)
	}

	l.conn = conn
	l.connected.Store(true)
	go l.readLoop()

	log.Info("sim: websocket link established", "url", l.URL)
	return nil
}

// Close shuts the connection down and fails all in-flight calls.
func (l *WSLink) Close() error {
	l.connected.Store(false)
	l.closeOnce.Do(func() { close(l.done) })
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}

// IsConnected reports whether the WebSocket connection is alive.
func (l *WSLink) IsConnected() bool {
	return l.connected.Load()
}

// GetObject resolves a scene object by name.
func (l *WSLink) GetObject(ctx context.Context, name string) (Handle, error) {
	resp, err := l.call(ctx, wsRequest{Op: "getObject", Name: name})
	if err != nil {
		return 0, err
	}
	return Handle(resp.Handle), nil
}

// ObjectsInTree returns all objects below root in the scene hierarchy.
func (l *WSLink) ObjectsInTree(ctx context.Context, root Handle) ([]Handle, error) {
	h := int(root)
	resp, err := l.call(ctx, wsRequest{Op: "objectsInTree", Handle: &h})
	if err != nil {
		return nil, err
	}
	handles := make([]Handle, len(resp.Handles))
	for i, v := range resp.Handles {
		handles[i] = Handle(v)
	}
	return handles, nil
}

// ObjectType returns the simulator type marker for an object.
func (l *WSLink) ObjectType(ctx context.Context, h Handle) (string, error) {
	hh := int(h)
	resp, err := l.call(ctx, wsRequest{Op: "objectType", Handle: &hh})
	if err != nil {
		return "", err
	}
	return resp.Type, nil
}

// GetPosition returns an object's world position.
func (l *WSLink) GetPosition(ctx context.Context, h Handle) (Vector3, error) {
	hh := int(h)
	resp, err := l.call(ctx, wsRequest{Op: "getPosition", Handle: &hh})
	if err != nil {
		return Vector3{}, err
	}
	if resp.Position == nil {
		return Vector3{}, fmt.Errorf("sim: getPosition: empty response")
	}
	return *resp.Position, nil
}

// SetPosition moves an object to a new world position.
func (l *WSLink) SetPosition(ctx context.Context, h Handle, pos Vector3) error {
	hh := int(h)
	_, err := l.call(ctx, wsRequest{Op: "setPosition", Handle: &hh, Position: &pos})
	return err
}

// GetFrame pulls the latest raw RGB frame from a vision sensor.
func (l *WSLink) GetFrame(ctx context.Context, camera Handle) ([]byte, int, int, error) {
	hh := int(camera)
	resp, err := l.call(ctx, wsRequest{Op: "getFrame", Handle: &hh})
	if err != nil {
		return nil, 0, 0, err
	}
	if resp.Frame == nil {
		return nil, 0, 0, ErrNoFrame
	}

	pixels, err := base64.StdEncoding.DecodeString(resp.Frame.Pixels)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("sim: get frame: decode pixels: %w", err)
	}
	if len(pixels) != resp.Frame.Width*resp.Frame.Height*3 {
		return nil, 0, 0, fmt.Errorf("sim: get frame: got %d bytes, want %d",
			len(pixels), resp.Frame.Width*resp.Frame.Height*3)
	}
	return pixels, resp.Frame.Width, resp.Frame.Height, nil
}

// call sends one request and waits for its correlated response.
func (l *WSLink) call(ctx context.Context, req wsRequest) (wsResponse, error) {
	if !l.connected.Load() {
		return wsResponse{}, ErrNotConnected
	}

	req.ID = uuid.NewString()
	ch := make(chan wsResponse, 1)

	l.pendingMu.Lock()
	l.pending[req.ID] = ch
	l.pendingMu.Unlock()
	defer func() {
		l.pendingMu.Lock()
		delete(l.pending, req.ID)
		l.pendingMu.Unlock()
	}()

	l.writeMu.Lock()
	err := l.conn.WriteJSON(req)
	l.writeMu.Unlock()
	if err != nil {
		l.connected.Store(false)
		return wsResponse{}, fmt.Errorf("sim: %s: write: %w", req.Op, err)
	}

	select {
	case resp := <-ch:
		if !resp.OK {
			switch resp.Code {
			case "not_found":
				return wsResponse{}, ErrObjectNotFound
			case "no_frame":
				return wsResponse{}, ErrNoFrame
			default:
				return wsResponse{}, fmt.Errorf("sim: %s: %s", req.Op, resp.Error)
			}
		}
		return resp, nil
	case <-time.After(wsCallTimeout):
		return wsResponse{}, fmt.Errorf("sim: %s: timed out", req.Op)
	case <-ctx.Done():
		return wsResponse{}, ctx.Err()
	case <-l.done:
		return wsResponse{}, ErrNotConnected
	}
}

// readLoop dispatches responses to their waiting callers. It exits when
// the connection dies, marking the link disconnected.
func (l *WSLink) readLoop() {
	for {
		var resp wsResponse
		if err := l.conn.ReadJSON(&resp); err != nil {
			l.connected.Store(false)
			l.closeOnce.Do(func() {
				close(l.done)
				log.Warn("sim: websocket link lost", "error", err)
			})
			return
		}

		l.pendingMu.Lock()
		ch, ok := l.pending[resp.ID]
		l.pendingMu.Unlock()
		if ok {
			ch <- resp
		}
	}
}
