// Package sim provides the link to the remote drone simulator bridge.
//
// The package defines small, focused interfaces that can be composed as
// needed. Consumers should depend only on the interfaces they actually use:
// the command executor needs positions and connection state, the capture
// loop needs frames, and object resolution needs the scene inspection calls.
//
// Two transports implement the full Link contract: HTTPLink (stateless
// request/response against the bridge's REST API) and WSLink (a single
// persistent WebSocket connection). Both carry the same JSON payloads.
package sim

import "context"

// PositionReader reads object positions from the scene.
type PositionReader interface {
	GetPosition(ctx context.Context, h Handle) (Vector3, error)
}

// PositionWriter writes object positions into the scene.
type PositionWriter interface {
	SetPosition(ctx context.Context, h Handle, pos Vector3) error
}

// FrameSource retrieves raw camera frames.
// Pixels are interleaved 8-bit RGB, bottom row first (the simulator's
// coordinate convention; the capture loop flips them for display).
type FrameSource interface {
	GetFrame(ctx context.Context, camera Handle) (pixels []byte, width, height int, err error)
}

// StatusReporter reports link connection state.
type StatusReporter interface {
	IsConnected() bool
}

// SceneInspector provides the scene queries used by object resolution.
type SceneInspector interface {
	GetObject(ctx context.Context, name string) (Handle, error)
	ObjectsInTree(ctx context.Context, root Handle) ([]Handle, error)
	ObjectType(ctx context.Context, h Handle) (string, error)
}

// Link is the composite interface for full simulator access.
type Link interface {
	PositionReader
	PositionWriter
	FrameSource
	StatusReporter
	SceneInspector

	// Connect establishes the link. Safe to call once at startup.
	Connect(ctx context.Context) error

	// Close tears the link down.
	Close() error
}

// Ensure both transports implement Link.
var (
	_ Link = (*HTTPLink)(nil)
	_ Link = (*WSLink)(nil)
)
