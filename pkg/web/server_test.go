package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skyops/go-dronedeck/pkg/command"
	"github.com/skyops/go-dronedeck/pkg/hub"
	"github.com/skyops/go-dronedeck/pkg/sim"
	"github.com/skyops/go-dronedeck/pkg/stats"
	"github.com/skyops/go-dronedeck/pkg/stream"
	"github.com/skyops/go-dronedeck/pkg/video"
)

// fakeLink is an in-memory sim.Link with two positioned objects.
type fakeLink struct {
	connected bool
	positions map[sim.Handle]sim.Vector3
}

func (f *fakeLink) IsConnected() bool { return f.connected }

func (f *fakeLink) GetPosition(_ context.Context, h sim.Handle) (sim.Vector3, error) {
	return f.positions[h], nil
}

func (f *fakeLink) SetPosition(_ context.Context, h sim.Handle, pos sim.Vector3) error {
	f.positions[h] = pos
	return nil
}

func (f *fakeLink) GetFrame(context.Context, sim.Handle) ([]byte, int, int, error) {
	return nil, 0, 0, sim.ErrNoFrame
}

func (f *fakeLink) GetObject(context.Context, string) (sim.Handle, error) {
	return 0, sim.ErrObjectNotFound
}

func (f *fakeLink) ObjectsInTree(context.Context, sim.Handle) ([]sim.Handle, error) {
	return nil, nil
}

func (f *fakeLink) ObjectType(context.Context, sim.Handle) (string, error) {
	return "", sim.ErrObjectNotFound
}

func (f *fakeLink) Connect(context.Context) error { return nil }
func (f *fakeLink) Close() error                  { return nil }

func newTestServer(t *testing.T) (*Server, *fakeLink, *stats.Registry) {
	t.Helper()

	link := &fakeLink{
		connected: true,
		positions: map[sim.Handle]sim.Vector3{
			1: {X: 0.5, Y: -0.5, Z: 1.0},
			2: {X: 1.0, Y: 1.0, Z: 0.3},
		},
	}
	registry := stats.New()
	events := hub.New("test")
	go events.Run(context.Background())

	s := NewServer(context.Background(), Config{
		Addr:        ":0",
		Registry:    registry,
		Events:      events,
		Executor:    command.NewExecutor(link, 2, registry),
		Link:        link,
		Objects:     sim.Objects{Drone: 1, Target: 2, Camera: 3, HasCamera: true},
		Broadcaster: stream.New(video.NewBuffer()),
	})
	return s, link, registry
}

func TestHandleStats(t *testing.T) {
	s, _, registry := newTestServer(t)
	registry.RecordCommand("take off", true)
	registry.RecordCommand("banana", false)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		TotalCommands      int64        `json:"total_commands"`
		SuccessfulCommands int64        `json:"successful_commands"`
		FailedCommands     int64        `json:"failed_commands"`
		DroneStatus        string       `json:"drone_status"`
		DronePosition      *sim.Vector3 `json:"drone_position"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if body.TotalCommands != 2 || body.SuccessfulCommands != 1 || body.FailedCommands != 1 {
		t.Errorf("counters = %+v", body)
	}
	if body.DroneStatus != "connected" {
		t.Errorf("drone_status = %q, want connected", body.DroneStatus)
	}
	if body.DronePosition == nil || body.DronePosition.Z != 1.0 {
		t.Errorf("drone_position = %+v", body.DronePosition)
	}
}

func TestHandleStats_Disconnected(t *testing.T) {
	s, link, _ := newTestServer(t)
	link.connected = false

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		DroneStatus   string       `json:"drone_status"`
		DronePosition *sim.Vector3 `json:"drone_position"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.DroneStatus != "disconnected" {
		t.Errorf("drone_status = %q, want disconnected", body.DroneStatus)
	}
	if body.DronePosition != nil {
		t.Errorf("drone_position present while disconnected: %+v", body.DronePosition)
	}
}

func TestHandleCommand(t *testing.T) {
	s, link, _ := newTestServer(t)

	body, _ := json.Marshal(CommandRequest{Command: "take off"})
	req := httptest.NewRequest(http.MethodPost, "/api/command", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out command.Outcome
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if !out.OK() {
		t.Errorf("outcome = %+v", out)
	}
	if got := link.positions[2].Z; got != 1.0 {
		t.Errorf("target altitude = %v after takeoff, want 1.0", got)
	}
}

func TestHandleCommand_UnknownStillReturns200(t *testing.T) {
	s, _, registry := newTestServer(t)

	body, _ := json.Marshal(CommandRequest{Command: "banana"})
	req := httptest.NewRequest(http.MethodPost, "/api/command", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 with error outcome", resp.StatusCode)
	}

	var out command.Outcome
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if out.OK() {
		t.Errorf("unknown command reported success: %+v", out)
	}

	if snap := registry.Snapshot(); snap.FailedCommands != 1 {
		t.Errorf("FailedCommands = %d, want 1", snap.FailedCommands)
	}
}

func TestHandleCommand_EmptyBody(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/command",
		bytes.NewReader([]byte(`{"command": "  "}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
