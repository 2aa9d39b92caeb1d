package command

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/skyops/go-dronedeck/pkg/sim"
	"github.com/skyops/go-dronedeck/pkg/stats"
)

const target = sim.Handle(7)

// mockLink records position traffic for a single target object.
type mockLink struct {
	mu        sync.Mutex
	connected bool
	pos       sim.Vector3
	getErr    error
	setErr    error
	getCalls  int
	setCalls  int
}

func (m *mockLink) IsConnected() bool { return m.connected }

func (m *mockLink) GetPosition(_ context.Context, _ sim.Handle) (sim.Vector3, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return sim.Vector3{}, m.getErr
	}
	return m.pos, nil
}

func (m *mockLink) SetPosition(_ context.Context, _ sim.Handle, pos sim.Vector3) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	m.pos = pos
	return nil
}

func newExecutor(link *mockLink) (*Executor, *stats.Registry) {
	reg := stats.New()
	return NewExecutor(link, target, reg), reg
}

const tolerance = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < tolerance }

func TestExecute_TakeoffClampsAltitude(t *testing.T) {
	tests := []struct {
		name  string
		z     float64
		wantZ float64
	}{
		{"low target climbs to 1.0", 0.2, 1.0},
		{"high target stays", 1.5, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := &mockLink{connected: true, pos: sim.Vector3{X: 1, Y: 2, Z: tt.z}}
			exec, _ := newExecutor(link)

			out := exec.Execute(context.Background(), "take off", TakeOff)
			if !out.OK() {
				t.Fatalf("Execute(TakeOff) = %+v", out)
			}
			if !near(link.pos.Z, tt.wantZ) {
				t.Errorf("target z = %v, want %v", link.pos.Z, tt.wantZ)
			}
			// X and Y are untouched by vertical commands.
			if link.pos.X != 1 || link.pos.Y != 2 {
				t.Errorf("target xy = (%v, %v), want (1, 2)", link.pos.X, link.pos.Y)
			}
		})
	}
}

func TestExecute_LandSetsFixedAltitude(t *testing.T) {
	link := &mockLink{connected: true, pos: sim.Vector3{Z: 2.0}}
	exec, _ := newExecutor(link)

	out := exec.Execute(context.Background(), "land", Land)
	if !out.OK() {
		t.Fatalf("Execute(Land) = %+v", out)
	}
	if !near(link.pos.Z, 0.3) {
		t.Errorf("target z = %v, want 0.3", link.pos.Z)
	}
}

func TestExecute_MoveSteps(t *testing.T) {
	tests := []struct {
		dir  Direction
		want sim.Vector3
	}{
		{Forward, sim.Vector3{X: 0.2, Z: 1}},
		{Backward, sim.Vector3{X: -0.2, Z: 1}},
		{Left, sim.Vector3{Y: 0.2, Z: 1}},
		{Right, sim.Vector3{Y: -0.2, Z: 1}},
		{Up, sim.Vector3{Z: 1.2}},
		{Down, sim.Vector3{Z: 0.8}},
	}

	for _, tt := range tests {
		t.Run(tt.dir.String(), func(t *testing.T) {
			link := &mockLink{connected: true, pos: sim.Vector3{Z: 1}}
			exec, _ := newExecutor(link)

			out := exec.Execute(context.Background(), tt.dir.String(), Move(tt.dir))
			if !out.OK() {
				t.Fatalf("Execute(Move(%v)) = %+v", tt.dir, out)
			}
			got := link.pos
			if !near(got.X, tt.want.X) || !near(got.Y, tt.want.Y) || !near(got.Z, tt.want.Z) {
				t.Errorf("target = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExecute_DownClampsAtFloor(t *testing.T) {
	link := &mockLink{connected: true, pos: sim.Vector3{Z: 0.35}}
	exec, _ := newExecutor(link)

	out := exec.Execute(context.Background(), "down", Move(Down))
	if !out.OK() {
		t.Fatalf("Execute(Move(Down)) = %+v", out)
	}
	if !near(link.pos.Z, 0.3) {
		t.Errorf("target z = %v, want floor 0.3", link.pos.Z)
	}
}

func TestExecute_DisconnectedShortCircuits(t *testing.T) {
	link := &mockLink{connected: false}
	exec, reg := newExecutor(link)

	out := exec.Execute(context.Background(), "take off", TakeOff)
	if out.OK() {
		t.Fatal("expected failure while disconnected")
	}
	if link.getCalls != 0 || link.setCalls != 0 {
		t.Errorf("link touched while disconnected: %d gets, %d sets", link.getCalls, link.setCalls)
	}

	s := reg.Snapshot()
	if s.TotalCommands != 1 || s.SuccessfulCommands != 0 {
		t.Errorf("stats = %d total, %d successful; want 1, 0", s.TotalCommands, s.SuccessfulCommands)
	}
}

func TestExecute_HoverNeverTouchesLink(t *testing.T) {
	link := &mockLink{connected: true}
	exec, reg := newExecutor(link)

	out := exec.Execute(context.Background(), "hover", Hover)
	if !out.OK() {
		t.Fatalf("Execute(Hover) = %+v", out)
	}
	if link.getCalls != 0 || link.setCalls != 0 {
		t.Errorf("hover touched link: %d gets, %d sets", link.getCalls, link.setCalls)
	}
	if s := reg.Snapshot(); s.SuccessfulCommands != 1 {
		t.Errorf("SuccessfulCommands = %d, want 1", s.SuccessfulCommands)
	}
}

func TestExecute_LinkFailureIsSingleFailure(t *testing.T) {
	link := &mockLink{connected: true, setErr: errors.New("bridge returned 500")}
	exec, reg := newExecutor(link)

	out := exec.Execute(context.Background(), "land", Land)
	if out.OK() {
		t.Fatal("expected failure on link error")
	}
	if link.setCalls != 1 {
		t.Errorf("setCalls = %d, want exactly 1 (no retries)", link.setCalls)
	}

	s := reg.Snapshot()
	if s.TotalCommands != 1 || s.FailedCommands != 1 {
		t.Errorf("stats = %+v, want one failed command", s)
	}
}

func TestExecute_RejectsNonFinitePosition(t *testing.T) {
	tests := []struct {
		name string
		pos  sim.Vector3
	}{
		{"NaN altitude", sim.Vector3{X: 1, Y: 2, Z: math.NaN()}},
		{"infinite x", sim.Vector3{X: math.Inf(1), Z: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := &mockLink{connected: true, pos: tt.pos}
			exec, reg := newExecutor(link)

			out := exec.Execute(context.Background(), "up", Move(Up))
			if out.OK() {
				t.Fatal("expected failure on non-finite position")
			}
			if !strings.Contains(out.Message, "non-finite") {
				t.Errorf("message = %q, want it to name the bad read", out.Message)
			}
			// The glitched read must never be written back.
			if link.setCalls != 0 {
				t.Errorf("setCalls = %d, want 0", link.setCalls)
			}

			s := reg.Snapshot()
			if s.TotalCommands != 1 || s.FailedCommands != 1 {
				t.Errorf("stats = %+v, want one failed command", s)
			}
		})
	}
}

func TestSubmit_UnknownCommand(t *testing.T) {
	link := &mockLink{connected: true}
	exec, reg := newExecutor(link)

	out := exec.Submit(context.Background(), "banana")
	if out.OK() {
		t.Fatal("expected failure for unknown command")
	}
	if !strings.Contains(out.Message, "Unknown command: 'banana'") {
		t.Errorf("message = %q, want it to name the unknown text", out.Message)
	}
	if !strings.Contains(out.Message, "take off") {
		t.Errorf("message = %q, want it to list valid commands", out.Message)
	}

	s := reg.Snapshot()
	if s.TotalCommands != 1 || s.SuccessfulCommands != 0 {
		t.Errorf("stats = %+v, want the unknown command counted as failed", s)
	}
	if s.LastCommand != "banana" {
		t.Errorf("LastCommand = %q, want \"banana\"", s.LastCommand)
	}
}

func TestSubmit_VoiceStylePhrases(t *testing.T) {
	link := &mockLink{connected: true, pos: sim.Vector3{Z: 0.2}}
	exec, _ := newExecutor(link)
	ctx := context.Background()

	if out := exec.Submit(ctx, "take off now please"); !out.OK() {
		t.Errorf("Submit(take off now please) = %+v", out)
	}
	if !near(link.pos.Z, 1.0) {
		t.Errorf("target z = %v after takeoff, want 1.0", link.pos.Z)
	}

	if out := exec.Submit(ctx, "go write a bit"); !out.OK() {
		t.Errorf("Submit(go write a bit) = %+v", out)
	}
	if !near(link.pos.Y, -0.2) {
		t.Errorf("target y = %v after fuzzy right, want -0.2", link.pos.Y)
	}
}

func TestExecute_StatsBalanceAcrossMixedOutcomes(t *testing.T) {
	link := &mockLink{connected: true, pos: sim.Vector3{Z: 1}}
	exec, reg := newExecutor(link)
	ctx := context.Background()

	exec.Submit(ctx, "take off")
	exec.Submit(ctx, "banana")
	link.connected = false
	exec.Submit(ctx, "land")
	link.connected = true
	exec.Submit(ctx, "hover")

	s := reg.Snapshot()
	if s.TotalCommands != 4 {
		t.Errorf("TotalCommands = %d, want 4", s.TotalCommands)
	}
	if s.SuccessfulCommands+s.FailedCommands != s.TotalCommands {
		t.Errorf("counter balance broken: %+v", s)
	}
	if s.SuccessfulCommands != 2 {
		t.Errorf("SuccessfulCommands = %d, want 2", s.SuccessfulCommands)
	}
}
