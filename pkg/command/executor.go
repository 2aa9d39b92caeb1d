package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/skyops/go-dronedeck/pkg/sim"
	"github.com/skyops/go-dronedeck/pkg/stats"
)

// VehicleLink is the slice of the simulator link the executor needs.
type VehicleLink interface {
	sim.StatusReporter
	sim.PositionReader
	sim.PositionWriter
}

// Outcome statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Outcome is the immutable result record of one command execution.
type Outcome struct {
	Command string `json:"command"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// OK reports whether the command succeeded.
func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

// Default movement tuning, in simulator units.
const (
	DefaultStep            = 0.2
	DefaultMinAltitude     = 0.3
	DefaultTakeoffAltitude = 1.0
)

// Executor applies vehicle actions by moving the follow target.
//
// Safe to call concurrently from the manual and voice paths. Stats updates
// are linearizable; the read-modify-write of the target position is not
// atomic at the link level, so two concurrent executes may race and the
// last write wins. That lost-update is an accepted limitation: commands
// arrive at human cadence and the next command reads fresh state anyway.
type Executor struct {
	link   VehicleLink
	target sim.Handle
	stats  *stats.Registry

	// Step is the distance moved per Move command.
	Step float64

	// MinAltitude is the landing height and the floor for descent.
	MinAltitude float64

	// TakeoffAltitude is the minimum height after takeoff.
	TakeoffAltitude float64
}

// NewExecutor creates an executor with default movement tuning.
func NewExecutor(link VehicleLink, target sim.Handle, registry *stats.Registry) *Executor {
	return &Executor{
		link:            link,
		target:          target,
		stats:           registry,
		Step:            DefaultStep,
		MinAltitude:     DefaultMinAltitude,
		TakeoffAltitude: DefaultTakeoffAltitude,
	}
}

// Submit normalizes free text and executes the resulting action. This is
// the single inbound command surface: the voice path and the manual/typed
// path both land here.
func (e *Executor) Submit(ctx context.Context, text string) Outcome {
	action, ok := Normalize(text)
	if !ok {
		out := Outcome{
			Command: text,
			Status:  StatusError,
			Message: fmt.Sprintf("Unknown command: '%s'. Try: %s", strings.TrimSpace(text), ValidCommands),
		}
		e.stats.RecordCommand(text, false)
		return out
	}
	return e.Execute(ctx, text, action)
}

// Execute applies one action against the vehicle and records the outcome.
// Stats are updated exactly once per call. A failed link call yields one
// Failure outcome; the executor never retries.
func (e *Executor) Execute(ctx context.Context, source string, action Action) Outcome {
	out := e.perform(ctx, source, action)
	e.stats.RecordCommand(source, out.OK())
	return out
}

func (e *Executor) perform(ctx context.Context, source string, action Action) Outcome {
	if !e.link.IsConnected() {
		return e.failure(source, "Drone not connected")
	}

	switch action {
	case Hover:
		// Moving nothing keeps the drone tracking its current target.
		return e.success(source, "Drone stopped (hovering)")

	case TakeOff:
		pos, err := e.readTarget(ctx)
		if err != nil {
			return e.failure(source, fmt.Sprintf("Takeoff failed: %v", err))
		}
		pos.Z = max(e.TakeoffAltitude, pos.Z)
		if err := e.link.SetPosition(ctx, e.target, pos); err != nil {
			return e.failure(source, fmt.Sprintf("Takeoff failed: %v", err))
		}
		return e.success(source, "Taking off")

	case Land:
		pos, err := e.readTarget(ctx)
		if err != nil {
			return e.failure(source, fmt.Sprintf("Landing failed: %v", err))
		}
		pos.Z = e.MinAltitude
		if err := e.link.SetPosition(ctx, e.target, pos); err != nil {
			return e.failure(source, fmt.Sprintf("Landing failed: %v", err))
		}
		return e.success(source, "Landing")
	}

	dir, ok := action.IsMove()
	if !ok {
		return e.failure(source, fmt.Sprintf("Unknown command: '%s'. Try: %s", source, ValidCommands))
	}

	pos, err := e.readTarget(ctx)
	if err != nil {
		return e.failure(source, fmt.Sprintf("Move %s failed: %v", dir, err))
	}

	switch dir {
	case Forward:
		pos.X += e.Step
	case Backward:
		pos.X -= e.Step
	case Left:
		pos.Y += e.Step
	case Right:
		pos.Y -= e.Step
	case Up:
		pos.Z += e.Step
	case Down:
		pos.Z = max(e.MinAltitude, pos.Z-e.Step)
	}

	if err := e.link.SetPosition(ctx, e.target, pos); err != nil {
		return e.failure(source, fmt.Sprintf("Move %s failed: %v", dir, err))
	}
	return e.success(source, fmt.Sprintf("Moving %s", dir))
}

// readTarget fetches the follow target's position and rejects NaN/Inf
// coordinates, so a glitched simulator read never becomes the base of a
// relative move.
func (e *Executor) readTarget(ctx context.Context) (sim.Vector3, error) {
	pos, err := e.link.GetPosition(ctx, e.target)
	if err != nil {
		return sim.Vector3{}, err
	}
	if !pos.Finite() {
		return sim.Vector3{}, fmt.Errorf("simulator returned non-finite position (%g, %g, %g)", pos.X, pos.Y, pos.Z)
	}
	return pos, nil
}

func (e *Executor) success(source, msg string) Outcome {
	return Outcome{Command: source, Status: StatusSuccess, Message: msg}
}

func (e *Executor) failure(source, msg string) Outcome {
	return Outcome{Command: source, Status: StatusError, Message: msg}
}
