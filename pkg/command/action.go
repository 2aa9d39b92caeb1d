// Package command turns operator text into vehicle actions and executes
// them against the simulator link.
//
// Normalization is a pure, ordered rule table biased toward recall: the
// upstream transcription is noisy, so partial and near-miss phrases still
// resolve to an action. Execution moves the follow target; the drone
// controller inside the simulator does the actual flying.
package command

// Direction is a movement axis for Move actions.
type Direction int

const (
	Forward Direction = iota
	Backward
	Left
	Right
	Up
	Down
)

// String returns the lowercase direction name.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return "unknown"
}

type actionKind int

const (
	kindTakeOff actionKind = iota + 1
	kindLand
	kindHover
	kindMove
)

// Action is a closed set of vehicle actions. Values are comparable;
// construct Move actions with [Move] and compare against the exported
// variables.
type Action struct {
	kind actionKind
	dir  Direction
}

// The non-directional actions.
var (
	TakeOff = Action{kind: kindTakeOff}
	Land    = Action{kind: kindLand}
	Hover   = Action{kind: kindHover}
)

// Move returns the movement action along the given direction.
func Move(d Direction) Action {
	return Action{kind: kindMove, dir: d}
}

// IsMove reports whether a is a movement action and returns its direction.
func (a Action) IsMove() (Direction, bool) {
	return a.dir, a.kind == kindMove
}

// String returns a short human-readable action name.
func (a Action) String() string {
	switch a.kind {
	case kindTakeOff:
		return "takeoff"
	case kindLand:
		return "land"
	case kindHover:
		return "hover"
	case kindMove:
		return "move " + a.dir.String()
	}
	return "unknown"
}
