package sim

import (
	"errors"
	"math"
)

// Common errors returned by simulator links.
var (
	// ErrNotConnected is returned when the link has no live connection.
	ErrNotConnected = errors.New("sim: not connected")

	// ErrObjectNotFound is returned when a scene object name does not resolve.
	ErrObjectNotFound = errors.New("sim: object not found")

	// ErrNoFrame is returned when the vision sensor has no frame available,
	// e.g. while the simulation is paused.
	ErrNoFrame = errors.New("sim: no frame available")
)

// Handle identifies a scene object inside the simulator.
type Handle int

// Vector3 is a position in simulator world coordinates.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Finite reports whether all components are finite numbers.
func (v Vector3) Finite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// VisionSensorType is the object type marker reported by the simulator for
// camera objects. Used by camera resolution when scanning the drone's tree.
const VisionSensorType = "visionSensor"
