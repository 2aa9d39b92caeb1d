package hub

import (
	"encoding/json"

	"github.com/skyops/go-dronedeck/pkg/sim"
)

// Event names sent to dashboard clients.
const (
	EventCommandExecuted = "command_executed"
	EventDroneStatus     = "drone_status"
	EventStatusUpdate    = "status_update"
)

// Inbound request types dashboard clients may send.
const (
	RequestDroneStatus   = "request_drone_status"
	RequestManualCommand = "manual_command"
)

// CommandExecuted reports one command outcome to the dashboard.
type CommandExecuted struct {
	Command string `json:"command"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// DroneStatus carries the live connection state and object positions.
// Positions are omitted when the objects could not be read.
type DroneStatus struct {
	Connected      bool         `json:"connected"`
	DronePosition  *sim.Vector3 `json:"drone_position,omitempty"`
	TargetPosition *sim.Vector3 `json:"target_position,omitempty"`
}

// StatusUpdate is a free-form status line, sent on connect and on
// lifecycle changes.
type StatusUpdate struct {
	Message        string `json:"message"`
	DroneConnected bool   `json:"drone_connected"`
}

// Request is an inbound client message.
type Request struct {
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Encode wraps a payload in the {type, data} envelope the dashboard expects.
func Encode(event string, payload any) ([]byte, error) {
	return json.Marshal(envelope{Type: event, Data: payload})
}
