package web

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/skyops/go-dronedeck/internal/log"
	"github.com/skyops/go-dronedeck/pkg/hub"
	"github.com/skyops/go-dronedeck/pkg/sim"
	"github.com/skyops/go-dronedeck/pkg/stats"
)

// positionTimeout bounds the simulator reads done while building a
// status response.
const positionTimeout = time.Second

type statsResponse struct {
	stats.Snapshot
	DroneStatus    string       `json:"drone_status"`
	DronePosition  *sim.Vector3 `json:"drone_position,omitempty"`
	TargetPosition *sim.Vector3 `json:"target_position,omitempty"`
}

// handleStats returns the command counters plus live simulator state.
func (s *Server) handleStats(c *fiber.Ctx) error {
	resp := statsResponse{
		Snapshot:    s.cfg.Registry.Snapshot(),
		DroneStatus: "disconnected",
	}

	if s.cfg.Link.IsConnected() {
		resp.DroneStatus = "connected"
		ctx, cancel := context.WithTimeout(c.UserContext(), positionTimeout)
		defer cancel()
		resp.DronePosition, resp.TargetPosition = s.positions(ctx)
	}
	return c.JSON(resp)
}

// CommandRequest is the body for POST /api/command.
type CommandRequest struct {
	Command string `json:"command"`
}

// handleCommand runs one typed command. The outcome is returned to the
// caller and broadcast to event clients either way.
func (s *Server) handleCommand(c *fiber.Ctx) error {
	var req CommandRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if strings.TrimSpace(req.Command) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "command is required",
		})
	}

	out := s.cfg.Executor.Submit(c.UserContext(), req.Command)
	s.publishOutcome(out.Command, out.Status, out.Message)
	return c.JSON(out)
}

func (s *Server) publishOutcome(cmd, status, message string) {
	s.cfg.Events.Publish(hub.EventCommandExecuted, hub.CommandExecuted{
		Command: cmd,
		Status:  status,
		Message: message,
	})
}

// handleEventsWS runs one dashboard websocket client.
func (s *Server) handleEventsWS(conn *websocket.Conn) {
	s.cfg.Registry.ClientConnected()
	defer s.cfg.Registry.ClientDisconnected()

	client := hub.NewClient(s.cfg.Events, conn)
	client.SendEvent(hub.EventStatusUpdate, hub.StatusUpdate{
		Message:        "Connected to drone control server",
		DroneConnected: s.cfg.Link.IsConnected(),
	})
	client.Run()
}

// handleClientRequest dispatches inbound websocket requests. It runs on
// the client's read goroutine, so command execution moves off it.
func (s *Server) handleClientRequest(c *hub.Client, req hub.Request) {
	switch req.Type {
	case hub.RequestDroneStatus:
		ctx, cancel := context.WithTimeout(context.Background(), positionTimeout)
		defer cancel()
		c.SendEvent(hub.EventDroneStatus, s.droneStatus(ctx))

	case hub.RequestManualCommand:
		text := strings.TrimSpace(req.Command)
		if text == "" {
			return
		}
		go func() {
			out := s.cfg.Executor.Submit(context.Background(), text)
			s.publishOutcome(out.Command, out.Status, out.Message)
		}()

	default:
		log.Debug("unknown client request", "type", req.Type, "client", c.ID)
	}
}

func (s *Server) droneStatus(ctx context.Context) hub.DroneStatus {
	status := hub.DroneStatus{Connected: s.cfg.Link.IsConnected()}
	if status.Connected {
		status.DronePosition, status.TargetPosition = s.positions(ctx)
	}
	return status
}

// positions reads both object positions, tolerating individual failures.
func (s *Server) positions(ctx context.Context) (drone, target *sim.Vector3) {
	if pos, err := s.cfg.Link.GetPosition(ctx, s.cfg.Objects.Drone); err == nil {
		drone = &pos
	}
	if pos, err := s.cfg.Link.GetPosition(ctx, s.cfg.Objects.Target); err == nil {
		target = &pos
	}
	return drone, target
}
