// Package stats tracks shared usage counters for the dashboard.
//
// The registry is the only mutable state shared between the command paths
// and the web layer besides the frame buffer. Counters use atomics; the
// last-command text sits behind a mutex. Snapshots handed to callers are
// copies, never live references.
package stats

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/skyops/go-dronedeck/internal/observe"
)

// Registry holds the live counters. Safe for concurrent use.
type Registry struct {
	start time.Time

	total      atomic.Int64
	successful atomic.Int64
	clients    atomic.Int64

	mu            sync.Mutex
	lastCommand   string
	lastCommandAt time.Time

	metrics *observe.Metrics
}

// Snapshot is a point-in-time copy of the registry, shaped for /stats.
type Snapshot struct {
	ConnectedClients   int64   `json:"connected_clients"`
	TotalCommands      int64   `json:"total_commands"`
	SuccessfulCommands int64   `json:"successful_commands"`
	FailedCommands     int64   `json:"failed_commands"`
	LastCommand        string  `json:"last_command"`
	StartTime          int64   `json:"start_time"`
	UptimeSeconds      float64 `json:"uptime_seconds"`
}

// New creates a registry with the uptime clock started now.
func New() *Registry {
	return &Registry{
		start:   time.Now(),
		metrics: observe.Default(),
	}
}

// RecordCommand folds one command outcome into the counters. Total is
// incremented exactly once per call, successful only on success, and the
// last-command text unconditionally.
func (r *Registry) RecordCommand(text string, success bool) {
	r.total.Add(1)
	status := "error"
	if success {
		r.successful.Add(1)
		status = "success"
	}

	r.mu.Lock()
	r.lastCommand = text
	r.lastCommandAt = time.Now()
	r.mu.Unlock()

	r.metrics.Commands.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("status", status)))
}

// ClientConnected increments the connected-client count and returns it.
func (r *Registry) ClientConnected() int64 {
	return r.clients.Add(1)
}

// ClientDisconnected decrements the connected-client count, never going
// below zero, and returns the new value.
func (r *Registry) ClientDisconnected() int64 {
	for {
		cur := r.clients.Load()
		if cur == 0 {
			return 0
		}
		if r.clients.CompareAndSwap(cur, cur-1) {
			return cur - 1
		}
	}
}

// LastCommandWithin returns the last command text if it was recorded less
// than window ago. Used by the video overlay.
func (r *Registry) LastCommandWithin(window time.Duration) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastCommand == "" || time.Since(r.lastCommandAt) >= window {
		return "", false
	}
	return r.lastCommand, true
}

// Snapshot returns a copy of the current counters.
func (r *Registry) Snapshot() Snapshot {
	// Successful is read before total: it is incremented after total in
	// RecordCommand, so this order keeps successful <= total under
	// concurrent recording.
	successful := r.successful.Load()
	total := r.total.Load()

	r.mu.Lock()
	last := r.lastCommand
	r.mu.Unlock()

	return Snapshot{
		ConnectedClients:   r.clients.Load(),
		TotalCommands:      total,
		SuccessfulCommands: successful,
		FailedCommands:     total - successful,
		LastCommand:        last,
		StartTime:          r.start.Unix(),
		UptimeSeconds:      time.Since(r.start).Seconds(),
	}
}
