// Package web serves the dashboard: static assets, the live video feed,
// the stats endpoint, the command API, and the websocket event channel.
package web

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skyops/go-dronedeck/internal/log"
	"github.com/skyops/go-dronedeck/pkg/command"
	"github.com/skyops/go-dronedeck/pkg/hub"
	"github.com/skyops/go-dronedeck/pkg/sim"
	"github.com/skyops/go-dronedeck/pkg/stats"
	"github.com/skyops/go-dronedeck/pkg/stream"
)

const shutdownTimeout = 5 * time.Second

// Config carries the server's collaborators.
type Config struct {
	Addr        string
	StaticDir   string
	Registry    *stats.Registry
	Events      *hub.Hub
	Executor    *command.Executor
	Link        sim.Link
	Objects     sim.Objects
	Broadcaster *stream.Broadcaster
}

// Server is the fiber app plus everything the handlers talk to.
type Server struct {
	app *fiber.App
	cfg Config
}

// NewServer builds the app and wires all routes. ctx bounds the video
// streams handed out by the feed endpoint.
func NewServer(ctx context.Context, cfg Config) *Server {
	s := &Server{cfg: cfg}

	app := fiber.New(fiber.Config{
		AppName:               "DroneDeck",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	app.Get("/video_feed", cfg.Broadcaster.Handler(ctx))
	app.Get("/stats", s.handleStats)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	api.Post("/command", s.handleCommand)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	cfg.Events.OnRequest(s.handleClientRequest)

	s.app = app
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		log.Info("web server listening", "addr", s.cfg.Addr)
		errc <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Warn("web server shutdown failed", "error", err)
		}
		err := <-errc
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return ctx.Err()
	}
}
