// DroneDeck - voice and web control panel for a simulated quadcopter.
// Streams the drone's camera to the browser, executes typed and spoken
// movement commands, and pushes live status to dashboard clients.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skyops/go-dronedeck/internal/config"
	"github.com/skyops/go-dronedeck/internal/log"
	"github.com/skyops/go-dronedeck/internal/observe"
	"github.com/skyops/go-dronedeck/pkg/capture"
	"github.com/skyops/go-dronedeck/pkg/command"
	"github.com/skyops/go-dronedeck/pkg/hub"
	"github.com/skyops/go-dronedeck/pkg/recognize"
	"github.com/skyops/go-dronedeck/pkg/sim"
	"github.com/skyops/go-dronedeck/pkg/speech"
	"github.com/skyops/go-dronedeck/pkg/stats"
	"github.com/skyops/go-dronedeck/pkg/stream"
	"github.com/skyops/go-dronedeck/pkg/video"
	"github.com/skyops/go-dronedeck/pkg/web"
)

// lastCommandWindow is how long an executed command stays on the video
// overlay.
const lastCommandWindow = 5 * time.Second

type options struct {
	debug     bool
	addr      string
	simURL    string
	transport string
	staticDir string
	noVoice   bool
	noOverlay bool
}

func main() {
	opts := parseFlags()

	level := "info"
	if opts.debug {
		level = "debug"
	}
	log.Init(level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func parseFlags() options {
	opts := options{
		addr:      ":" + config.WebPort(),
		transport: config.SimTransport(),
		staticDir: "./web",
	}

	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	addr := flag.String("addr", opts.addr, "Dashboard listen address")
	simURL := flag.String("sim", "", "Simulator bridge URL (overrides SIM_HOST/SIM_PORT)")
	transport := flag.String("transport", opts.transport, "Simulator transport: http or ws")
	staticDir := flag.String("static", opts.staticDir, "Dashboard static asset directory")
	noVoice := flag.Bool("no-voice", false, "Disable microphone voice control")
	noOverlay := flag.Bool("no-overlay", false, "Disable the telemetry overlay on the video feed")
	flag.Parse()

	opts.debug = *debug
	opts.addr = *addr
	opts.simURL = *simURL
	opts.transport = *transport
	opts.staticDir = *staticDir
	opts.noVoice = *noVoice
	opts.noOverlay = *noOverlay
	return opts
}

func run(ctx context.Context, opts options) error {
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		shutdownMetrics(sctx)
	}()

	link, err := newLink(opts)
	if err != nil {
		return err
	}
	if err := link.Connect(ctx); err != nil {
		return fmt.Errorf("connect to simulator: %w", err)
	}
	defer link.Close()
	log.Info("simulator connected", "transport", opts.transport)

	objects, err := sim.ResolveObjects(ctx, link)
	if err != nil {
		return fmt.Errorf("resolve scene objects: %w", err)
	}

	registry := stats.New()
	events := hub.New("events")
	executor := command.NewExecutor(link, objects.Target, registry)
	buffer := video.NewBuffer()
	broadcaster := stream.New(buffer)

	server := web.NewServer(ctx, web.Config{
		Addr:        opts.addr,
		StaticDir:   opts.staticDir,
		Registry:    registry,
		Events:      events,
		Executor:    executor,
		Link:        link,
		Objects:     objects,
		Broadcaster: broadcaster,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return events.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })

	if objects.HasCamera {
		processor := video.NewProcessor()
		processor.Overlay = !opts.noOverlay
		loop := capture.NewLoop(link, objects.Camera, buffer, processor,
			telemetryFunc(gctx, link, objects, registry))
		g.Go(func() error { return loop.Run(gctx) })
	} else {
		log.Warn("no camera in scene, serving placeholder feed only")
	}

	if opts.noVoice {
		log.Info("voice control disabled")
	} else if err := startVoice(gctx, g, events, executor); err != nil {
		// Voice trouble degrades to web-only control.
		log.Warn("voice control unavailable", "error", err)
	}

	events.Publish(hub.EventStatusUpdate, hub.StatusUpdate{
		Message:        "Drone control server started",
		DroneConnected: link.IsConnected(),
	})

	return g.Wait()
}

func newLink(opts options) (sim.Link, error) {
	switch opts.transport {
	case "http":
		url := opts.simURL
		if url == "" {
			url = config.SimAPIURL()
		}
		return sim.NewHTTPLink(url), nil
	case "ws":
		url := opts.simURL
		if url == "" {
			url = config.SimWSURL()
		}
		return sim.NewWSLink(url), nil
	default:
		return nil, fmt.Errorf("unknown transport %q (want http or ws)", opts.transport)
	}
}

// startVoice opens the microphone, calibrates it, and launches the
// recognition loop.
func startVoice(ctx context.Context, g *errgroup.Group, events *hub.Hub, executor *command.Executor) error {
	apiKey := config.GoogleAPIKey()
	if apiKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY not set")
	}

	cfg := speech.DefaultConfig()
	mic, err := speech.NewMicrophone(cfg)
	if err != nil {
		return fmt.Errorf("open microphone: %w", err)
	}

	log.Info("calibrating microphone", "duration", cfg.CalibrationDuration.String())
	if err := mic.Calibrate(ctx, cfg.CalibrationDuration); err != nil {
		mic.Close()
		return fmt.Errorf("calibrate microphone: %w", err)
	}

	transcriber, err := speech.NewGoogleTranscriber(ctx, apiKey)
	if err != nil {
		mic.Close()
		return err
	}

	loop := recognize.New(mic, transcriber, executor.Submit, events)
	g.Go(func() error {
		defer mic.Close()
		return loop.Run(ctx)
	})
	log.Info("voice control ready")
	return nil
}

// telemetryFunc builds the overlay state supplier for the capture loop.
func telemetryFunc(ctx context.Context, link sim.Link, objects sim.Objects, registry *stats.Registry) capture.TelemetryFunc {
	return func() *video.Telemetry {
		tel := &video.Telemetry{
			Timestamp: time.Now(),
			Connected: link.IsConnected(),
		}
		if tel.Connected {
			if pos, err := link.GetPosition(ctx, objects.Drone); err == nil {
				tel.Position = pos
				tel.HasPosition = true
			}
		}
		snap := registry.Snapshot()
		tel.CommandCount = snap.TotalCommands
		if last, ok := registry.LastCommandWithin(lastCommandWindow); ok {
			tel.LastCommand = last
		}
		return tel
	}
}
