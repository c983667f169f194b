package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	"depthseeker/internal/config"
	servernet "depthseeker/internal/net"
	"depthseeker/internal/net/ws"
	"depthseeker/internal/observability"
	"depthseeker/internal/sim"
	"depthseeker/internal/state"
	"depthseeker/internal/telemetry"
	"depthseeker/logging"
	loggingSinks "depthseeker/logging/sinks"
)

const shutdownGrace = 5 * time.Second

// Config carries process level options. ConfigPath may be empty to run the
// built-in scene.
type Config struct {
	Logger     telemetry.Logger
	ConfigPath string
	Stdout     io.Writer
	LookupEnv  func(string) (string, bool)
}

// Runtime is the assembled simulation: world, loop, event router and the
// optional debug server handler.
type Runtime struct {
	Config  config.Config
	World   *sim.World
	Loop    *sim.Loop
	Router  *logging.Router
	Hub     *ws.Hub
	Handler http.Handler

	logger telemetry.Logger
}

// Run loads the configuration, starts the loop and serves the debug endpoint
// until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}
	lookup := cfg.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	fileCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyEnvOverrides(&fileCfg, lookup, telemetryLogger)

	rt, err := Build(fileCfg, telemetryLogger, cfg.Stdout)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	stop := make(chan struct{})
	loopDone := make(chan struct{})
	go func() {
		rt.Loop.Run(stop)
		close(loopDone)
	}()
	defer func() {
		close(stop)
		<-loopDone
	}()

	if fileCfg.Server.Addr == "" {
		telemetryLogger.Printf("simulation running with %d agents", rt.World.Len())
		<-ctx.Done()
		return nil
	}

	srv := &http.Server{Addr: fileCfg.Server.Addr, Handler: rt.Handler}
	serveErr := make(chan error, 1)
	go func() {
		telemetryLogger.Printf("debug server listening on %s", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			telemetryLogger.Printf("debug server shutdown: %v", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	}
}

// Build wires the router, sinks, world and loop for cfg and spawns its
// agents. The loop is not started.
func Build(cfg config.Config, telemetryLogger telemetry.Logger, stdout io.Writer) (*Runtime, error) {
	if telemetryLogger == nil {
		telemetryLogger = telemetry.Discard()
	}
	if stdout == nil {
		stdout = os.Stdout
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	logConfig := cfg.Logging.RouterConfig()
	var hub *ws.Hub
	if cfg.Server.Addr != "" {
		hub = ws.NewHub(ws.HubConfig{Logger: telemetryLogger})
	}
	sinks, err := buildSinks(logConfig, stdout, hub)
	if err != nil {
		return nil, err
	}

	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, fallbackLogger, sinks)
	if err != nil {
		closeSinks(sinks)
		return nil, fmt.Errorf("failed to construct logging router: %w", err)
	}
	if hub != nil && !logConfig.HasSink(logging.SinkWebsocket) {
		telemetryLogger.Printf("debug server enabled without the websocket sink; clients receive snapshots only")
	}

	metrics := telemetry.WrapMetrics(router.Metrics())
	obs := observability.Config{
		Tracing:     cfg.Observability.Tracing,
		ServiceName: cfg.Observability.ServiceName,
		EnablePprof: cfg.Observability.Pprof,
	}

	world := sim.NewWorld(sim.WorldConfig{
		Width:  cfg.Simulation.Width,
		Height: cfg.Simulation.Height,
		Drift: sim.NeedsDrift{
			Hunger: cfg.Simulation.Drift.Hunger,
			Energy: cfg.Simulation.Drift.Energy,
			Threat: cfg.Simulation.Drift.Threat,
		},
		EvaluationInterval: cfg.AI.EvaluationInterval.Std(),
	}, sim.Deps{
		Logger:    telemetryLogger,
		Metrics:   metrics,
		Clock:     logging.SystemClock{},
		RNG:       rand.New(rand.NewSource(cfg.Simulation.Seed)),
		Publisher: router,
		Tracer:    obs.Tracer(),
	})

	rt := &Runtime{Config: cfg, World: world, Router: router, Hub: hub, logger: telemetryLogger}
	if err := spawnAgents(world, cfg); err != nil {
		rt.Close(context.Background())
		return nil, err
	}

	rt.Loop = sim.NewLoop(world, sim.LoopConfig{
		TickRate:        cfg.Simulation.TickRate,
		CatchupMaxTicks: cfg.Simulation.CatchupMaxTicks,
		CommandCapacity: cfg.Simulation.CommandCapacity,
		PerActorLimit:   cfg.Simulation.PerActorLimit,
	}, sim.LoopHooks{
		OnCommandDrop: func(reason string, cmd sim.Command) {
			metrics.Add("sim_commands_dropped_total", 1)
		},
	})

	if hub != nil {
		rt.Handler = servernet.NewHTTPHandler(rt.Loop, servernet.HTTPHandlerConfig{
			Logger:        telemetryLogger,
			Metrics:       router.Metrics(),
			Hub:           hub,
			TickRate:      cfg.Simulation.TickRate,
			Observability: obs,
		})
	}
	return rt, nil
}

// Close tears down every agent and flushes the event sinks.
func (rt *Runtime) Close(ctx context.Context) {
	if rt == nil {
		return
	}
	if rt.World != nil {
		rt.World.Close()
	}
	if rt.Router != nil {
		if err := rt.Router.Close(ctx); err != nil {
			rt.logger.Printf("failed to close logging router: %v", err)
		}
	}
}

func spawnAgents(world *sim.World, cfg config.Config) error {
	for _, agent := range cfg.Agents {
		templates, _ := cfg.TemplatesFor(agent)
		_, err := world.Spawn(sim.AgentSpec{
			ID:        agent.ID,
			Type:      agent.Type,
			Position:  state.Vec2{X: agent.X, Y: agent.Y},
			Energy:    agent.Energy,
			Hunger:    agent.Hunger,
			Templates: templates,
		})
		if err != nil {
			return fmt.Errorf("spawn %s %q: %w", agent.Type, agent.ID, err)
		}
	}
	return nil
}

func buildSinks(cfg logging.Config, stdout io.Writer, hub *ws.Hub) ([]logging.NamedSink, error) {
	var sinks []logging.NamedSink
	if cfg.HasSink(logging.SinkConsole) {
		sinks = append(sinks, logging.NamedSink{
			Name:       logging.SinkConsole,
			Sink:       loggingSinks.NewConsole(stdout),
			Categories: cfg.Console.Categories,
		})
	}
	if cfg.HasSink(logging.SinkJSON) {
		file, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			closeSinks(sinks)
			return nil, fmt.Errorf("open json sink: %w", err)
		}
		sinks = append(sinks, logging.NamedSink{Name: logging.SinkJSON, Sink: loggingSinks.NewJSON(file, cfg.JSON.FlushInterval)})
	}
	if hub != nil && cfg.HasSink(logging.SinkWebsocket) {
		sinks = append(sinks, logging.NamedSink{Name: logging.SinkWebsocket, Sink: hub})
	}
	return sinks, nil
}

func closeSinks(sinks []logging.NamedSink) {
	for _, named := range sinks {
		named.Sink.Close(context.Background())
	}
}

func applyEnvOverrides(cfg *config.Config, lookup func(string) (string, bool), logger telemetry.Logger) {
	if raw, ok := lookup("DEPTHSEEKER_TICK_RATE"); ok && raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.Simulation.TickRate = value
		} else {
			logger.Printf("invalid DEPTHSEEKER_TICK_RATE=%q", raw)
		}
	}
	if raw, ok := lookup("DEPTHSEEKER_EVAL_INTERVAL"); ok && raw != "" {
		if value, err := time.ParseDuration(raw); err == nil && value > 0 {
			cfg.AI.EvaluationInterval = config.Duration(value)
		} else {
			logger.Printf("invalid DEPTHSEEKER_EVAL_INTERVAL=%q", raw)
		}
	}
	if raw, ok := lookup("DEPTHSEEKER_ADDR"); ok {
		cfg.Server.Addr = raw
	}
}
