package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"depthseeker/internal/config"
	"depthseeker/internal/sim"
	"depthseeker/internal/telemetry"
	"depthseeker/logging"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		tickRate int
		interval time.Duration
		addr     string
		warnings int
	}{
		{name: "no overrides", env: nil, tickRate: 30, interval: time.Second},
		{
			name:     "all overrides",
			env:      map[string]string{"DEPTHSEEKER_TICK_RATE": "60", "DEPTHSEEKER_EVAL_INTERVAL": "250ms", "DEPTHSEEKER_ADDR": ":9090"},
			tickRate: 60,
			interval: 250 * time.Millisecond,
			addr:     ":9090",
		},
		{
			name:     "invalid values are ignored",
			env:      map[string]string{"DEPTHSEEKER_TICK_RATE": "fast", "DEPTHSEEKER_EVAL_INTERVAL": "-1s"},
			tickRate: 30,
			interval: time.Second,
			warnings: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.AI.EvaluationInterval = config.Duration(time.Second)
			warnings := 0
			logger := telemetry.LoggerFunc(func(string, ...any) { warnings++ })
			applyEnvOverrides(&cfg, lookupFrom(tt.env), logger)
			if cfg.Simulation.TickRate != tt.tickRate {
				t.Fatalf("expected tick rate %d, got %d", tt.tickRate, cfg.Simulation.TickRate)
			}
			if cfg.AI.EvaluationInterval.Std() != tt.interval {
				t.Fatalf("expected interval %s, got %s", tt.interval, cfg.AI.EvaluationInterval)
			}
			if cfg.Server.Addr != tt.addr {
				t.Fatalf("expected addr %q, got %q", tt.addr, cfg.Server.Addr)
			}
			if warnings != tt.warnings {
				t.Fatalf("expected %d warnings, got %d", tt.warnings, warnings)
			}
		})
	}
}

func TestBuildSpawnsConfiguredAgents(t *testing.T) {
	var out bytes.Buffer
	rt, err := Build(config.Default(), nil, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rt.Close(context.Background())

	if rt.World.Len() != len(config.Default().Agents) {
		t.Fatalf("expected %d agents, got %d", len(config.Default().Agents), rt.World.Len())
	}
	if rt.Handler != nil || rt.Hub != nil {
		t.Fatalf("expected no debug server without an address")
	}
	result := rt.Loop.Advance(sim.LoopTickContext{Tick: 1, Delta: 1.0 / 30})
	if len(result.Snapshot.Agents) != rt.World.Len() {
		t.Fatalf("expected snapshot of every agent")
	}
}

func TestBuildUsesConfiguredTemplates(t *testing.T) {
	cfg, err := config.Parse([]byte(`
agents:
  - id: lone
    type: moth
    behaviors:
      - kind: wander
        params:
          radius: 2.0
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rt, err := Build(cfg, nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rt.Close(context.Background())
	agent, ok := rt.World.Agent("lone")
	if !ok {
		t.Fatalf("expected agent lone")
	}
	if got := len(agent.Controller.Behaviors()); got != 1 {
		t.Fatalf("expected only the configured behavior, got %d", got)
	}
}

func TestBuildWithDebugServerAndJSONSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	cfg := config.Default()
	cfg.Server.Addr = ":0"
	cfg.Logging.Sinks = []string{logging.SinkJSON, logging.SinkWebsocket}
	cfg.Logging.JSONPath = path

	rt, err := Build(cfg, nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rt.Handler == nil || rt.Hub == nil {
		t.Fatalf("expected debug handler and hub")
	}
	rt.Close(context.Background())

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read json sink: %v", err)
	}
	if !strings.Contains(string(data), "world.closed") {
		t.Fatalf("expected world.closed in json sink, got %q", data)
	}
}

func TestBuildRejectsUnwritableJSONPath(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Sinks = []string{logging.SinkJSON}
	cfg.Logging.JSONPath = filepath.Join(t.TempDir(), "missing", "events.jsonl")
	if _, err := Build(cfg, nil, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error opening json sink")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{Logger: telemetry.Discard(), Stdout: &bytes.Buffer{}, LookupEnv: lookupFrom(nil)})
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop")
	}
}
