// Package config loads the simulation description: world settings, the
// agents to spawn and the behavior templates each lifeform type registers.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"depthseeker/internal/behavior"
	"depthseeker/logging"
)

var (
	// ErrNoAgents is returned when a config spawns nothing.
	ErrNoAgents = errors.New("config: at least one agent is required")
	// ErrDuplicateAgent is returned when two agents share an id.
	ErrDuplicateAgent = errors.New("config: duplicate agent id")
	// ErrInvalidTemplate is returned for behavior templates without a kind.
	ErrInvalidTemplate = errors.New("config: behavior template requires a kind")
)

const (
	defaultTickRate           = 30
	defaultCatchupMaxTicks    = 3
	defaultCommandCapacity    = 256
	defaultPerActorLimit      = 8
	defaultEvaluationInterval = 500 * time.Millisecond
	defaultWorldWidth         = 64
	defaultWorldHeight        = 64
)

// Config is the root of a depthseeker config file.
type Config struct {
	Simulation    Simulation                    `yaml:"simulation" json:"simulation"`
	AI            AI                            `yaml:"ai" json:"ai"`
	Logging       Logging                       `yaml:"logging" json:"logging"`
	Server        Server                        `yaml:"server" json:"server"`
	Observability Observability                 `yaml:"observability" json:"observability"`
	Agents        []Agent                       `yaml:"agents" json:"agents"`
	Behaviors     map[string][]BehaviorTemplate `yaml:"behaviors,omitempty" json:"behaviors,omitempty" jsonschema:"description=Behavior templates keyed by lifeform type"`
}

// Simulation tunes the fixed-timestep loop and the passive needs drift.
type Simulation struct {
	TickRate        int     `yaml:"tickRate" json:"tickRate" jsonschema:"minimum=1"`
	CatchupMaxTicks int     `yaml:"catchupMaxTicks" json:"catchupMaxTicks"`
	CommandCapacity int     `yaml:"commandCapacity" json:"commandCapacity"`
	PerActorLimit   int     `yaml:"perActorLimit" json:"perActorLimit"`
	Seed            int64   `yaml:"seed" json:"seed"`
	Width           float64 `yaml:"width" json:"width"`
	Height          float64 `yaml:"height" json:"height"`
	Drift           Drift   `yaml:"drift" json:"drift"`
}

// Drift is how fast needs change per simulated second regardless of behavior.
type Drift struct {
	Hunger float64 `yaml:"hunger" json:"hunger"`
	Energy float64 `yaml:"energy" json:"energy"`
	Threat float64 `yaml:"threat" json:"threat"`
}

type AI struct {
	EvaluationInterval Duration `yaml:"evaluationInterval" json:"evaluationInterval"`
}

// Logging selects the event sinks.
type Logging struct {
	Sinks           []string `yaml:"sinks" json:"sinks" jsonschema:"enum=console,enum=json,enum=websocket"`
	BufferSize      int      `yaml:"bufferSize" json:"bufferSize"`
	MinimumSeverity string   `yaml:"minimumSeverity" json:"minimumSeverity" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	JSONPath        string   `yaml:"jsonPath,omitempty" json:"jsonPath,omitempty"`
	FlushInterval   Duration `yaml:"flushInterval" json:"flushInterval"`
	Categories      []string `yaml:"categories,omitempty" json:"categories,omitempty"`
}

// Server configures the debug endpoint. An empty Addr disables it.
type Server struct {
	Addr string `yaml:"addr" json:"addr"`
}

type Observability struct {
	Tracing     bool   `yaml:"tracing" json:"tracing"`
	ServiceName string `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
	Pprof       bool   `yaml:"pprof,omitempty" json:"pprof,omitempty"`
}

// Agent spawns one lifeform. Behaviors overrides the per-type templates.
type Agent struct {
	ID        string             `yaml:"id,omitempty" json:"id,omitempty"`
	Type      string             `yaml:"type" json:"type"`
	X         float64            `yaml:"x" json:"x"`
	Y         float64            `yaml:"y" json:"y"`
	Energy    float64            `yaml:"energy,omitempty" json:"energy,omitempty"`
	Hunger    float64            `yaml:"hunger,omitempty" json:"hunger,omitempty"`
	Behaviors []BehaviorTemplate `yaml:"behaviors,omitempty" json:"behaviors,omitempty"`
}

// BehaviorTemplate is the file form of behavior.Template.
type BehaviorTemplate struct {
	Kind    string         `yaml:"kind" json:"kind"`
	Name    string         `yaml:"name,omitempty" json:"name,omitempty"`
	CurbMin Duration       `yaml:"curbMin" json:"curbMin"`
	CurbMax Duration       `yaml:"curbMax" json:"curbMax"`
	Params  map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// Template converts the file form into a registry template.
func (t BehaviorTemplate) Template() behavior.Template {
	params := make(map[string]any, len(t.Params))
	for k, v := range t.Params {
		params[k] = v
	}
	return behavior.Template{
		Kind:    strings.TrimSpace(t.Kind),
		Name:    strings.TrimSpace(t.Name),
		CurbMin: t.CurbMin.Std(),
		CurbMax: t.CurbMax.Std(),
		Params:  params,
	}
}

// Default returns the built-in scene: a few crunchers, moths and a firefly
// cluster, with console logging and no debug server.
func Default() Config {
	return Config{
		Simulation: Simulation{
			TickRate:        defaultTickRate,
			CatchupMaxTicks: defaultCatchupMaxTicks,
			CommandCapacity: defaultCommandCapacity,
			PerActorLimit:   defaultPerActorLimit,
			Seed:            1,
			Width:           defaultWorldWidth,
			Height:          defaultWorldHeight,
			Drift:           Drift{Hunger: 0.01, Energy: 0.005, Threat: 0.05},
		},
		AI: AI{EvaluationInterval: Duration(defaultEvaluationInterval)},
		Logging: Logging{
			Sinks:           []string{logging.SinkConsole},
			BufferSize:      512,
			MinimumSeverity: "info",
			FlushInterval:   Duration(2 * time.Second),
		},
		Observability: Observability{ServiceName: "depthseeker"},
		Agents: []Agent{
			{Type: "cruncher", X: 10, Y: 10},
			{Type: "cruncher", X: 14, Y: 12, Energy: 0.2},
			{Type: "moth", X: 30, Y: 30, Hunger: 0.6},
			{Type: "moth", X: 32, Y: 28},
			{Type: "firefly", X: 48, Y: 48},
			{Type: "firefly", X: 48.2, Y: 47.9},
			{Type: "firefly", X: 47.8, Y: 48.1},
		},
	}
}

// Load reads path over the defaults. An empty path returns Default().
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML document over the defaults, normalises and validates
// it. A document that lists agents replaces the default scene entirely.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	cfg.Agents = nil
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Agents == nil {
		cfg.Agents = Default().Agents
	}
	cfg = cfg.normalized()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// normalized returns a config with defaults applied to zero fields.
func (cfg Config) normalized() Config {
	normalized := cfg
	sim := &normalized.Simulation
	if sim.TickRate <= 0 {
		sim.TickRate = defaultTickRate
	}
	if sim.CatchupMaxTicks <= 0 {
		sim.CatchupMaxTicks = defaultCatchupMaxTicks
	}
	if sim.CommandCapacity <= 0 {
		sim.CommandCapacity = defaultCommandCapacity
	}
	if sim.PerActorLimit < 0 {
		sim.PerActorLimit = 0
	}
	if sim.Width <= 0 {
		sim.Width = defaultWorldWidth
	}
	if sim.Height <= 0 {
		sim.Height = defaultWorldHeight
	}
	if normalized.AI.EvaluationInterval <= 0 {
		normalized.AI.EvaluationInterval = Duration(defaultEvaluationInterval)
	}
	if len(normalized.Logging.Sinks) == 0 {
		normalized.Logging.Sinks = []string{logging.SinkConsole}
	}
	normalized.Server.Addr = strings.TrimSpace(normalized.Server.Addr)

	agents := make([]Agent, len(cfg.Agents))
	for i, agent := range cfg.Agents {
		agent.ID = strings.TrimSpace(agent.ID)
		agent.Type = strings.ToLower(strings.TrimSpace(agent.Type))
		agents[i] = agent
	}
	normalized.Agents = agents
	return normalized
}

// Validate reports the first structural problem in cfg.
func (cfg Config) Validate() error {
	if len(cfg.Agents) == 0 {
		return ErrNoAgents
	}
	seen := make(map[string]struct{}, len(cfg.Agents))
	for i, agent := range cfg.Agents {
		if agent.Type == "" {
			return fmt.Errorf("config: agent %d has no type", i)
		}
		if agent.ID != "" {
			if _, dup := seen[agent.ID]; dup {
				return fmt.Errorf("%w %q", ErrDuplicateAgent, agent.ID)
			}
			seen[agent.ID] = struct{}{}
		}
		if err := validateTemplates(agent.Behaviors); err != nil {
			return fmt.Errorf("agent %d: %w", i, err)
		}
	}
	for lifeformType, templates := range cfg.Behaviors {
		if err := validateTemplates(templates); err != nil {
			return fmt.Errorf("behaviors %s: %w", lifeformType, err)
		}
	}
	for _, sink := range cfg.Logging.Sinks {
		switch strings.ToLower(sink) {
		case logging.SinkConsole, logging.SinkJSON, logging.SinkWebsocket:
		default:
			return fmt.Errorf("config: unknown logging sink %q", sink)
		}
	}
	if cfg.Logging.hasSink(logging.SinkJSON) && cfg.Logging.JSONPath == "" {
		return errors.New("config: json sink requires logging.jsonPath")
	}
	return nil
}

func validateTemplates(templates []BehaviorTemplate) error {
	for i, tmpl := range templates {
		if strings.TrimSpace(tmpl.Kind) == "" {
			return fmt.Errorf("%w (template %d)", ErrInvalidTemplate, i)
		}
	}
	return nil
}

// TemplatesFor resolves the templates for agent: its own list, then the
// per-type list. The boolean is false when neither is configured.
func (cfg Config) TemplatesFor(agent Agent) ([]behavior.Template, bool) {
	source := agent.Behaviors
	if len(source) == 0 {
		source = cfg.Behaviors[agent.Type]
	}
	if len(source) == 0 {
		return nil, false
	}
	out := make([]behavior.Template, len(source))
	for i, tmpl := range source {
		out[i] = tmpl.Template()
	}
	return out, true
}

// RouterConfig maps the logging section onto the router configuration.
func (l Logging) RouterConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = append([]string(nil), l.Sinks...)
	if l.BufferSize > 0 {
		cfg.BufferSize = l.BufferSize
	}
	cfg.MinimumSeverity = logging.ParseSeverity(l.MinimumSeverity)
	cfg.JSON.FilePath = l.JSONPath
	if l.FlushInterval > 0 {
		cfg.JSON.FlushInterval = l.FlushInterval.Std()
	}
	cfg.Console.Categories = append([]string(nil), l.Categories...)
	return cfg
}

func (l Logging) hasSink(name string) bool {
	for _, sink := range l.Sinks {
		if strings.EqualFold(sink, name) {
			return true
		}
	}
	return false
}
