package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"depthseeker/internal/ai"
	"depthseeker/internal/alarm"
	"depthseeker/internal/behavior"
	"depthseeker/internal/behaviors"
	"depthseeker/internal/buffs"
	"depthseeker/internal/state"
	"depthseeker/logging"
)

var (
	// ErrUnknownAgent is returned for commands addressed to an agent that does not exist.
	ErrUnknownAgent = errors.New("sim: unknown agent")
	// ErrDuplicateAgent is returned when spawning an id that is already live.
	ErrDuplicateAgent = errors.New("sim: agent already exists")
	// ErrInvalidCommand is returned for commands missing their payload.
	ErrInvalidCommand = errors.New("sim: invalid command")
)

const (
	metricAgentsLive     = "sim_agents_live"
	metricCommandsFailed = "sim_commands_failed_total"
)

// NeedsDrift is how fast needs change per simulated second while nothing
// acts on them.
type NeedsDrift struct {
	Hunger float64
	Energy float64
	Threat float64
}

// WorldConfig describes the arena and how agents are wired.
type WorldConfig struct {
	Width              float64
	Height             float64
	Drift              NeedsDrift
	EvaluationInterval time.Duration
	// Factory builds behaviors; nil uses the built-in kinds.
	Factory *behavior.Factory
}

// AgentSpec describes one agent to spawn. Empty Templates fall back to the
// built-in set for Type.
type AgentSpec struct {
	ID        string
	Type      string
	Position  state.Vec2
	Energy    float64
	Hunger    float64
	Templates []behavior.Template
}

// Agent is one lifeform with its own alarm queue, buffs and AI controller.
type Agent struct {
	ID         string
	Body       *state.Lifeform
	Alarms     *alarm.Queue
	Timers     *alarm.Timers
	Buffs      *buffs.Manager
	Controller *ai.Controller
}

func (a *Agent) close() {
	a.Controller.Close()
	a.Buffs.Close()
	a.Timers.ClearAll()
	a.Alarms.CancelAll()
}

// World owns every agent. All methods are safe for concurrent use; the loop
// goroutine is the only caller that advances time.
type World struct {
	mu        sync.Mutex
	cfg       WorldConfig
	deps      Deps
	agents    []*Agent
	byID      map[string]*Agent
	tick      uint64
	despawned []string
}

// NewWorld builds an empty world.
func NewWorld(cfg WorldConfig, deps Deps) *World {
	if cfg.Factory == nil {
		cfg.Factory = behaviors.NewFactory()
	}
	if cfg.EvaluationInterval <= 0 {
		cfg.EvaluationInterval = ai.DefaultEvaluationInterval
	}
	return &World{
		cfg:  cfg,
		deps: deps.withDefaults(),
		byID: make(map[string]*Agent),
	}
}

// Deps returns the injected dependencies.
func (w *World) Deps() Deps {
	return w.deps
}

// Spawn creates an agent, registers its behaviors and starts its schedule.
func (w *World) Spawn(spec AgentSpec) (*Agent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.spawnLocked(spec)
}

func (w *World) spawnLocked(spec AgentSpec) (*Agent, error) {
	id := spec.ID
	if id == "" {
		id = spec.Type + "-" + uuid.NewString()[:8]
	}
	if _, exists := w.byID[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateAgent, id)
	}

	body := &state.Lifeform{
		ID:       id,
		Type:     spec.Type,
		Position: spec.Position,
		Energy:   spec.Energy,
		Hunger:   spec.Hunger,
	}
	behaviors.BootstrapLifeform(body)

	queue := alarm.NewQueue()
	timers := alarm.NewTimers(queue)
	manager := buffs.NewManager(buffs.Config{AgentID: id, Timers: timers, Publisher: w.deps.Publisher})
	ctrl, err := ai.NewController(ai.Config{
		AgentID:            id,
		EvaluationInterval: w.cfg.EvaluationInterval,
		Alarms:             queue,
		Factory:            w.cfg.Factory,
		Rand:               w.agentRand(),
		Publisher:          w.deps.Publisher,
		Logger:             w.deps.Logger,
		Metrics:            w.deps.Metrics,
		Tracer:             w.deps.Tracer,
	})
	if err != nil {
		return nil, err
	}

	templates := spec.Templates
	if len(templates) == 0 {
		templates = behaviors.DefaultTemplates(spec.Type)
	}
	ctx := behavior.Context{AgentID: id, Type: spec.Type, Body: body, Buffs: manager}
	if _, err := ctrl.RegisterBehaviors(templates, ctx); err != nil {
		return nil, err
	}
	if err := ctrl.Start(); err != nil {
		return nil, err
	}

	agent := &Agent{ID: id, Body: body, Alarms: queue, Timers: timers, Buffs: manager, Controller: ctrl}
	w.agents = append(w.agents, agent)
	w.byID[id] = agent
	w.deps.Metrics.Store(metricAgentsLive, uint64(len(w.agents)))
	return agent, nil
}

// Despawn tears an agent down. Pending alarms are cancelled before it is
// dropped, so none of its callbacks run afterwards.
func (w *World) Despawn(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.despawnLocked(id)
}

func (w *World) despawnLocked(id string) bool {
	agent, ok := w.byID[id]
	if !ok {
		return false
	}
	agent.close()
	delete(w.byID, id)
	for i, candidate := range w.agents {
		if candidate == agent {
			w.agents = append(w.agents[:i], w.agents[i+1:]...)
			break
		}
	}
	w.despawned = append(w.despawned, id)
	w.deps.Metrics.Store(metricAgentsLive, uint64(len(w.agents)))
	return true
}

// Agent looks up a live agent.
func (w *World) Agent(id string) (*Agent, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	agent, ok := w.byID[id]
	return agent, ok
}

// Len reports the number of live agents.
func (w *World) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.agents)
}

// Apply executes staged commands. Every command is attempted; the returned
// error joins the failures.
func (w *World) Apply(cmds []Command) error {
	if len(cmds) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for _, cmd := range cmds {
		if err := w.applyLocked(cmd); err != nil {
			w.deps.Metrics.Add(metricCommandsFailed, 1)
			errs = append(errs, fmt.Errorf("%s %s: %w", cmd.Type, cmd.ActorID, err))
		}
	}
	return errors.Join(errs...)
}

func (w *World) applyLocked(cmd Command) error {
	agent, ok := w.byID[cmd.ActorID]
	if !ok {
		return ErrUnknownAgent
	}
	switch cmd.Type {
	case CommandForce:
		if cmd.Force == nil {
			return ErrInvalidCommand
		}
		return agent.Controller.ForceBehaviorNamed(cmd.Force.Behavior)
	case CommandThreat:
		if cmd.Threat == nil {
			return ErrInvalidCommand
		}
		body := agent.Body
		source := state.Vec2{X: cmd.Threat.SourceX, Y: cmd.Threat.SourceY}
		if source == body.Position {
			angle := w.randomAngle()
			source = state.Vec2{X: body.Position.X + math.Cos(angle), Y: body.Position.Y + math.Sin(angle)}
		}
		body.ThreatSource = source
		body.Threat = math.Max(body.Threat, cmd.Threat.Level)
		body.Clamp()
		return nil
	case CommandBuff:
		if cmd.Buff == nil {
			return ErrInvalidCommand
		}
		return applyBuff(agent.Buffs, *cmd.Buff)
	case CommandDespawn:
		w.despawnLocked(agent.ID)
		return nil
	default:
		return fmt.Errorf("%w: type %q", ErrInvalidCommand, cmd.Type)
	}
}

func applyBuff(manager *buffs.Manager, cmd BuffCommand) error {
	var ok bool
	switch {
	case cmd.Clear:
		ok = manager.Clear(cmd.Buff)
	case cmd.Conditional:
		ok = manager.TriggerConditional(cmd.Buff)
	default:
		ok = manager.Trigger(cmd.Buff, cmd.Duration)
	}
	if !ok {
		return fmt.Errorf("%w: buff %q not applied", ErrInvalidCommand, cmd.Buff)
	}
	return nil
}

// Step advances every agent by one tick: passive needs drift, the agent's
// alarms fire, then its controller transitions and performs.
func (w *World) Step(ctx LoopTickContext) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tick = ctx.Tick
	delta := ctx.Delta
	if delta < 0 {
		delta = 0
	}
	elapsed := time.Duration(delta * float64(time.Second))
	drift := w.cfg.Drift
	for _, agent := range w.agents {
		body := agent.Body
		body.Hunger += drift.Hunger * delta
		body.Energy -= drift.Energy * delta
		body.Threat -= drift.Threat * delta
		body.Clamp()

		agent.Alarms.Advance(elapsed)
		agent.Controller.Tick(ctx.Tick, delta)
		if w.cfg.Width > 0 && w.cfg.Height > 0 {
			body.Bounds(w.cfg.Width, w.cfg.Height)
		}
	}
}

// RemovedAgents drains the ids despawned since the last call.
func (w *World) RemovedAgents() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	removed := w.despawned
	w.despawned = nil
	return removed
}

// Close tears down every agent.
func (w *World) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, agent := range w.agents {
		agent.close()
	}
	w.agents = nil
	w.byID = make(map[string]*Agent)
	w.deps.Metrics.Store(metricAgentsLive, 0)
	w.deps.Publisher.Publish(context.Background(), logging.Event{
		Type:     "world.closed",
		Tick:     w.tick,
		Actor:    logging.EntityRef{ID: "world", Kind: logging.EntityKindWorld},
		Severity: logging.SeverityInfo,
		Category: logging.CategorySystem,
	})
}
