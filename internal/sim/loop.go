package sim

import (
	"sync"
	"time"

	"depthseeker/internal/telemetry"
	"depthseeker/logging"
)

// Reasons reported when Enqueue refuses a command.
const (
	// CommandRejectQueueLimit: the actor already has PerActorLimit commands
	// staged for the next tick. Retrying later can succeed.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull: the shared buffer is at capacity.
	CommandRejectQueueFull = "queue_full"
)

const (
	defaultTickRate = 30

	metricTickOverruns = "sim_tick_overruns_total"
)

// LoopConfig tunes the command buffer and the fixed-timestep runner.
type LoopConfig struct {
	TickRate int
	// CatchupMaxTicks caps a single step's delta at this many tick budgets
	// after a stall.
	CatchupMaxTicks int
	CommandCapacity int
	// PerActorLimit bounds commands per agent per tick; zero disables it.
	PerActorLimit int
	// WarningStep fires OnQueueWarning each time the queue grows by this much.
	WarningStep int
}

// LoopTickContext is the timing of one step. Delta is in simulated seconds.
type LoopTickContext struct {
	Tick  uint64
	Now   time.Time
	Delta float64
}

// LoopStepResult reports what a step did.
type LoopStepResult struct {
	Tick          uint64
	Now           time.Time
	Delta         float64
	Snapshot      Snapshot
	Commands      []Command
	CommandErr    error
	RemovedAgents []string
	Duration      time.Duration
	Budget        time.Duration
	ClampedDelta  bool
	MaxDelta      float64
}

// LoopHooks lets callers observe and sequence the loop. Every hook is optional.
type LoopHooks struct {
	NextTick       func() uint64
	Prepare        func(LoopTickContext)
	AfterStep      func(LoopStepResult)
	OnQueueWarning func(length int)
	OnCommandDrop  func(reason string, cmd Command)
}

// Loop owns the world's clock: it stages commands from other goroutines and
// applies them at the start of each step, so agent state is only ever
// touched from the goroutine calling Advance or Run.
type Loop struct {
	core    EngineCore
	buffer  *CommandBuffer
	hooks   LoopHooks
	config  LoopConfig
	logger  telemetry.Logger
	metrics telemetry.Metrics

	admitMu sync.Mutex
	staged  map[string]int
	drops   map[string]uint64

	stateMu  sync.RWMutex
	lastSnap Snapshot
	tick     uint64
}

// NewLoop wraps core with a command buffer. A nil core yields a nil loop,
// whose methods are all safe no-ops.
func NewLoop(core EngineCore, cfg LoopConfig, hooks LoopHooks) *Loop {
	if core == nil {
		return nil
	}
	deps := core.Deps().withDefaults()
	return &Loop{
		core:    core,
		buffer:  NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		hooks:   hooks,
		config:  cfg,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		staged:  make(map[string]int),
		drops:   make(map[string]uint64),
	}
}

func (l *Loop) Deps() Deps {
	if l == nil {
		return Deps{}
	}
	return l.core.Deps()
}

// Snapshot returns the state captured after the most recent step.
func (l *Loop) Snapshot() Snapshot {
	if l == nil {
		return Snapshot{}
	}
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()
	return l.lastSnap
}

// Tick reports the last tick advanced.
func (l *Loop) Tick() uint64 {
	if l == nil {
		return 0
	}
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()
	return l.tick
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Enqueue stages cmd for the next step. It reports false and a reject reason
// when the actor is throttled or the buffer is full.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	reason, drops, queued := l.admit(cmd)
	if reason != "" {
		l.reportDrop(reason, cmd, drops)
		return false, reason
	}
	if step := l.config.WarningStep; step > 0 && queued%step == 0 && l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(queued)
	}
	return true, ""
}

// admit applies throttling and pushes cmd, returning the reject reason (if
// any), the actor's drop count and the queue length after the push.
func (l *Loop) admit(cmd Command) (string, uint64, int) {
	l.admitMu.Lock()
	defer l.admitMu.Unlock()
	limit := l.config.PerActorLimit
	if limit > 0 && cmd.ActorID != "" && l.staged[cmd.ActorID] >= limit {
		return CommandRejectQueueLimit, l.countDrop(cmd.ActorID), 0
	}
	if !l.buffer.Push(cmd) {
		return CommandRejectQueueFull, l.countDrop(cmd.ActorID), 0
	}
	if limit > 0 && cmd.ActorID != "" {
		l.staged[cmd.ActorID]++
	}
	return "", 0, l.buffer.Len()
}

func (l *Loop) countDrop(actorID string) uint64 {
	if actorID == "" {
		return 0
	}
	l.drops[actorID]++
	return l.drops[actorID]
}

// reportDrop notifies the hook every time and logs at powers of two per actor.
func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	if count == 0 || count&(count-1) != 0 {
		return
	}
	l.logger.Printf("[backpressure] dropping command actor=%s type=%s count=%d limit=%d reason=%s",
		cmd.ActorID, cmd.Type, count, l.config.PerActorLimit, reason)
}

// Advance runs one step: staged commands are applied first, then the world
// steps and the snapshot is cached.
func (l *Loop) Advance(ctx LoopTickContext) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	commands := l.takeStaged()
	if l.hooks.Prepare != nil {
		l.hooks.Prepare(ctx)
	}
	err := l.core.Apply(commands)
	if err != nil {
		l.logger.Printf("[sim] tick=%d command errors: %v", ctx.Tick, err)
	}
	l.core.Step(ctx)
	snapshot := l.core.Snapshot()

	l.stateMu.Lock()
	l.lastSnap = snapshot
	l.tick = ctx.Tick
	l.stateMu.Unlock()

	result := LoopStepResult{
		Tick:       ctx.Tick,
		Now:        ctx.Now,
		Delta:      ctx.Delta,
		Snapshot:   snapshot,
		Commands:   commands,
		CommandErr: err,
	}
	if reporter, ok := l.core.(interface{ RemovedAgents() []string }); ok {
		if removed := reporter.RemovedAgents(); len(removed) > 0 {
			result.RemovedAgents = append([]string(nil), removed...)
		}
	}
	return result
}

func (l *Loop) takeStaged() []Command {
	l.admitMu.Lock()
	defer l.admitMu.Unlock()
	if len(l.staged) > 0 {
		clear(l.staged)
	}
	return l.buffer.Drain()
}

// pacer turns wall-clock ticker fires into clamped simulation deltas.
type pacer struct {
	clock  logging.Clock
	last   time.Time
	budget time.Duration
	maxDt  float64
}

func newPacer(clock logging.Clock, tickRate, catchup int) *pacer {
	budget := time.Second / time.Duration(tickRate)
	maxDt := budget.Seconds()
	if catchup > 1 {
		maxDt *= float64(catchup)
	}
	return &pacer{clock: clock, last: clock.Now(), budget: budget, maxDt: maxDt}
}

func (p *pacer) next() (now time.Time, dt float64, clamped bool) {
	now = p.clock.Now()
	dt = now.Sub(p.last).Seconds()
	p.last = now
	switch {
	case dt <= 0:
		dt = p.budget.Seconds()
	case dt > p.maxDt:
		dt, clamped = p.maxDt, true
	}
	return now, dt, clamped
}

// Run drives the fixed-timestep loop until stop closes.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	tickRate := l.config.TickRate
	if tickRate <= 0 {
		tickRate = defaultTickRate
	}
	clock := l.core.Deps().withDefaults().Clock
	pace := newPacer(clock, tickRate, l.config.CatchupMaxTicks)
	ticker := time.NewTicker(pace.budget)
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		now, dt, clamped := pace.next()
		if l.hooks.NextTick != nil {
			tick = l.hooks.NextTick()
		} else {
			tick++
		}

		started := clock.Now()
		result := l.Advance(LoopTickContext{Tick: tick, Now: now, Delta: dt})
		result.Duration = clock.Now().Sub(started)
		result.Budget = pace.budget
		result.ClampedDelta = clamped
		result.MaxDelta = pace.maxDt
		if result.Duration > pace.budget {
			l.metrics.Add(metricTickOverruns, 1)
		}
		if l.hooks.AfterStep != nil {
			l.hooks.AfterStep(result)
		}
	}
}

var (
	_ Engine     = (*Loop)(nil)
	_ EngineCore = (*World)(nil)
)
