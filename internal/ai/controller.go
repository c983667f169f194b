// Package ai schedules utility-scored behaviors for a single agent.
//
// A Controller has two halves. The evaluation half runs on a repeating alarm
// and only records the best candidate. The transition half runs every tick,
// swaps the active behavior when the candidate changed, curbs the outgoing
// behavior and performs the active one. Both halves are driven from the
// simulation goroutine and never block.
package ai

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"depthseeker/internal/alarm"
	"depthseeker/internal/behavior"
	"depthseeker/internal/telemetry"
	"depthseeker/logging"
	loggingbehavior "depthseeker/logging/behavior"
)

// DefaultEvaluationInterval matches the authoring default of half a second.
const DefaultEvaluationInterval = 500 * time.Millisecond

const tracerName = "depthseeker/internal/ai"

const (
	metricEvaluations   = "ai_evaluations_total"
	metricTransitions   = "ai_transitions_total"
	metricCurbs         = "ai_curbs_total"
	metricCurbOverrides = "ai_curb_overrides_total"
	metricHookFaults    = "ai_hook_faults_total"
	metricForced        = "ai_forced_total"
)

var (
	// ErrNoAlarms is returned when a controller is built without an alarm facility.
	ErrNoAlarms = errors.New("ai: alarm facility is required")
	// ErrClosed is returned by operations on a torn down controller.
	ErrClosed = errors.New("ai: controller closed")
	// ErrForeignBehavior is returned when forcing a behavior the controller does not own.
	ErrForeignBehavior = errors.New("ai: behavior not registered with this controller")
)

// Config wires a controller to its collaborators. Only Alarms is required.
type Config struct {
	AgentID            string
	EvaluationInterval time.Duration
	Alarms             alarm.Facility
	Factory            *behavior.Factory
	Rand               *rand.Rand
	Publisher          logging.Publisher
	Logger             telemetry.Logger
	Metrics            telemetry.Metrics
	Tracer             trace.Tracer
}

// Controller owns one agent's behavior registry and active-behavior slot.
// It is not safe for concurrent use.
type Controller struct {
	agentID   string
	interval  time.Duration
	alarms    alarm.Facility
	rng       *rand.Rand
	publisher logging.Publisher
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	tracer    trace.Tracer

	registry  *behavior.Registry
	active    behavior.Behavior
	candidate behavior.Behavior
	forced    bool

	phaseAlarm alarm.Handle
	evalAlarm  alarm.Handle
	curbAlarms map[behavior.Behavior]alarm.Handle
	// faulted holds active behaviors whose PerformBehavior panicked. They
	// are not scored again until the transition step has stopped them.
	faulted    map[behavior.Behavior]struct{}
	generation uint64
	started    bool
	closed     bool
	tick       uint64
}

// NewController builds a controller with an empty registry.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Alarms == nil {
		return nil, ErrNoAlarms
	}
	interval := cfg.EvaluationInterval
	if interval <= 0 {
		interval = DefaultEvaluationInterval
	}
	factory := cfg.Factory
	if factory == nil {
		factory = behavior.NewFactory()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.Discard()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Controller{
		agentID:    cfg.AgentID,
		interval:   interval,
		alarms:     cfg.Alarms,
		rng:        cfg.Rand,
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		registry:   behavior.NewRegistry(factory),
		curbAlarms: make(map[behavior.Behavior]alarm.Handle),
		faulted:    make(map[behavior.Behavior]struct{}),
	}, nil
}

// RegisterBehaviors instantiates templates for the agent described by ctx.
// Missing AgentID, Alarms and Rand fields are filled from the controller.
// Skipped template parameters are reported as debug events, never as errors.
func (c *Controller) RegisterBehaviors(templates []behavior.Template, ctx behavior.Context) (behavior.RegisterReport, error) {
	if c.closed {
		return behavior.RegisterReport{}, ErrClosed
	}
	if ctx.AgentID == "" {
		ctx.AgentID = c.agentID
	}
	if ctx.Alarms == nil {
		ctx.Alarms = c.alarms
	}
	if ctx.Rand == nil {
		ctx.Rand = c.random
	}
	report, err := c.registry.Register(templates, ctx)
	if err != nil {
		return report, fmt.Errorf("agent %s: %w", c.agentID, err)
	}
	for _, skipped := range report.Skipped {
		loggingbehavior.ParamSkipped(context.Background(), c.publisher, c.actor(), logging.BehaviorRef(skipped.Behavior),
			loggingbehavior.ParamSkippedPayload{Kind: skipped.Kind, Param: skipped.Param})
	}
	return report, nil
}

// Start arms the evaluation schedule after a random phase offset drawn from
// [0, interval), so agents created together do not evaluate on the same tick.
func (c *Controller) Start() error {
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return nil
	}
	c.started = true
	delay := time.Duration(c.random() * float64(c.interval))
	if delay >= c.interval {
		delay = c.interval - 1
	}
	gen := c.generation
	c.phaseAlarm = c.alarms.ScheduleOnce(delay, func() {
		if !c.live(gen) {
			return
		}
		c.phaseAlarm = 0
		c.evalAlarm = c.alarms.ScheduleRepeating(c.interval, func() {
			if !c.live(gen) {
				return
			}
			c.Evaluate()
		})
	})
	return nil
}

// ForceBehavior makes b the best candidate, bypassing evaluation. The next
// Tick activates it. A nil b forces "no behavior". The evaluation schedule is
// left untouched, so the next periodic pass may replace the forced choice.
func (c *Controller) ForceBehavior(b behavior.Behavior) error {
	if c.closed {
		return ErrClosed
	}
	if b != nil && !c.registry.Contains(b) {
		return fmt.Errorf("%w: %s", ErrForeignBehavior, b.Core().Name)
	}
	c.candidate = b
	c.forced = true
	c.metrics.Add(metricForced, 1)
	if b != nil {
		loggingbehavior.Forced(context.Background(), c.publisher, c.tick, c.actor(), logging.BehaviorRef(b.Core().Name), nil)
	}
	return nil
}

// ForceBehaviorNamed looks up name and forces it. An empty name forces no behavior.
func (c *Controller) ForceBehaviorNamed(name string) error {
	if name == "" {
		return c.ForceBehavior(nil)
	}
	b, ok := c.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrForeignBehavior, name)
	}
	return c.ForceBehavior(b)
}

// ActiveBehavior returns the behavior currently running, or nil.
func (c *Controller) ActiveBehavior() behavior.Behavior {
	return c.active
}

// Candidate returns the behavior the next Tick will activate, or nil.
func (c *Controller) Candidate() behavior.Behavior {
	return c.candidate
}

// Behavior looks up a registered behavior by name.
func (c *Controller) Behavior(name string) (behavior.Behavior, bool) {
	return c.registry.Lookup(name)
}

// Behaviors returns the registered behaviors in registration order.
func (c *Controller) Behaviors() []behavior.Behavior {
	return c.registry.Behaviors()
}

// AgentID returns the owning agent's identifier.
func (c *Controller) AgentID() string {
	return c.agentID
}

// Close tears the controller down: every pending alarm is cancelled, the
// active behavior is stopped without a curb, behaviors holding their own
// alarms are torn down, and alarm callbacks already queued become no-ops.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.generation++

	if c.phaseAlarm != 0 {
		c.alarms.Cancel(c.phaseAlarm)
		c.phaseAlarm = 0
	}
	if c.evalAlarm != 0 {
		c.alarms.Cancel(c.evalAlarm)
		c.evalAlarm = 0
	}
	for b, handle := range c.curbAlarms {
		c.alarms.Cancel(handle)
		delete(c.curbAlarms, b)
	}

	if c.active != nil {
		prev := c.active
		c.active = nil
		prev.Core().Active = false
		c.invoke(context.Background(), prev, hookStop, prev.StopBehavior)
		loggingbehavior.Stopped(context.Background(), c.publisher, c.tick, c.actor(), logging.BehaviorRef(prev.Core().Name),
			loggingbehavior.StoppedPayload{Reason: stopReasonTeardown}, nil)
	}
	for _, b := range c.registry.Behaviors() {
		if td, ok := b.(behavior.Teardowner); ok {
			c.invoke(context.Background(), b, hookTeardown, td.Teardown)
		}
	}
	clear(c.faulted)
	c.candidate = nil
}

// Closed reports whether Close has been called.
func (c *Controller) Closed() bool {
	return c.closed
}

func (c *Controller) live(gen uint64) bool {
	return !c.closed && c.generation == gen
}

func (c *Controller) random() float64 {
	if c.rng != nil {
		return c.rng.Float64()
	}
	return rand.Float64()
}

func (c *Controller) actor() logging.EntityRef {
	return logging.AgentRef(c.agentID)
}
