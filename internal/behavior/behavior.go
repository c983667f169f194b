// Package behavior defines the strategy units an AI controller schedules and
// the registry that instantiates them from authoring templates.
package behavior

import (
	"time"

	"depthseeker/internal/alarm"
	"depthseeker/internal/state"
)

// Behavior is one strategy an agent can execute.
//
// CalculateUtility is called every evaluation interval while the behavior is
// not curbed; a negative or non-finite score makes it ineligible.
// StartBehavior and StopBehavior are called exactly once per activation.
// PerformBehavior runs every tick while the behavior is active, with delta in
// simulated seconds.
type Behavior interface {
	CalculateUtility() float64
	StartBehavior()
	StopBehavior()
	PerformBehavior(delta float64)
	Core() *Base
}

// CurbOverrider is implemented by behaviors that manage their own cooldown.
// The controller then skips the default curb timer entirely.
type CurbOverrider interface {
	CurbOverride()
}

// Teardowner is implemented by behaviors that arm their own alarms. The
// controller calls Teardown when the owning agent is destroyed.
type Teardowner interface {
	Teardown()
}

// Buffs is the subset of an agent's buff manager exposed to behaviors.
type Buffs interface {
	Trigger(buff string, duration time.Duration) bool
	Active(buff string) bool
}

// Context binds a behavior instance to its owning agent.
type Context struct {
	AgentID string
	// Type is the agent classification tag, e.g. "moth" or "cruncher".
	Type   string
	Body   *state.Lifeform
	Buffs  Buffs
	Alarms alarm.Facility
	// Rand returns a float in [0, 1). Nil falls back to math/rand.
	Rand func() float64
}

// Base carries the scheduler-facing state every behavior embeds. Only the
// controller that owns the behavior writes Active and Curbed.
type Base struct {
	Name    string
	Kind    string
	Active  bool
	Curbed  bool
	CurbMin time.Duration
	CurbMax time.Duration

	owner Context
}

// Core returns the embedded base; it satisfies the Behavior interface.
func (b *Base) Core() *Base {
	return b
}

// Owner returns the context the behavior was registered with.
func (b *Base) Owner() Context {
	if b == nil {
		return Context{}
	}
	return b.owner
}

// Body is shorthand for Owner().Body.
func (b *Base) Body() *state.Lifeform {
	if b == nil {
		return nil
	}
	return b.owner.Body
}

// Random draws from the owner's random source.
func (b *Base) Random() float64 {
	if b != nil && b.owner.Rand != nil {
		return b.owner.Rand()
	}
	return fallbackRand()
}

func (b *Base) bind(ctx Context) {
	b.owner = ctx
}
