package ai

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"depthseeker/internal/behavior"
	"depthseeker/logging"
	loggingbehavior "depthseeker/logging/behavior"
)

const (
	stopReasonSuperseded = "superseded"
	stopReasonTeardown   = "teardown"
)

// Tick runs the transition step and then performs the active behavior once.
// delta is the simulated time since the previous tick, in seconds.
func (c *Controller) Tick(tick uint64, delta float64) {
	if c.closed {
		return
	}
	c.tick = tick
	if c.candidate != c.active {
		c.transition()
	}
	if c.active == nil {
		return
	}
	current := c.active
	if err := c.invoke(context.Background(), current, hookPerform, func() { current.PerformBehavior(delta) }); err != nil {
		// Let the next tick stop and curb it through the normal path.
		c.faulted[current] = struct{}{}
		if c.candidate == current {
			c.candidate = nil
		}
	}
}

func (c *Controller) transition() {
	next := c.candidate
	prev := c.active
	ctx, span := c.tracer.Start(context.Background(), "ai.Transition",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("agent.id", c.agentID),
			attribute.String("ai.from", nameOf(prev)),
			attribute.String("ai.to", nameOf(next)),
		),
	)
	defer span.End()

	c.metrics.Add(metricTransitions, 1)

	if prev != nil {
		c.active = nil
		prev.Core().Active = false
		delete(c.faulted, prev)
		c.invoke(ctx, prev, hookStop, prev.StopBehavior)
		loggingbehavior.Stopped(ctx, c.publisher, c.tick, c.actor(), logging.BehaviorRef(prev.Core().Name),
			loggingbehavior.StoppedPayload{Reason: stopReasonSuperseded}, nil)
		c.curb(ctx, prev)
	}

	if next == nil {
		return
	}
	next.Core().Active = true
	c.active = next
	if err := c.invoke(ctx, next, hookStart, next.StartBehavior); err != nil {
		next.Core().Active = false
		c.active = nil
		if c.candidate == next {
			c.candidate = nil
		}
		return
	}
	loggingbehavior.Started(ctx, c.publisher, c.tick, c.actor(), logging.BehaviorRef(next.Core().Name),
		loggingbehavior.StartedPayload{Forced: c.forced}, nil)
}

// curb applies the cooldown for a behavior that just stopped. Behaviors that
// implement CurbOverride handle it themselves; the controller never touches
// their Curbed flag.
func (c *Controller) curb(ctx context.Context, b behavior.Behavior) {
	core := b.Core()
	ref := logging.BehaviorRef(core.Name)
	if override, ok := b.(behavior.CurbOverrider); ok {
		c.metrics.Add(metricCurbOverrides, 1)
		c.invoke(ctx, b, hookCurbOverride, override.CurbOverride)
		loggingbehavior.Curbed(ctx, c.publisher, c.tick, c.actor(), ref, loggingbehavior.CurbedPayload{Override: true}, nil)
		return
	}

	core.Curbed = true
	if previous, ok := c.curbAlarms[b]; ok {
		c.alarms.Cancel(previous)
	}
	duration := c.curbDuration(core.CurbMin, core.CurbMax)
	gen := c.generation
	c.curbAlarms[b] = c.alarms.ScheduleOnce(duration, func() {
		if !c.live(gen) {
			return
		}
		delete(c.curbAlarms, b)
		core.Curbed = false
		loggingbehavior.Released(context.Background(), c.publisher, c.tick, c.actor(), ref, nil)
	})
	c.metrics.Add(metricCurbs, 1)
	loggingbehavior.Curbed(ctx, c.publisher, c.tick, c.actor(), ref,
		loggingbehavior.CurbedPayload{DurationMillis: duration.Milliseconds()}, nil)
}

// curbDuration draws uniformly from [lo, hi], both ends included.
func (c *Controller) curbDuration(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return min(lo+time.Duration(c.random()*float64(hi-lo+1)), hi)
}

// PendingCurbs reports how many curb timers are still armed.
func (c *Controller) PendingCurbs() int {
	return len(c.curbAlarms)
}
