package ai

import (
	"context"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"depthseeker/internal/behavior"
	"depthseeker/logging"
	loggingbehavior "depthseeker/logging/behavior"
)

// Evaluate scores every registered, non-curbed behavior and stores the one
// with the strictly greatest utility above zero as the best candidate. Ties
// keep the earlier registration. It never changes the active behavior.
func (c *Controller) Evaluate() behavior.Behavior {
	if c.closed {
		return nil
	}
	ctx, span := c.tracer.Start(context.Background(), "ai.Evaluate",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("agent.id", c.agentID)),
	)
	defer span.End()

	var best behavior.Behavior
	bestUtility := 0.0
	scored, skipped := 0, 0
	for _, b := range c.registry.Behaviors() {
		if _, bad := c.faulted[b]; bad || b.Core().Curbed {
			skipped++
			continue
		}
		utility, ok := c.score(ctx, b)
		if !ok {
			skipped++
			continue
		}
		scored++
		if utility > bestUtility {
			bestUtility = utility
			best = b
		}
	}

	previous := c.candidate
	c.candidate = best
	c.forced = false
	c.metrics.Add(metricEvaluations, 1)

	span.SetAttributes(
		attribute.Int("ai.scored", scored),
		attribute.Int("ai.skipped", skipped),
		attribute.String("ai.winner", nameOf(best)),
	)
	if previous != best {
		payload := loggingbehavior.SelectedPayload{
			Utility:  bestUtility,
			Previous: nameOf(previous),
			Scored:   scored,
			Skipped:  skipped,
		}
		var target *logging.EntityRef
		if best != nil {
			ref := logging.BehaviorRef(best.Core().Name)
			target = &ref
		}
		loggingbehavior.Selected(ctx, c.publisher, c.tick, c.actor(), target, payload, nil)
	}
	return best
}

// score returns the behavior's utility and whether it is eligible. Negative,
// NaN and infinite scores are ineligible, as is a panicking scorer.
func (c *Controller) score(ctx context.Context, b behavior.Behavior) (float64, bool) {
	var utility float64
	if err := c.invoke(ctx, b, hookUtility, func() { utility = b.CalculateUtility() }); err != nil {
		return 0, false
	}
	if math.IsNaN(utility) || math.IsInf(utility, 0) || utility < 0 {
		return 0, false
	}
	return utility, true
}

func nameOf(b behavior.Behavior) string {
	if b == nil {
		return ""
	}
	return b.Core().Name
}
