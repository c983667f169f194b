package ai

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"depthseeker/internal/behavior"
	"depthseeker/logging"
	loggingbehavior "depthseeker/logging/behavior"
)

const (
	hookUtility      = "CalculateUtility"
	hookStart        = "StartBehavior"
	hookStop         = "StopBehavior"
	hookPerform      = "PerformBehavior"
	hookCurbOverride = "CurbOverride"
	hookTeardown     = "Teardown"
)

// HookError describes a behavior hook that panicked.
type HookError struct {
	Behavior string
	Hook     string
	Value    any
}

func (e *HookError) Error() string {
	return fmt.Sprintf("behavior %s: %s panicked: %v", e.Behavior, e.Hook, e.Value)
}

// Unwrap exposes the panic value when it was an error.
func (e *HookError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// invoke runs a behavior hook, converting a panic into a HookError that is
// logged, published and recorded on the current span.
func (c *Controller) invoke(ctx context.Context, b behavior.Behavior, hook string, fn func()) (err error) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		hookErr := &HookError{Behavior: b.Core().Name, Hook: hook, Value: recovered}
		err = hookErr
		c.metrics.Add(metricHookFaults, 1)
		c.logger.Printf("[ai] agent=%s %v", c.agentID, hookErr)
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.RecordError(hookErr)
			span.SetStatus(codes.Error, hookErr.Error())
		}
		loggingbehavior.Fault(ctx, c.publisher, c.tick, c.actor(), logging.BehaviorRef(hookErr.Behavior),
			loggingbehavior.FaultPayload{Hook: hook, Error: fmt.Sprint(recovered)}, nil)
	}()
	fn()
	return nil
}
