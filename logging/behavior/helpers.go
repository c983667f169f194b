package behavior

import (
	"context"

	"depthseeker/logging"
)

const (
	// EventSelected is emitted when an evaluation pass picks a new best candidate.
	EventSelected logging.EventType = "behavior.selected"
	// EventStarted is emitted when a behavior becomes the active behavior.
	EventStarted logging.EventType = "behavior.started"
	// EventStopped is emitted when the active behavior is stopped.
	EventStopped logging.EventType = "behavior.stopped"
	// EventCurbed is emitted when a stopped behavior enters its cooldown.
	EventCurbed logging.EventType = "behavior.curbed"
	// EventReleased is emitted when a curb timer expires.
	EventReleased logging.EventType = "behavior.released"
	// EventFault is emitted when a behavior hook panics.
	EventFault logging.EventType = "behavior.fault"
	// EventForced is emitted when a caller overrides the best candidate.
	EventForced logging.EventType = "behavior.forced"
	// EventParamSkipped is emitted when registration ignores a template parameter.
	EventParamSkipped logging.EventType = "behavior.param_skipped"
)

// SelectedPayload captures the outcome of an evaluation pass.
type SelectedPayload struct {
	Utility  float64 `json:"utility"`
	Previous string  `json:"previous,omitempty"`
	Scored   int     `json:"scored"`
	Skipped  int     `json:"skipped"`
}

// StartedPayload notes whether the activation came from a forced override.
type StartedPayload struct {
	Forced bool `json:"forced,omitempty"`
}

// StoppedPayload records why the behavior stopped.
type StoppedPayload struct {
	Reason string `json:"reason"`
}

// CurbedPayload describes the cooldown applied to a behavior.
type CurbedPayload struct {
	DurationMillis int64 `json:"durationMillis,omitempty"`
	Override       bool  `json:"override,omitempty"`
}

// FaultPayload describes a recovered hook failure.
type FaultPayload struct {
	Hook  string `json:"hook"`
	Error string `json:"error"`
}

// ParamSkippedPayload names the template parameter that was not applied.
type ParamSkippedPayload struct {
	Kind  string `json:"kind"`
	Param string `json:"param"`
}

// Selected publishes an evaluation result. A nil target means nothing was selected.
func Selected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target *logging.EntityRef, payload SelectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventSelected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryAI,
		Payload:  payload,
		Extra:    extra,
	}
	if target != nil {
		event.Targets = []logging.EntityRef{*target}
	}
	pub.Publish(ctx, event)
}

// Started publishes a behavior activation.
func Started(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload StartedPayload, extra map[string]any) {
	publish(ctx, pub, EventStarted, logging.SeverityInfo, tick, actor, target, payload, extra)
}

// Stopped publishes a behavior deactivation.
func Stopped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload StoppedPayload, extra map[string]any) {
	publish(ctx, pub, EventStopped, logging.SeverityInfo, tick, actor, target, payload, extra)
}

// Curbed publishes the start of a cooldown.
func Curbed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload CurbedPayload, extra map[string]any) {
	publish(ctx, pub, EventCurbed, logging.SeverityDebug, tick, actor, target, payload, extra)
}

// Released publishes the end of a cooldown.
func Released(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, extra map[string]any) {
	publish(ctx, pub, EventReleased, logging.SeverityDebug, tick, actor, target, nil, extra)
}

// Fault publishes a recovered behavior hook failure.
func Fault(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload FaultPayload, extra map[string]any) {
	publish(ctx, pub, EventFault, logging.SeverityError, tick, actor, target, payload, extra)
}

// Forced publishes a manual override of the best candidate.
func Forced(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, extra map[string]any) {
	publish(ctx, pub, EventForced, logging.SeverityInfo, tick, actor, target, nil, extra)
}

// ParamSkipped publishes a template parameter the behavior did not accept.
func ParamSkipped(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, target logging.EntityRef, payload ParamSkippedPayload) {
	publish(ctx, pub, EventParamSkipped, logging.SeverityDebug, 0, actor, target, payload, nil)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: severity,
		Category: logging.CategoryAI,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
