package buffs

import (
	"context"

	"depthseeker/logging"
)

const (
	// EventApplied is emitted when a buff takes a free slot.
	EventApplied logging.EventType = "buff.applied"
	// EventExtended is emitted when an active buff is retriggered.
	EventExtended logging.EventType = "buff.extended"
	// EventRunningLow is emitted shortly before a timed buff expires.
	EventRunningLow logging.EventType = "buff.running_low"
	// EventExpired is emitted when a buff leaves its slot.
	EventExpired logging.EventType = "buff.expired"
)

// SlotPayload describes the slot a buff occupies.
type SlotPayload struct {
	Slot           string `json:"slot"`
	DurationMillis int64  `json:"durationMillis,omitempty"`
	Conditional    bool   `json:"conditional,omitempty"`
}

// Applied publishes a buff activation.
func Applied(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, buff string, payload SlotPayload) {
	publish(ctx, pub, EventApplied, logging.SeverityInfo, actor, buff, payload)
}

// Extended publishes a duration extension.
func Extended(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, buff string, payload SlotPayload) {
	publish(ctx, pub, EventExtended, logging.SeverityInfo, actor, buff, payload)
}

// RunningLow publishes the low-duration warning.
func RunningLow(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, buff string, payload SlotPayload) {
	publish(ctx, pub, EventRunningLow, logging.SeverityDebug, actor, buff, payload)
}

// Expired publishes a buff removal.
func Expired(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, buff string, payload SlotPayload) {
	publish(ctx, pub, EventExpired, logging.SeverityInfo, actor, buff, payload)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, actor logging.EntityRef, buff string, payload SlotPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Actor:    actor,
		Targets:  []logging.EntityRef{logging.BuffRef(buff)},
		Severity: severity,
		Category: logging.CategoryBuffs,
		Payload:  payload,
	})
}
