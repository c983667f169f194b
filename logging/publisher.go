package logging

import (
	"context"
	"time"
)

type EventType string

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

type EntityKind string

const (
	EntityKindUnknown  EntityKind = "unknown"
	EntityKindAgent    EntityKind = "agent"
	EntityKindBehavior EntityKind = "behavior"
	EntityKindBuff     EntityKind = "buff"
	EntityKindWorld    EntityKind = "world"
)

// Event is one structured record of something an agent, behavior or the
// world did during a tick.
type Event struct {
	Type      EventType      `json:"type"`
	Tick      uint64         `json:"tick"`
	Time      time.Time      `json:"time"`
	Actor     EntityRef      `json:"actor"`
	Targets   []EntityRef    `json:"targets,omitempty"`
	Severity  Severity       `json:"severity"`
	Category  string         `json:"category,omitempty"`
	Payload   any            `json:"payload,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
	TraceID   string         `json:"traceId,omitempty"`
	CommandID string         `json:"commandId,omitempty"`
}

type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

// AgentRef is shorthand for the actor reference of an agent.
func AgentRef(id string) EntityRef {
	return EntityRef{ID: id, Kind: EntityKindAgent}
}

// BehaviorRef identifies a behavior by name.
func BehaviorRef(name string) EntityRef {
	return EntityRef{ID: name, Kind: EntityKindBehavior}
}

// BuffRef identifies a buff type.
func BuffRef(buff string) EntityRef {
	return EntityRef{ID: buff, Kind: EntityKindBuff}
}

const (
	CategoryAI     = "ai"
	CategoryBuffs  = "buffs"
	CategorySystem = "system"
)

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f != nil {
		f(ctx, event)
	}
}

// NopPublisher discards every event.
func NopPublisher() Publisher {
	return PublisherFunc(nil)
}

// WithFields decorates p so every event carries fields in Extra. Keys already
// present on an event win.
func WithFields(p Publisher, fields map[string]any) Publisher {
	if p == nil {
		return NopPublisher()
	}
	if len(fields) == 0 {
		return p
	}
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return PublisherFunc(func(ctx context.Context, event Event) {
		p.Publish(ctx, mergeFields(event, copied))
	})
}

// CloneEvent returns a copy of event whose Targets and Extra can be mutated
// without affecting the original.
func CloneEvent(event Event) Event {
	if len(event.Targets) > 0 {
		event.Targets = append([]EntityRef(nil), event.Targets...)
	}
	if event.Extra != nil {
		extra := make(map[string]any, len(event.Extra))
		for k, v := range event.Extra {
			extra[k] = v
		}
		event.Extra = extra
	}
	return event
}

func mergeFields(event Event, fields map[string]any) Event {
	if len(fields) == 0 {
		return event
	}
	event = CloneEvent(event)
	if event.Extra == nil {
		event.Extra = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		if _, exists := event.Extra[k]; !exists {
			event.Extra[k] = v
		}
	}
	return event
}

// WithExtra returns event with key set in a copy of Extra.
func (e Event) WithExtra(key string, value any) Event {
	e = CloneEvent(e)
	if e.Extra == nil {
		e.Extra = make(map[string]any, 1)
	}
	e.Extra[key] = value
	return e
}
