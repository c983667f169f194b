// Package buffs tracks the timed and conditional buffs an agent carries in a
// fixed number of slots.
package buffs

import (
	"context"
	"fmt"
	"time"

	"depthseeker/internal/alarm"
	"depthseeker/logging"
	loggingbuffs "depthseeker/logging/buffs"
)

const (
	Geode     = "geode"
	Speed     = "speed"
	JumpBoost = "jump_boost"
	Fiend     = "fiend"
	Symbiosis = "symbiosis"
	Appraisal = "appraisal"
	Hyper     = "hyper"
	Exploit   = "exploit"
)

// Catalog lists every known buff type in display order.
var Catalog = []string{Geode, Speed, JumpBoost, Fiend, Symbiosis, Appraisal, Hyper, Exploit}

var known = func() map[string]struct{} {
	set := make(map[string]struct{}, len(Catalog))
	for _, buff := range Catalog {
		set[buff] = struct{}{}
	}
	return set
}()

const (
	// DefaultSlots is the number of concurrent buffs an agent can carry.
	DefaultSlots = 4
	// RunningLowLead is how long before expiry the running-low warning fires.
	RunningLowLead = 3 * time.Second
	// RunningLowMinimum is the shortest duration that gets a running-low warning.
	RunningLowMinimum = 5 * time.Second
)

// Slot is one buff position.
type Slot struct {
	Name        string `json:"name"`
	Buff        string `json:"buff,omitempty"`
	Active      bool   `json:"active"`
	Conditional bool   `json:"conditional,omitempty"`
	RunningLow  bool   `json:"runningLow,omitempty"`
}

// Config wires a manager to its agent.
type Config struct {
	AgentID   string
	Slots     int
	Timers    *alarm.Timers
	Publisher logging.Publisher
}

// Manager assigns buffs to slots and expires them through named timers.
// It is driven from the simulation goroutine and is not safe for concurrent use.
type Manager struct {
	agentID   string
	timers    *alarm.Timers
	publisher logging.Publisher
	slots     []Slot
}

// NewManager builds a manager with cfg.Slots empty slots.
func NewManager(cfg Config) *Manager {
	count := cfg.Slots
	if count <= 0 {
		count = DefaultSlots
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	m := &Manager{
		agentID:   cfg.AgentID,
		timers:    cfg.Timers,
		publisher: publisher,
		slots:     make([]Slot, count),
	}
	for i := range m.slots {
		m.slots[i].Name = fmt.Sprintf("buff_slot_%d", i+1)
	}
	return m
}

// Known reports whether buff is in the catalog.
func Known(buff string) bool {
	_, ok := known[buff]
	return ok
}

// Trigger activates buff for duration, or extends it when it is already
// running. It reports false for unknown buffs, non-positive durations and
// when every slot is taken.
func (m *Manager) Trigger(buff string, duration time.Duration) bool {
	if !Known(buff) || duration <= 0 {
		return false
	}
	if idx := m.indexOf(buff); idx >= 0 {
		slot := &m.slots[idx]
		total := duration
		if remaining, ok := m.timers.Remaining(slot.Name); ok && !slot.Conditional {
			total += remaining
		}
		slot.Conditional = false
		m.arm(idx, total)
		loggingbuffs.Extended(context.Background(), m.publisher, m.actor(), buff,
			loggingbuffs.SlotPayload{Slot: slot.Name, DurationMillis: total.Milliseconds()})
		return true
	}

	idx := m.freeSlot()
	if idx < 0 {
		return false
	}
	m.slots[idx] = Slot{Name: m.slots[idx].Name, Buff: buff, Active: true}
	m.arm(idx, duration)
	loggingbuffs.Applied(context.Background(), m.publisher, m.actor(), buff,
		loggingbuffs.SlotPayload{Slot: m.slots[idx].Name, DurationMillis: duration.Milliseconds()})
	return true
}

// TriggerConditional activates buff without an expiry timer; it stays until
// Clear is called. Already active buffs are left untouched.
func (m *Manager) TriggerConditional(buff string) bool {
	if !Known(buff) {
		return false
	}
	if m.indexOf(buff) >= 0 {
		return true
	}
	idx := m.freeSlot()
	if idx < 0 {
		return false
	}
	m.slots[idx] = Slot{Name: m.slots[idx].Name, Buff: buff, Active: true, Conditional: true}
	loggingbuffs.Applied(context.Background(), m.publisher, m.actor(), buff,
		loggingbuffs.SlotPayload{Slot: m.slots[idx].Name, Conditional: true})
	return true
}

// Clear removes buff and its timers.
func (m *Manager) Clear(buff string) bool {
	idx := m.indexOf(buff)
	if idx < 0 {
		return false
	}
	m.expire(idx)
	return true
}

// Active reports whether buff currently occupies a slot.
func (m *Manager) Active(buff string) bool {
	return m.indexOf(buff) >= 0
}

// Remaining reports the time left on a timed buff.
func (m *Manager) Remaining(buff string) (time.Duration, bool) {
	idx := m.indexOf(buff)
	if idx < 0 || m.slots[idx].Conditional {
		return 0, false
	}
	return m.timers.Remaining(m.slots[idx].Name)
}

// Slots returns a copy of the slot table.
func (m *Manager) Slots() []Slot {
	out := make([]Slot, len(m.slots))
	copy(out, m.slots)
	return out
}

// Close cancels every slot timer without publishing expiry events.
func (m *Manager) Close() {
	for i := range m.slots {
		m.timers.Clear(m.slots[i].Name)
		m.timers.Clear(lowTimerName(m.slots[i].Name))
	}
}

func (m *Manager) arm(idx int, total time.Duration) {
	slot := &m.slots[idx]
	slot.RunningLow = false
	name := slot.Name
	m.timers.Set(name, total, func() { m.expire(idx) })

	low := lowTimerName(name)
	if total <= RunningLowMinimum {
		m.timers.Clear(low)
		return
	}
	m.timers.Set(low, total-RunningLowLead, func() {
		current := &m.slots[idx]
		if !current.Active {
			return
		}
		current.RunningLow = true
		loggingbuffs.RunningLow(context.Background(), m.publisher, m.actor(), current.Buff,
			loggingbuffs.SlotPayload{Slot: current.Name, DurationMillis: RunningLowLead.Milliseconds()})
	})
}

func (m *Manager) expire(idx int) {
	slot := m.slots[idx]
	if !slot.Active {
		return
	}
	m.timers.Clear(slot.Name)
	m.timers.Clear(lowTimerName(slot.Name))
	m.slots[idx] = Slot{Name: slot.Name}
	loggingbuffs.Expired(context.Background(), m.publisher, m.actor(), slot.Buff,
		loggingbuffs.SlotPayload{Slot: slot.Name, Conditional: slot.Conditional})
}

func (m *Manager) indexOf(buff string) int {
	for i := range m.slots {
		if m.slots[i].Active && m.slots[i].Buff == buff {
			return i
		}
	}
	return -1
}

func (m *Manager) freeSlot() int {
	for i := range m.slots {
		if !m.slots[i].Active {
			return i
		}
	}
	return -1
}

func (m *Manager) actor() logging.EntityRef {
	return logging.AgentRef(m.agentID)
}

func lowTimerName(slot string) string {
	return slot + "_low"
}
