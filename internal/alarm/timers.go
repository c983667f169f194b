package alarm

import (
	"sort"
	"time"
)

// Timers keys alarms by caller-chosen names. Setting a name that is already
// in use replaces the previous alarm. Name collisions between callers are
// avoided by convention.
type Timers struct {
	source Tracker
	byName map[string]Handle
}

// NewTimers builds a named timer set on top of source.
func NewTimers(source Tracker) *Timers {
	return &Timers{source: source, byName: make(map[string]Handle)}
}

// Set arms a one-shot timer. The name is released before fn runs, so fn may
// set the same name again.
func (t *Timers) Set(name string, length time.Duration, fn func()) {
	if t == nil || t.source == nil || fn == nil {
		return
	}
	t.Clear(name)
	var handle Handle
	handle = t.source.ScheduleOnce(length, func() {
		if current, ok := t.byName[name]; ok && current == handle {
			delete(t.byName, name)
		}
		fn()
	})
	if handle != 0 {
		t.byName[name] = handle
	}
}

// SetRepeating arms a timer that fires every length until cleared.
func (t *Timers) SetRepeating(name string, length time.Duration, fn func()) {
	if t == nil || t.source == nil || fn == nil {
		return
	}
	t.Clear(name)
	if handle := t.source.ScheduleRepeating(length, fn); handle != 0 {
		t.byName[name] = handle
	}
}

// AddTime extends a running timer. It reports false for unknown names.
func (t *Timers) AddTime(name string, extra time.Duration) bool {
	if t == nil {
		return false
	}
	handle, ok := t.byName[name]
	if !ok {
		return false
	}
	return t.source.Extend(handle, extra)
}

// Remaining reports the time left on a named timer.
func (t *Timers) Remaining(name string) (time.Duration, bool) {
	if t == nil {
		return 0, false
	}
	handle, ok := t.byName[name]
	if !ok {
		return 0, false
	}
	return t.source.Remaining(handle)
}

// Clear cancels a named timer.
func (t *Timers) Clear(name string) bool {
	if t == nil {
		return false
	}
	handle, ok := t.byName[name]
	if !ok {
		return false
	}
	delete(t.byName, name)
	return t.source.Cancel(handle)
}

// ClearAll cancels every named timer. Owners call it on teardown.
func (t *Timers) ClearAll() {
	if t == nil {
		return
	}
	for name, handle := range t.byName {
		t.source.Cancel(handle)
		delete(t.byName, name)
	}
}

// Names lists the armed timer names in sorted order.
func (t *Timers) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
