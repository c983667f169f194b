// Package alarm provides the one-shot and repeating timers consumed by the AI
// controller and the buff manager. Time is simulated: the owner of a Queue
// advances it once per tick, so every callback runs on the tick goroutine.
package alarm

import (
	"container/heap"
	"time"
)

// Handle identifies a scheduled alarm. The zero Handle is never issued.
type Handle uint64

// Facility schedules callbacks after a delay. Implementations never block the
// caller waiting for an alarm to fire.
type Facility interface {
	ScheduleOnce(delay time.Duration, fn func()) Handle
	ScheduleRepeating(interval time.Duration, fn func()) Handle
	Cancel(h Handle) bool
}

// Tracker is a Facility that can also inspect and adjust pending deadlines.
type Tracker interface {
	Facility
	Remaining(h Handle) (time.Duration, bool)
	Extend(h Handle, extra time.Duration) bool
}

// Queue is a simulated-time alarm queue. It is not safe for concurrent use;
// the simulation loop owns it.
type Queue struct {
	now     time.Duration
	seq     uint64
	next    Handle
	pending entryHeap
	byID    map[Handle]*entry
}

type entry struct {
	id       Handle
	due      time.Duration
	interval time.Duration
	seq      uint64
	fn       func()
	index    int
}

// NewQueue constructs an empty queue at simulated time zero.
func NewQueue() *Queue {
	return &Queue{byID: make(map[Handle]*entry)}
}

// Now reports the simulated time elapsed since the queue was created.
func (q *Queue) Now() time.Duration {
	if q == nil {
		return 0
	}
	return q.now
}

// Pending reports the number of armed alarms.
func (q *Queue) Pending() int {
	if q == nil {
		return 0
	}
	return len(q.byID)
}

// ScheduleOnce arms fn to run once after delay. Negative delays fire on the
// next Advance.
func (q *Queue) ScheduleOnce(delay time.Duration, fn func()) Handle {
	if delay < 0 {
		delay = 0
	}
	return q.push(delay, 0, fn)
}

// ScheduleRepeating arms fn to run every interval until cancelled. A
// non-positive interval is rejected with the zero Handle.
func (q *Queue) ScheduleRepeating(interval time.Duration, fn func()) Handle {
	if interval <= 0 {
		return 0
	}
	return q.push(interval, interval, fn)
}

func (q *Queue) push(delay, interval time.Duration, fn func()) Handle {
	if q == nil || fn == nil {
		return 0
	}
	if q.byID == nil {
		q.byID = make(map[Handle]*entry)
	}
	q.next++
	q.seq++
	e := &entry{id: q.next, due: q.now + delay, interval: interval, seq: q.seq, fn: fn}
	q.byID[e.id] = e
	heap.Push(&q.pending, e)
	return e.id
}

// Cancel disarms h. It reports whether the alarm was still pending.
func (q *Queue) Cancel(h Handle) bool {
	if q == nil {
		return false
	}
	e, ok := q.byID[h]
	if !ok {
		return false
	}
	delete(q.byID, h)
	heap.Remove(&q.pending, e.index)
	return true
}

// CancelAll disarms every pending alarm.
func (q *Queue) CancelAll() {
	if q == nil {
		return
	}
	q.pending = q.pending[:0]
	q.byID = make(map[Handle]*entry)
}

// Remaining reports the time left before h fires.
func (q *Queue) Remaining(h Handle) (time.Duration, bool) {
	if q == nil {
		return 0, false
	}
	e, ok := q.byID[h]
	if !ok {
		return 0, false
	}
	return e.due - q.now, true
}

// Extend pushes the deadline of h back by extra.
func (q *Queue) Extend(h Handle, extra time.Duration) bool {
	if q == nil {
		return false
	}
	e, ok := q.byID[h]
	if !ok {
		return false
	}
	e.due += extra
	if e.due < q.now {
		e.due = q.now
	}
	heap.Fix(&q.pending, e.index)
	return true
}

// Advance moves simulated time forward by delta and runs every alarm that
// comes due, in deadline order. Alarms scheduled by callbacks fire within the
// same call when their deadline falls inside the window. It returns the
// number of callbacks invoked.
func (q *Queue) Advance(delta time.Duration) int {
	if q == nil {
		return 0
	}
	if delta < 0 {
		delta = 0
	}
	target := q.now + delta
	fired := 0
	for len(q.pending) > 0 {
		e := q.pending[0]
		if e.due > target {
			break
		}
		q.now = e.due
		if e.interval > 0 {
			q.seq++
			e.due += e.interval
			e.seq = q.seq
			heap.Fix(&q.pending, 0)
		} else {
			heap.Pop(&q.pending)
			delete(q.byID, e.id)
		}
		e.fn()
		fired++
	}
	q.now = target
	return fired
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

var _ Tracker = (*Queue)(nil)
