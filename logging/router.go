package logging

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

// NamedSink registers a sink with the router. A non-empty Categories list
// limits the sink to events of those categories.
type NamedSink struct {
	Name       string
	Sink       Sink
	Categories []string
}

// Router fans published events out to the configured sinks. Publishing never
// blocks the caller: events are dropped once the queue is saturated.
type Router struct {
	cfg      Config
	clock    Clock
	fallback *log.Logger
	metrics  *Metrics
	fields   map[string]any

	inbox  chan Event
	lanes  []*lane
	stop   chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool

	forwarded   atomic.Uint64
	dropped     atomic.Uint64
	nextDropLog atomic.Int64
}

type RouterStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
}

const (
	metricEventsTotal  = "logging_events_total"
	metricDroppedTotal = "logging_dropped_total"

	minLaneBuffer = 32
	maxLaneBuffer = 1024
)

// NewRouter starts the dispatcher and one worker per sink.
func NewRouter(clock Clock, cfg Config, fallback *log.Logger, namedSinks []NamedSink) (*Router, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	if fallback == nil {
		fallback = log.New(os.Stderr, "[logging] ", log.LstdFlags)
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}

	laneBuffer := min(max(cfg.BufferSize, minLaneBuffer), maxLaneBuffer)
	lanes := make([]*lane, 0, len(namedSinks))
	for _, named := range namedSinks {
		if named.Name == "" {
			return nil, errors.New("logging: sink name is required")
		}
		for _, existing := range lanes {
			if existing.name == named.Name {
				return nil, fmt.Errorf("logging: duplicate sink %s", named.Name)
			}
		}
		if named.Sink == nil {
			continue
		}
		lanes = append(lanes, newLane(named, laneBuffer, fallback))
	}

	r := &Router{
		cfg:      cfg,
		clock:    clock,
		fallback: fallback,
		metrics:  NewMetrics(),
		fields:   cfg.CloneFields(),
		inbox:    make(chan Event, cfg.BufferSize),
		lanes:    lanes,
		stop:     make(chan struct{}),
	}
	r.wg.Add(1 + len(lanes))
	go r.dispatch()
	for _, l := range lanes {
		go func(l *lane) {
			defer r.wg.Done()
			l.run()
		}(l)
	}
	return r, nil
}

// Publish queues event for the sinks. Events without a type are ignored.
func (r *Router) Publish(_ context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.inbox <- event:
	default:
		r.drop(event)
	}
}

// Close stops accepting events, flushes everything already queued and closes
// every sink. The first sink error is returned.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.stop)
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	var firstErr error
	for _, l := range r.lanes {
		if err := l.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	return RouterStats{
		EventsTotal:  r.forwarded.Load(),
		DroppedTotal: r.dropped.Load(),
	}
}

// Metrics exposes the router-owned counters so other components can share them.
func (r *Router) Metrics() *Metrics {
	return r.metrics
}

func (r *Router) Sink(name string) Sink {
	for _, l := range r.lanes {
		if l.name == name {
			return l.sink
		}
	}
	return nil
}

func (r *Router) dispatch() {
	defer func() {
		for _, l := range r.lanes {
			close(l.events)
		}
		r.wg.Done()
	}()
	for {
		select {
		case event := <-r.inbox:
			r.forward(event)
		case <-r.stop:
			for {
				select {
				case event := <-r.inbox:
					r.forward(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Router) forward(event Event) {
	if event.Severity < r.cfg.MinimumSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	event = mergeFields(event, r.fields)
	r.forwarded.Add(1)
	r.metrics.TelemetryAdd(metricEventsTotal, 1)
	for _, l := range r.lanes {
		if l.accepts(event) {
			l.offer(event)
		}
	}
}

func (r *Router) drop(event Event) {
	r.dropped.Add(1)
	r.metrics.TelemetryAdd(metricDroppedTotal, 1)
	interval := r.cfg.DropWarnInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	now := time.Now().UnixNano()
	next := r.nextDropLog.Load()
	if now >= next && r.nextDropLog.CompareAndSwap(next, now+interval.Nanoseconds()) {
		r.fallback.Printf("dropping event type=%s tick=%d", event.Type, event.Tick)
	}
}

// lane owns one sink and retries it with backoff after write failures.
type lane struct {
	name       string
	sink       Sink
	categories map[string]struct{}
	events     chan Event
	fallback   *log.Logger
	failures   int
	retryAt    time.Time
}

func newLane(named NamedSink, buffer int, fallback *log.Logger) *lane {
	l := &lane{
		name:     named.Name,
		sink:     named.Sink,
		events:   make(chan Event, buffer),
		fallback: fallback,
	}
	if len(named.Categories) > 0 {
		l.categories = make(map[string]struct{}, len(named.Categories))
		for _, category := range named.Categories {
			l.categories[strings.ToLower(strings.TrimSpace(category))] = struct{}{}
		}
	}
	return l
}

func (l *lane) accepts(event Event) bool {
	if l.categories == nil {
		return true
	}
	_, ok := l.categories[strings.ToLower(event.Category)]
	return ok
}

func (l *lane) offer(event Event) {
	select {
	case l.events <- CloneEvent(event):
	default:
		l.fallback.Printf("sink %s backlog full dropping event type=%s", l.name, event.Type)
	}
}

func (l *lane) run() {
	for event := range l.events {
		if l.failures > 0 {
			if wait := time.Until(l.retryAt); wait > 0 {
				time.Sleep(wait)
			}
		}
		if err := l.sink.Write(event); err != nil {
			l.failures++
			delay := time.Duration(1<<min(l.failures, 5)) * time.Second
			l.retryAt = time.Now().Add(delay)
			l.fallback.Printf("sink %s failed: %v (retry in %s)", l.name, err, delay)
			continue
		}
		l.failures = 0
	}
}
