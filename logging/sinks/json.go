package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"depthseeker/logging"
)

// WireEvent is the JSON shape of one event, shared by the JSON lines sink
// and the websocket debug stream.
type WireEvent struct {
	Type      logging.EventType   `json:"type"`
	Tick      uint64              `json:"tick"`
	Time      string              `json:"time"`
	Severity  string              `json:"severity"`
	Category  string              `json:"category,omitempty"`
	Actor     logging.EntityRef   `json:"actor"`
	Targets   []logging.EntityRef `json:"targets,omitempty"`
	Payload   any                 `json:"payload,omitempty"`
	Extra     map[string]any      `json:"extra,omitempty"`
	TraceID   string              `json:"traceId,omitempty"`
	CommandID string              `json:"commandId,omitempty"`
}

// Wire converts event to its JSON shape.
func Wire(event logging.Event) WireEvent {
	return WireEvent{
		Type:      event.Type,
		Tick:      event.Tick,
		Time:      event.Time.UTC().Format(time.RFC3339Nano),
		Severity:  event.Severity.String(),
		Category:  event.Category,
		Actor:     event.Actor,
		Targets:   event.Targets,
		Payload:   event.Payload,
		Extra:     event.Extra,
		TraceID:   event.TraceID,
		CommandID: event.CommandID,
	}
}

// JSON appends one WireEvent per line. With a positive flush interval the
// buffer is flushed in the background; otherwise after every event.
type JSON struct {
	mu      sync.Mutex
	buf     *bufio.Writer
	enc     *json.Encoder
	closer  io.Closer
	eager   bool
	done    chan struct{}
	closing sync.Once
}

// NewJSON writes to w, closing it with the sink when it is an io.Closer.
func NewJSON(w io.Writer, flushInterval time.Duration) *JSON {
	if w == nil {
		w = io.Discard
	}
	buf := bufio.NewWriter(w)
	s := &JSON{buf: buf, enc: json.NewEncoder(buf), eager: flushInterval <= 0, done: make(chan struct{})}
	if closer, ok := w.(io.Closer); ok {
		s.closer = closer
	}
	if !s.eager {
		go s.flushEvery(flushInterval)
	}
	return s
}

func (s *JSON) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(Wire(event)); err != nil {
		return err
	}
	if s.eager {
		return s.buf.Flush()
	}
	return nil
}

// Close flushes and releases the underlying writer.
func (s *JSON) Close(context.Context) error {
	s.closing.Do(func() { close(s.done) })
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.buf.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
		s.closer = nil
	}
	return err
}

func (s *JSON) flushEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.buf.Flush()
			s.mu.Unlock()
		}
	}
}
