package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"depthseeker/internal/telemetry"
	"depthseeker/logging"
	"depthseeker/logging/sinks"
)

// ProtocolVersion tags every message sent to debug clients.
const ProtocolVersion = 1

const (
	defaultSendBuffer = 64
	writeWait         = 5 * time.Second

	metricBroadcastDropped = "ws_broadcast_dropped_total"
	metricSubscribers      = "ws_subscribers"
)

// HubConfig tunes the broadcast sink.
type HubConfig struct {
	SendBuffer int
	Logger     telemetry.Logger
	Metrics    telemetry.Metrics
}

// Hub is a logging sink that fans behavior events out to every connected
// debug client. Slow clients lose messages rather than stalling the router.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	buffer  int
	logger  telemetry.Logger
	metrics telemetry.Metrics
}

type eventMessage struct {
	Ver   int             `json:"ver"`
	Type  string          `json:"type"`
	Event sinks.WireEvent `json:"event"`
}

// NewHub constructs an empty hub.
func NewHub(cfg HubConfig) *Hub {
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.Discard()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		buffer:  buffer,
		logger:  logger,
		metrics: metrics,
	}
}

// Write implements logging.Sink.
func (h *Hub) Write(event logging.Event) error {
	data, err := json.Marshal(eventMessage{Ver: ProtocolVersion, Type: "event", Event: sinks.Wire(event)})
	if err != nil {
		return err
	}
	h.broadcast(data)
	return nil
}

// Close implements logging.Sink and disconnects every subscriber.
func (h *Hub) Close(context.Context) error {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.closed = true
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	h.metrics.Store(metricSubscribers, 0)
	return nil
}

// Subscribers reports the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.enqueue(data) {
			h.metrics.Add(metricBroadcastDropped, 1)
		}
	}
}

func (h *Hub) subscribe(conn *websocket.Conn) (*client, bool) {
	c := newClient(conn, h.buffer, h.logger)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, false
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.metrics.Store(metricSubscribers, uint64(count))
	go c.writeLoop()
	return c, true
}

func (h *Hub) unsubscribe(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	h.metrics.Store(metricSubscribers, uint64(count))
	c.close()
}

// client owns the only writer of a websocket connection.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger telemetry.Logger
}

func newClient(conn *websocket.Conn, buffer int, logger telemetry.Logger) *client {
	return &client{
		conn:   conn,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

func (c *client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Printf("[ws] write failed for %s: %v", c.conn.RemoteAddr(), err)
				c.close()
				return
			}
		}
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
		c.conn.Close()
	})
}
