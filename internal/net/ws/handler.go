package ws

import (
	"encoding/json"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"depthseeker/internal/sim"
	"depthseeker/internal/telemetry"
)

// HandlerConfig wires the debug endpoint.
type HandlerConfig struct {
	Logger telemetry.Logger
	Hub    *Hub
	Now    func() time.Time
}

// Handler upgrades debug clients, streams the initial snapshot followed by
// behavior events from the hub, and stages inbound commands on the engine.
type Handler struct {
	engine   sim.Engine
	hub      *Hub
	logger   telemetry.Logger
	now      func() time.Time
	upgrader websocket.Upgrader
}

type clientMessage struct {
	Type        string  `json:"type"`
	Agent       string  `json:"agent"`
	Behavior    string  `json:"behavior"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Level       float64 `json:"level"`
	Buff        string  `json:"buff"`
	Duration    string  `json:"duration"`
	Conditional bool    `json:"conditional"`
	Clear       bool    `json:"clear"`
	Seq         uint64  `json:"seq,omitempty"`
}

type snapshotMessage struct {
	Ver      int          `json:"ver"`
	Type     string       `json:"type"`
	Snapshot sim.Snapshot `json:"snapshot"`
}

type commandAckMessage struct {
	Ver     int    `json:"ver"`
	Type    string `json:"type"`
	Seq     uint64 `json:"seq,omitempty"`
	TraceID string `json:"traceId"`
}

type commandRejectMessage struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	Seq    uint64 `json:"seq,omitempty"`
	Reason string `json:"reason"`
	Retry  bool   `json:"retry,omitempty"`
}

const (
	rejectMalformed   = "malformed"
	rejectUnknownType = "unknown_type"
	rejectMissing     = "missing_agent"
	rejectDuration    = "invalid_duration"
)

// NewHandler constructs the debug websocket handler.
func NewHandler(engine sim.Engine, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.Discard()
	}
	hub := cfg.Hub
	if hub == nil {
		hub = NewHub(HubConfig{Logger: logger})
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		engine: engine,
		hub:    hub,
		logger: logger,
		now:    now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
	}
}

// Hub exposes the broadcast sink so it can be registered with the router.
func (h *Handler) Hub() *Hub {
	return h.hub
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[ws] upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	sub, ok := h.hub.subscribe(conn)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}
	defer h.hub.unsubscribe(sub)

	if !h.reply(sub, snapshotMessage{Ver: ProtocolVersion, Type: "snapshot", Snapshot: h.engine.Snapshot()}) {
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Printf("[ws] discarding malformed message from %s: %v", r.RemoteAddr, err)
			if !h.reject(sub, 0, rejectMalformed, false) {
				return
			}
			continue
		}

		if msg.Type == "snapshot" {
			if !h.reply(sub, snapshotMessage{Ver: ProtocolVersion, Type: "snapshot", Snapshot: h.engine.Snapshot()}) {
				return
			}
			continue
		}

		cmd, reason := h.command(msg)
		if reason != "" {
			if !h.reject(sub, msg.Seq, reason, false) {
				return
			}
			continue
		}
		if ok, reason := h.engine.Enqueue(cmd); !ok {
			if !h.reject(sub, msg.Seq, reason, reason == sim.CommandRejectQueueLimit) {
				return
			}
			continue
		}
		if !h.reply(sub, commandAckMessage{Ver: ProtocolVersion, Type: "commandAck", Seq: msg.Seq, TraceID: cmd.TraceID}) {
			return
		}
	}
}

// command translates a client message into a simulation command, returning
// a reject reason when the message cannot be staged.
func (h *Handler) command(msg clientMessage) (sim.Command, string) {
	agent := strings.TrimSpace(msg.Agent)
	if agent == "" {
		return sim.Command{}, rejectMissing
	}
	cmd := sim.Command{
		OriginTick: h.engine.Snapshot().Tick,
		ActorID:    agent,
		IssuedAt:   h.now(),
		TraceID:    uuid.NewString(),
	}
	switch msg.Type {
	case "force":
		cmd.Type = sim.CommandForce
		cmd.Force = &sim.ForceCommand{Behavior: msg.Behavior}
	case "threat":
		cmd.Type = sim.CommandThreat
		cmd.Threat = &sim.ThreatCommand{SourceX: msg.X, SourceY: msg.Y, Level: msg.Level}
	case "buff":
		var d time.Duration
		if msg.Duration != "" {
			parsed, err := time.ParseDuration(msg.Duration)
			if err != nil || parsed < 0 {
				return sim.Command{}, rejectDuration
			}
			d = parsed
		}
		cmd.Type = sim.CommandBuff
		cmd.Buff = &sim.BuffCommand{Buff: msg.Buff, Duration: d, Conditional: msg.Conditional, Clear: msg.Clear}
	case "despawn":
		cmd.Type = sim.CommandDespawn
	default:
		return sim.Command{}, rejectUnknownType
	}
	return cmd, ""
}

func (h *Handler) reject(sub *client, seq uint64, reason string, retry bool) bool {
	return h.reply(sub, commandRejectMessage{
		Ver:    ProtocolVersion,
		Type:   "commandReject",
		Seq:    seq,
		Reason: reason,
		Retry:  retry,
	})
}

func (h *Handler) reply(sub *client, payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Printf("[ws] failed to marshal response: %v", err)
		return true
	}
	if !sub.enqueue(data) {
		select {
		case <-sub.done:
			return false
		default:
		}
		h.logger.Printf("[ws] send buffer full for %s, dropping reply", sub.conn.RemoteAddr())
	}
	return true
}
