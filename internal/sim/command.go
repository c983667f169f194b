package sim

import "time"

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandForce   CommandType = "Force"
	CommandThreat  CommandType = "Threat"
	CommandBuff    CommandType = "Buff"
	CommandDespawn CommandType = "Despawn"
)

// ForceCommand overrides an agent's next behavior. An empty Behavior forces
// the agent idle.
type ForceCommand struct {
	Behavior string `json:"behavior"`
}

// ThreatCommand startles an agent from a point in the world.
type ThreatCommand struct {
	SourceX float64 `json:"sourceX"`
	SourceY float64 `json:"sourceY"`
	Level   float64 `json:"level"`
}

// BuffCommand grants or clears a buff. A zero Duration with Conditional set
// grants a buff that stays until cleared.
type BuffCommand struct {
	Buff        string        `json:"buff"`
	Duration    time.Duration `json:"duration"`
	Conditional bool          `json:"conditional,omitempty"`
	Clear       bool          `json:"clear,omitempty"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64         `json:"originTick"`
	ActorID    string         `json:"actorId"`
	Type       CommandType    `json:"type"`
	IssuedAt   time.Time      `json:"issuedAt"`
	TraceID    string         `json:"traceId,omitempty"`
	Force      *ForceCommand  `json:"force,omitempty"`
	Threat     *ThreatCommand `json:"threat,omitempty"`
	Buff       *BuffCommand   `json:"buff,omitempty"`
}
