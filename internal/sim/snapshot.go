package sim

import (
	"depthseeker/internal/ai"
	"depthseeker/internal/buffs"
	"depthseeker/internal/state"
)

// AgentSnapshot is the observable state of one agent.
type AgentSnapshot struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Position state.Vec2   `json:"position"`
	Energy   float64      `json:"energy"`
	Hunger   float64      `json:"hunger"`
	Threat   float64      `json:"threat"`
	AI       ai.Snapshot  `json:"ai"`
	Buffs    []buffs.Slot `json:"buffs"`
}

// Snapshot captures the world at a tick boundary.
type Snapshot struct {
	Tick   uint64          `json:"tick"`
	Agents []AgentSnapshot `json:"agents"`
}

// Snapshot copies the current world state.
func (w *World) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := Snapshot{Tick: w.tick, Agents: make([]AgentSnapshot, 0, len(w.agents))}
	for _, agent := range w.agents {
		body := agent.Body
		snap.Agents = append(snap.Agents, AgentSnapshot{
			ID:       agent.ID,
			Type:     body.Type,
			Position: body.Position,
			Energy:   body.Energy,
			Hunger:   body.Hunger,
			Threat:   body.Threat,
			AI:       agent.Controller.Snapshot(),
			Buffs:    agent.Buffs.Slots(),
		})
	}
	return snap
}

// Find returns the snapshot for id.
func (s Snapshot) Find(id string) (AgentSnapshot, bool) {
	for _, agent := range s.Agents {
		if agent.ID == id {
			return agent, true
		}
	}
	return AgentSnapshot{}, false
}
