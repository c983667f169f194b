package ai

// BehaviorStatus is the observable state of one registered behavior.
type BehaviorStatus struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Active bool   `json:"active"`
	Curbed bool   `json:"curbed"`
}

// Snapshot is a read-only view of a controller, used by the debug endpoint.
type Snapshot struct {
	AgentID   string           `json:"agentId"`
	Active    string           `json:"active,omitempty"`
	Candidate string           `json:"candidate,omitempty"`
	Behaviors []BehaviorStatus `json:"behaviors"`
}

// Snapshot copies the controller state.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		AgentID:   c.agentID,
		Active:    nameOf(c.active),
		Candidate: nameOf(c.candidate),
	}
	behaviors := c.registry.Behaviors()
	snap.Behaviors = make([]BehaviorStatus, 0, len(behaviors))
	for _, b := range behaviors {
		core := b.Core()
		snap.Behaviors = append(snap.Behaviors, BehaviorStatus{
			Name:   core.Name,
			Kind:   core.Kind,
			Active: core.Active,
			Curbed: core.Curbed,
		})
	}
	return snap
}
