package behaviors

import (
	"depthseeker/internal/behavior"
	"depthseeker/internal/state"
)

const (
	swarmWeight       = 0.6
	swarmVariance     = 0.15
	swarmLift         = 0.5
	swarmArriveRadius = 0.05
)

// Swarm keeps a lifeform hovering around its home point, re-drawing a small
// random offset each time it arrives. Fireflies use it to cluster.
type Swarm struct {
	behavior.Base

	Weight   float64
	Variance float64
	Lift     float64

	offset state.Vec2
}

func NewSwarm() *Swarm {
	return &Swarm{Weight: swarmWeight, Variance: swarmVariance, Lift: swarmLift}
}

func (s *Swarm) SetParam(name string, value any) bool {
	v, ok := behavior.FloatParam(value)
	if !ok {
		return false
	}
	switch name {
	case "weight":
		s.Weight = v
	case "variance":
		s.Variance = v
	case "lift":
		s.Lift = v
	default:
		return false
	}
	return true
}

// CalculateUtility drops as the lifeform gets hungry.
func (s *Swarm) CalculateUtility() float64 {
	body := s.Body()
	if body == nil {
		return 0
	}
	return s.Weight * (1 - body.Hunger)
}

func (s *Swarm) StartBehavior() {
	s.drawOffset()
}

func (s *Swarm) StopBehavior() {
	s.offset = state.Vec2{}
}

func (s *Swarm) PerformBehavior(delta float64) {
	body := s.Body()
	if body == nil {
		return
	}
	target := s.Anchor()
	if body.MoveToward(target, delta) || target.Sub(body.Position).Len() < swarmArriveRadius {
		s.drawOffset()
	}
}

// Anchor is the point around home the lifeform is currently circling.
func (s *Swarm) Anchor() state.Vec2 {
	body := s.Body()
	if body == nil {
		return s.offset
	}
	return state.Vec2{X: body.Home.X + s.offset.X, Y: body.Home.Y + s.offset.Y}
}

func (s *Swarm) drawOffset() {
	s.offset = state.Vec2{
		X: (s.Random()*2 - 1) * s.Variance,
		Y: (s.Random()*2-1)*s.Variance + s.Lift,
	}
}
