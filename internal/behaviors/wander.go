package behaviors

import (
	"math"

	"depthseeker/internal/behavior"
	"depthseeker/internal/buffs"
	"depthseeker/internal/state"
)

const (
	wanderRadius        = 4.0
	wanderWeight        = 0.3
	wanderArriveRadius  = 0.1
	wanderEnergyDrain   = 0.01
	speedBuffMultiplier = 1.5
)

// Wander drifts between random points around the lifeform's home. It is the
// low-priority fallback that keeps an idle lifeform moving.
type Wander struct {
	behavior.Base

	Radius float64
	Weight float64

	target state.Vec2
}

func NewWander() *Wander {
	return &Wander{Radius: wanderRadius, Weight: wanderWeight}
}

func (w *Wander) SetParam(name string, value any) bool {
	v, ok := behavior.FloatParam(value)
	if !ok {
		return false
	}
	switch name {
	case "radius":
		w.Radius = math.Max(0, v)
	case "weight":
		w.Weight = v
	default:
		return false
	}
	return true
}

// CalculateUtility favours wandering when the lifeform is rested.
func (w *Wander) CalculateUtility() float64 {
	body := w.Body()
	if body == nil {
		return 0
	}
	return w.Weight * (0.5 + 0.5*body.Energy)
}

func (w *Wander) StartBehavior() {
	w.pickTarget()
}

func (w *Wander) StopBehavior() {
	w.target = state.Vec2{}
}

func (w *Wander) PerformBehavior(delta float64) {
	body := w.Body()
	if body == nil {
		return
	}
	saved := body.Speed
	body.Speed *= speedFactor(&w.Base)
	reached := body.MoveToward(w.target, delta)
	body.Speed = saved
	if reached || w.target.Sub(body.Position).Len() < wanderArriveRadius {
		w.pickTarget()
	}
	body.Energy -= wanderEnergyDrain * delta
	body.Clamp()
}

// Target reports the point the lifeform is heading for.
func (w *Wander) Target() state.Vec2 {
	return w.target
}

func (w *Wander) pickTarget() {
	body := w.Body()
	if body == nil {
		return
	}
	angle := w.Random() * 2 * math.Pi
	dist := w.Random() * w.Radius
	w.target = state.Vec2{
		X: body.Home.X + math.Cos(angle)*dist,
		Y: body.Home.Y + math.Sin(angle)*dist,
	}
}

func speedFactor(b *behavior.Base) float64 {
	owner := b.Owner()
	if owner.Buffs != nil && owner.Buffs.Active(buffs.Speed) {
		return speedBuffMultiplier
	}
	return 1
}
