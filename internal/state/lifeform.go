package state

import "math"

// Vec2 is a position or direction on the simulation plane.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Lifeform stores the body and needs of one agent. Needs are normalised to
// [0, 1]; behaviors read them to score utility and mutate them while active.
type Lifeform struct {
	ID       string
	Type     string
	Position Vec2
	Home     Vec2
	Speed    float64

	Energy float64
	Hunger float64
	Threat float64
	// ThreatSource is where the most recent threat came from.
	ThreatSource Vec2
}

// Clamp keeps every need inside [0, 1].
func (l *Lifeform) Clamp() {
	if l == nil {
		return
	}
	l.Energy = clamp01(l.Energy)
	l.Hunger = clamp01(l.Hunger)
	l.Threat = clamp01(l.Threat)
}

// MoveToward steps the body toward target by at most speed*delta and reports
// whether the target was reached.
func (l *Lifeform) MoveToward(target Vec2, delta float64) bool {
	if l == nil {
		return false
	}
	offset := target.Sub(l.Position)
	dist := offset.Len()
	step := l.Speed * delta
	if dist <= step || dist == 0 {
		l.Position = target
		return true
	}
	l.Position.X += offset.X / dist * step
	l.Position.Y += offset.Y / dist * step
	return false
}

// MoveAway steps the body directly away from source.
func (l *Lifeform) MoveAway(source Vec2, delta float64) {
	if l == nil {
		return
	}
	offset := l.Position.Sub(source)
	dist := offset.Len()
	if dist == 0 {
		offset = Vec2{X: 1}
		dist = 1
	}
	step := l.Speed * delta
	l.Position.X += offset.X / dist * step
	l.Position.Y += offset.Y / dist * step
}

// Bounds clamps the body inside the rectangle [0,w]x[0,h].
func (l *Lifeform) Bounds(w, h float64) {
	if l == nil {
		return
	}
	l.Position.X = math.Max(0, math.Min(w, l.Position.X))
	l.Position.Y = math.Max(0, math.Min(h, l.Position.Y))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
