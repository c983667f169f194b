package behaviors

import (
	"time"

	"depthseeker/internal/behavior"
	"depthseeker/internal/buffs"
)

const (
	fleeWeight      = 10.0
	fleeMinThreat   = 0.2
	fleeCalmRate    = 0.25
	fleeEnergyDrain = 0.05
	fleeBurst       = 2 * time.Second
)

// Flee runs directly away from the last threat until it calms down. The
// first tick of a flight grants a speed burst.
type Flee struct {
	behavior.Base

	Weight    float64
	MinThreat float64
	CalmRate  float64
	Burst     time.Duration
}

func NewFlee() *Flee {
	return &Flee{Weight: fleeWeight, MinThreat: fleeMinThreat, CalmRate: fleeCalmRate, Burst: fleeBurst}
}

func (f *Flee) SetParam(name string, value any) bool {
	if name == "burst" {
		v, ok := behavior.DurationParam(value)
		if ok {
			f.Burst = v
		}
		return ok
	}
	v, ok := behavior.FloatParam(value)
	if !ok {
		return false
	}
	switch name {
	case "weight":
		f.Weight = v
	case "min_threat":
		f.MinThreat = v
	case "calm_rate":
		f.CalmRate = v
	default:
		return false
	}
	return true
}

func (f *Flee) CalculateUtility() float64 {
	body := f.Body()
	if body == nil || body.Threat < f.MinThreat {
		return 0
	}
	return f.Weight * body.Threat
}

func (f *Flee) StartBehavior() {
	if owner := f.Owner(); owner.Buffs != nil && f.Burst > 0 {
		owner.Buffs.Trigger(buffs.Speed, f.Burst)
	}
}

func (f *Flee) StopBehavior() {}

func (f *Flee) PerformBehavior(delta float64) {
	body := f.Body()
	if body == nil {
		return
	}
	saved := body.Speed
	body.Speed *= speedFactor(&f.Base)
	body.MoveAway(body.ThreatSource, delta)
	body.Speed = saved
	body.Threat -= f.CalmRate * delta
	body.Energy -= fleeEnergyDrain * delta
	body.Clamp()
}
