package behaviors

import (
	"time"

	"depthseeker/internal/behavior"
	"depthseeker/internal/buffs"
)

const (
	forageThreshold    = 0.35
	forageWeight       = 2.0
	forageFeedRate     = 0.2
	forageEnergyDrain  = 0.02
	forageSatedBelow   = 0.05
	forageRewardBuff   = buffs.Geode
	forageRewardLength = 8 * time.Second
)

// Forage lowers hunger while active. Finishing a meal grants a short buff.
type Forage struct {
	behavior.Base

	Threshold    float64
	Weight       float64
	FeedRate     float64
	RewardBuff   string
	RewardLength time.Duration

	rewarded bool
}

func NewForage() *Forage {
	return &Forage{
		Threshold:    forageThreshold,
		Weight:       forageWeight,
		FeedRate:     forageFeedRate,
		RewardBuff:   forageRewardBuff,
		RewardLength: forageRewardLength,
	}
}

func (f *Forage) SetParam(name string, value any) bool {
	switch name {
	case "threshold":
		v, ok := behavior.FloatParam(value)
		if ok {
			f.Threshold = v
		}
		return ok
	case "weight":
		v, ok := behavior.FloatParam(value)
		if ok {
			f.Weight = v
		}
		return ok
	case "feed_rate":
		v, ok := behavior.FloatParam(value)
		if ok {
			f.FeedRate = v
		}
		return ok
	case "reward_buff":
		v, ok := behavior.StringParam(value)
		if ok {
			f.RewardBuff = v
		}
		return ok
	case "reward_length":
		v, ok := behavior.DurationParam(value)
		if ok {
			f.RewardLength = v
		}
		return ok
	}
	return false
}

// CalculateUtility is zero until hunger crosses the threshold.
func (f *Forage) CalculateUtility() float64 {
	body := f.Body()
	if body == nil || body.Hunger < f.Threshold {
		return 0
	}
	return f.Weight * body.Hunger
}

func (f *Forage) StartBehavior() {
	f.rewarded = false
}

func (f *Forage) StopBehavior() {}

func (f *Forage) PerformBehavior(delta float64) {
	body := f.Body()
	if body == nil {
		return
	}
	body.Hunger -= f.FeedRate * delta
	body.Energy -= forageEnergyDrain * delta
	body.Clamp()
	if body.Hunger <= forageSatedBelow && !f.rewarded {
		f.rewarded = true
		if owner := f.Owner(); owner.Buffs != nil && f.RewardBuff != "" {
			owner.Buffs.Trigger(f.RewardBuff, f.RewardLength)
		}
	}
}
