package behaviors

import (
	"time"

	"depthseeker/internal/alarm"
	"depthseeker/internal/behavior"
	"depthseeker/internal/buffs"
)

const (
	restTired         = 0.3
	restResumeBelow   = 0.5
	restWeight        = 3.0
	restRegenRate     = 0.15
	restRegenBuff     = buffs.Symbiosis
	restRegenLength   = 6 * time.Second
	restCheckInterval = 250 * time.Millisecond
	restHomeRadius    = 0.1
)

// Rest walks home and recovers energy there. Instead of a fixed curb it locks
// itself out until energy has drained below ResumeBelow again, so a lifeform
// does not bounce between resting and whatever else it was doing.
type Rest struct {
	behavior.Base

	Tired         float64
	ResumeBelow   float64
	Weight        float64
	RegenRate     float64
	RegenBuff     string
	RegenLength   time.Duration
	CheckInterval time.Duration

	lockout alarm.Handle
}

func NewRest() *Rest {
	return &Rest{
		Tired:         restTired,
		ResumeBelow:   restResumeBelow,
		Weight:        restWeight,
		RegenRate:     restRegenRate,
		RegenBuff:     restRegenBuff,
		RegenLength:   restRegenLength,
		CheckInterval: restCheckInterval,
	}
}

func (r *Rest) SetParam(name string, value any) bool {
	switch name {
	case "regen_buff":
		v, ok := behavior.StringParam(value)
		if ok {
			r.RegenBuff = v
		}
		return ok
	case "regen_length", "check_interval":
		v, ok := behavior.DurationParam(value)
		if !ok {
			return false
		}
		if name == "regen_length" {
			r.RegenLength = v
		} else {
			r.CheckInterval = v
		}
		return true
	}
	v, ok := behavior.FloatParam(value)
	if !ok {
		return false
	}
	switch name {
	case "tired":
		r.Tired = v
	case "resume_below":
		r.ResumeBelow = v
	case "weight":
		r.Weight = v
	case "regen_rate":
		r.RegenRate = v
	default:
		return false
	}
	return true
}

func (r *Rest) CalculateUtility() float64 {
	body := r.Body()
	if body == nil || body.Energy >= r.Tired {
		return 0
	}
	return r.Weight * (1 - body.Energy)
}

func (r *Rest) StartBehavior() {}

func (r *Rest) StopBehavior() {}

func (r *Rest) PerformBehavior(delta float64) {
	body := r.Body()
	if body == nil {
		return
	}
	if !body.MoveToward(body.Home, delta) && body.Home.Sub(body.Position).Len() > restHomeRadius {
		return
	}
	rate := r.RegenRate
	if owner := r.Owner(); owner.Buffs != nil && r.RegenBuff != "" && owner.Buffs.Active(r.RegenBuff) {
		rate *= 2
	}
	body.Energy += rate * delta
	body.Clamp()
}

// CurbOverride locks the behavior out and grants the regen buff. The lockout
// is polled every CheckInterval and lifts once energy is below ResumeBelow.
func (r *Rest) CurbOverride() {
	owner := r.Owner()
	if owner.Buffs != nil && r.RegenBuff != "" && r.RegenLength > 0 {
		owner.Buffs.Trigger(r.RegenBuff, r.RegenLength)
	}
	r.cancelLockout()
	if owner.Alarms == nil || r.CheckInterval <= 0 {
		r.Curbed = false
		return
	}
	r.Curbed = true
	r.lockout = owner.Alarms.ScheduleRepeating(r.CheckInterval, func() {
		body := r.Body()
		if body != nil && body.Energy >= r.ResumeBelow {
			return
		}
		r.cancelLockout()
		r.Curbed = false
	})
}

// Locked reports whether the self-managed lockout is running.
func (r *Rest) Locked() bool {
	return r.lockout != 0
}

// Teardown cancels the lockout poll.
func (r *Rest) Teardown() {
	r.cancelLockout()
}

func (r *Rest) cancelLockout() {
	if r.lockout == 0 {
		return
	}
	if alarms := r.Owner().Alarms; alarms != nil {
		alarms.Cancel(r.lockout)
	}
	r.lockout = 0
}
