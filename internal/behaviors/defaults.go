// Package behaviors provides the concrete lifeform behaviors the AI
// controller schedules, and the per-type defaults used to spawn lifeforms.
package behaviors

import (
	"time"

	"depthseeker/internal/behavior"
	"depthseeker/internal/state"
)

const (
	KindWander = "wander"
	KindForage = "forage"
	KindRest   = "rest"
	KindFlee   = "flee"
	KindSwarm  = "swarm"
)

// NewFactory returns a factory with every built-in kind registered.
func NewFactory() *behavior.Factory {
	f := behavior.NewFactory()
	f.Register(KindWander, func() behavior.Behavior { return NewWander() })
	f.Register(KindForage, func() behavior.Behavior { return NewForage() })
	f.Register(KindRest, func() behavior.Behavior { return NewRest() })
	f.Register(KindFlee, func() behavior.Behavior { return NewFlee() })
	f.Register(KindSwarm, func() behavior.Behavior { return NewSwarm() })
	return f
}

type lifeformDefaults struct {
	speed     float64
	energy    float64
	hunger    float64
	templates []behavior.Template
}

var lifeformDefaultsByType = map[string]lifeformDefaults{
	"cruncher": {
		speed:  1.2,
		energy: 0.8,
		hunger: 0.3,
		templates: []behavior.Template{
			{Kind: KindFlee, CurbMin: time.Second, CurbMax: 2 * time.Second},
			{Kind: KindForage, CurbMin: 3 * time.Second, CurbMax: 6 * time.Second},
			{Kind: KindRest, Params: map[string]any{"resume_below": 0.4}},
			{Kind: KindWander, CurbMin: 500 * time.Millisecond, CurbMax: 1500 * time.Millisecond},
		},
	},
	"moth": {
		speed:  2.0,
		energy: 1,
		hunger: 0.1,
		templates: []behavior.Template{
			{Kind: KindFlee, CurbMin: 500 * time.Millisecond, CurbMax: time.Second, Params: map[string]any{"weight": 6.0}},
			{Kind: KindForage, CurbMin: 2 * time.Second, CurbMax: 4 * time.Second},
			{Kind: KindWander, CurbMin: time.Second, CurbMax: 3 * time.Second, Params: map[string]any{"radius": 6.0}},
		},
	},
	"firefly": {
		speed:  6.0,
		energy: 1,
		templates: []behavior.Template{
			{Kind: KindSwarm, CurbMin: 750 * time.Millisecond, CurbMax: 3 * time.Second},
			{Kind: KindWander, CurbMin: 2 * time.Second, CurbMax: 4 * time.Second, Params: map[string]any{"radius": 0.25}},
			{Kind: KindFlee, CurbMin: time.Second, CurbMax: 2 * time.Second},
		},
	},
}

// Types lists the lifeform types with built-in defaults.
func Types() []string {
	return []string{"cruncher", "firefly", "moth"}
}

// DefaultTemplates returns a copy of the built-in behavior set for a
// lifeform type, or nil when the type has none.
func DefaultTemplates(lifeformType string) []behavior.Template {
	defaults, ok := lifeformDefaultsByType[lifeformType]
	if !ok {
		return nil
	}
	out := make([]behavior.Template, len(defaults.templates))
	for i, tmpl := range defaults.templates {
		out[i] = tmpl.WithParams(nil)
	}
	return out
}

// BootstrapLifeform fills unset body fields from the type defaults. Home
// defaults to the spawn position.
func BootstrapLifeform(body *state.Lifeform) {
	if body == nil {
		return
	}
	defaults := lifeformDefaultsByType[body.Type]
	if body.Speed <= 0 {
		body.Speed = defaults.speed
		if body.Speed <= 0 {
			body.Speed = 1
		}
	}
	if body.Energy == 0 && defaults.energy > 0 {
		body.Energy = defaults.energy
	}
	if body.Hunger == 0 && defaults.hunger > 0 {
		body.Hunger = defaults.hunger
	}
	if body.Home == (state.Vec2{}) {
		body.Home = body.Position
	}
	body.Clamp()
}
