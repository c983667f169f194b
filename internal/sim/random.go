package sim

import (
	"math"
	"math/rand"
)

func (w *World) randomFloat() float64 {
	if w != nil && w.deps.RNG != nil {
		return w.deps.RNG.Float64()
	}
	return rand.Float64()
}

func (w *World) randomAngle() float64 {
	return w.randomFloat() * 2 * math.Pi
}

// agentRand derives a per-agent source, so draws made by one agent's
// behaviors never shift another agent's sequence.
func (w *World) agentRand() *rand.Rand {
	var seed int64
	if w != nil && w.deps.RNG != nil {
		seed = w.deps.RNG.Int63()
	} else {
		seed = rand.Int63()
	}
	return rand.New(rand.NewSource(seed))
}
