package sim

import (
	"math/rand"

	"go.opentelemetry.io/otel/trace"

	"depthseeker/internal/telemetry"
	"depthseeker/logging"
)

// Deps carries shared infrastructure dependencies required by the simulation engine.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Clock     logging.Clock
	RNG       *rand.Rand
	Publisher logging.Publisher
	Tracer    trace.Tracer
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = telemetry.Discard()
	}
	if d.Metrics == nil {
		d.Metrics = telemetry.NopMetrics()
	}
	if d.Clock == nil {
		d.Clock = logging.SystemClock{}
	}
	if d.RNG == nil {
		d.RNG = rand.New(rand.NewSource(1))
	}
	if d.Publisher == nil {
		d.Publisher = logging.NopPublisher()
	}
	return d
}
