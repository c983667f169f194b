package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const defaultServiceName = "depthseeker"

// Config captures opt-in observability toggles that wire into the simulation
// and the debug server.
type Config struct {
	Tracing     bool
	ServiceName string
	// EnablePprof mounts net/http/pprof on the debug server.
	EnablePprof bool
}

// Name returns the instrumentation name used for tracers.
func (c Config) Name() string {
	if c.ServiceName == "" {
		return defaultServiceName
	}
	return c.ServiceName
}

// Tracer returns the global otel tracer when tracing is enabled and a no-op
// tracer otherwise. Exporters are installed by whoever owns the global
// TracerProvider.
func (c Config) Tracer() trace.Tracer {
	if !c.Tracing {
		return noop.NewTracerProvider().Tracer(c.Name())
	}
	return otel.Tracer(c.Name())
}
