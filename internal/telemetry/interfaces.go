// Package telemetry holds the narrow logging and metrics interfaces the
// simulation depends on, so packages below app never import a concrete logger.
package telemetry

import (
	"log"

	"depthseeker/logging"
)

// Logger is the Printf-style diagnostics sink used for operator messages
// (backpressure, hook faults, shutdown). Gameplay events go through
// logging.Publisher instead.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts a function into a Logger. A nil LoggerFunc discards.
type LoggerFunc func(format string, args ...any)

func (f LoggerFunc) Printf(format string, args ...any) {
	if f != nil {
		f(format, args...)
	}
}

// WrapLogger adapts a standard library logger. A nil logger discards.
func WrapLogger(logger *log.Logger) Logger {
	return stdLogger{logger: logger}
}

// Discard drops every message.
func Discard() Logger {
	return LoggerFunc(nil)
}

type stdLogger struct {
	logger *log.Logger
}

func (l stdLogger) Printf(format string, args ...any) {
	if l.logger != nil {
		l.logger.Printf(format, args...)
	}
}

// StandardLogger exposes the wrapped logger, e.g. as the router fallback.
func (l stdLogger) StandardLogger() *log.Logger {
	return l.logger
}

// Metrics is a keyed counter/gauge surface.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// WrapMetrics exposes router-owned counters as Metrics so the simulation and
// the event router report into one store.
func WrapMetrics(metrics *logging.Metrics) Metrics {
	if metrics == nil {
		return NopMetrics()
	}
	return routerMetrics{metrics: metrics}
}

type routerMetrics struct {
	metrics *logging.Metrics
}

func (m routerMetrics) Add(key string, delta uint64) {
	m.metrics.TelemetryAdd(key, delta)
}

func (m routerMetrics) Store(key string, value uint64) {
	m.metrics.TelemetryStore(key, value)
}

type nopMetrics struct{}

func (nopMetrics) Add(string, uint64)   {}
func (nopMetrics) Store(string, uint64) {}

// NopMetrics discards every sample.
func NopMetrics() Metrics {
	return nopMetrics{}
}
