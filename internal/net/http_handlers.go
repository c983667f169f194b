package net

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/pprof"
	"time"

	"depthseeker/internal/net/ws"
	"depthseeker/internal/observability"
	"depthseeker/internal/sim"
	"depthseeker/internal/telemetry"
	"depthseeker/logging"
)

type HTTPHandlerConfig struct {
	Logger        telemetry.Logger
	Metrics       *logging.Metrics
	Hub           *ws.Hub
	TickRate      int
	Observability observability.Config
	Now           func() time.Time
}

// NewHTTPHandler exposes the debug surface: health, diagnostics, agent
// snapshots and the websocket event stream.
func NewHTTPHandler(engine sim.Engine, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.Discard()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		snapshot := engine.Snapshot()
		var metrics map[string]uint64
		if cfg.Metrics != nil {
			metrics = cfg.Metrics.Snapshot()
		}
		subscribers := 0
		if cfg.Hub != nil {
			subscribers = cfg.Hub.Subscribers()
		}
		payload := struct {
			Status      string            `json:"status"`
			ServerTime  int64             `json:"serverTime"`
			Tick        uint64            `json:"tick"`
			Agents      int               `json:"agents"`
			TickRate    int               `json:"tickRate"`
			Subscribers int               `json:"subscribers"`
			Telemetry   map[string]uint64 `json:"telemetry,omitempty"`
		}{
			Status:      "ok",
			ServerTime:  now().UnixMilli(),
			Tick:        snapshot.Tick,
			Agents:      len(snapshot.Agents),
			TickRate:    cfg.TickRate,
			Subscribers: subscribers,
			Telemetry:   metrics,
		}
		writeJSON(w, logger, payload)
	})

	mux.HandleFunc("/agents", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, logger, engine.Snapshot())
	})

	mux.HandleFunc("/agents/{id}", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		agent, ok := engine.Snapshot().Find(r.PathValue("id"))
		if !ok {
			httpError(w, "unknown agent", nethttp.StatusNotFound)
			return
		}
		writeJSON(w, logger, agent)
	})

	handler := ws.NewHandler(engine, ws.HandlerConfig{Logger: logger, Hub: cfg.Hub, Now: now})
	mux.HandleFunc("/ws", handler.Handle)

	if cfg.Observability.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	return mux
}

func writeJSON(w nethttp.ResponseWriter, logger telemetry.Logger, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("[http] failed to encode response: %v", err)
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, message string, status int) {
	nethttp.Error(w, message, status)
}
