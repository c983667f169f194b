package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"depthseeker/logging"
)

// Console prints one human readable line per event.
type Console struct {
	logger *log.Logger
}

func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = io.Discard
	}
	return &Console{logger: log.New(w, "", log.LstdFlags)}
}

func (s *Console) Write(event logging.Event) error {
	s.logger.Print(FormatLine(event))
	return nil
}

func (s *Console) Close(context.Context) error {
	return nil
}

// FormatLine renders an event as
// "tick=12 agent:cruncher-1 behavior.started -> behavior:rest [info] {...}".
func FormatLine(event logging.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "tick=%d %s %s", event.Tick, entityLabel(event.Actor), event.Type)
	if len(event.Targets) > 0 {
		labels := make([]string, len(event.Targets))
		for i, target := range event.Targets {
			labels[i] = entityLabel(target)
		}
		fmt.Fprintf(&b, " -> %s", strings.Join(labels, ","))
	}
	fmt.Fprintf(&b, " [%s]", event.Severity)
	if event.Payload != nil {
		if data, err := json.Marshal(event.Payload); err == nil {
			fmt.Fprintf(&b, " %s", data)
		} else {
			fmt.Fprintf(&b, " %v", event.Payload)
		}
	}
	return b.String()
}

func entityLabel(ref logging.EntityRef) string {
	switch {
	case ref.ID == "":
		return string(ref.Kind)
	case ref.Kind == "":
		return ref.ID
	default:
		return string(ref.Kind) + ":" + ref.ID
	}
}
