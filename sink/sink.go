// Package sink forwards published display states to downstream outputs.
package sink

import (
	"context"
	"log/slog"

	"github.com/luhtfiimanal/go-thermo-serial/display"
)

// Sink receives every distinct state the store applies.
type Sink interface {
	Publish(ctx context.Context, st display.State) error
	Close() error
}

// Forward publishes states to every sink until ctx is done or states closes.
// A failing sink is logged and does not stop the others. Consecutive unknown
// states are forwarded once.
func Forward(ctx context.Context, states <-chan display.State, sinks []Sink, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	lastKnown := true // forward the initial unknown state
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if !st.Known() && !lastKnown {
				continue
			}
			lastKnown = st.Known()
			for _, s := range sinks {
				if err := s.Publish(ctx, st); err != nil {
					log.Error("sink publish failed", "sink", name(s), "err", err)
				}
			}
		}
	}
}

// CloseAll closes every sink, logging failures.
func CloseAll(sinks []Sink, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			log.Warn("sink close failed", "sink", name(s), "err", err)
		}
	}
}

func name(s Sink) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "unnamed"
}
