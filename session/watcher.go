package session

import (
	"context"
	"log/slog"
	"sort"
	"time"

	serial "github.com/luhtfiimanal/go-thermo-serial"
)

// EventKind distinguishes device arrival from removal.
type EventKind int

const (
	Attached EventKind = iota
	Detached
)

func (k EventKind) String() string {
	if k == Detached {
		return "detached"
	}
	return "attached"
}

// Event is a device hotplug notification.
type Event struct {
	Kind EventKind
	Path string
}

// Watcher polls for serial devices and reports arrivals and removals.
type Watcher struct {
	Interval time.Duration
	List     func() ([]string, error) // defaults to serial.ListPorts
	Logger   *slog.Logger
}

// Run polls until ctx is done and closes the returned channel afterwards.
// Devices present at start are reported as Attached, in sorted order.
func (w *Watcher) Run(ctx context.Context) <-chan Event {
	list := w.List
	if list == nil {
		list = serial.ListPorts
	}
	interval := w.Interval
	if interval <= 0 {
		interval = time.Second
	}
	log := w.Logger
	if log == nil {
		log = slog.Default()
	}

	out := make(chan Event, 8)
	go func() {
		defer close(out)
		known := map[string]bool{}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			ports, err := list()
			if err != nil {
				log.Warn("list serial ports", "err", err)
			} else {
				for _, ev := range diff(known, ports) {
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}

// diff updates known to ports and returns the changes, removals first.
func diff(known map[string]bool, ports []string) []Event {
	present := make(map[string]bool, len(ports))
	for _, p := range ports {
		present[p] = true
	}
	var gone []string
	for p := range known {
		if !present[p] {
			gone = append(gone, p)
		}
	}
	sort.Strings(gone)
	events := make([]Event, 0, len(gone))
	for _, p := range gone {
		events = append(events, Event{Kind: Detached, Path: p})
		delete(known, p)
	}
	for _, p := range ports {
		if !known[p] {
			events = append(events, Event{Kind: Attached, Path: p})
			known[p] = true
		}
	}
	return events
}
