package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	known := map[string]bool{}

	require.Equal(t, []Event{
		{Attached, "/dev/ttyACM0"},
		{Attached, "/dev/ttyUSB0"},
	}, diff(known, []string{"/dev/ttyACM0", "/dev/ttyUSB0"}))

	require.Empty(t, diff(known, []string{"/dev/ttyACM0", "/dev/ttyUSB0"}))

	require.Equal(t, []Event{
		{Detached, "/dev/ttyACM0"},
		{Detached, "/dev/ttyUSB0"},
		{Attached, "/dev/ttyUSB1"},
	}, diff(known, []string{"/dev/ttyUSB1"}))
}

func TestWatcher_Run(t *testing.T) {
	var mu sync.Mutex
	ports := []string{"/dev/ttyACM0"}
	fail := false
	w := &Watcher{
		Interval: 5 * time.Millisecond,
		List: func() ([]string, error) {
			mu.Lock()
			defer mu.Unlock()
			if fail {
				return nil, errors.New("sysfs unavailable")
			}
			return append([]string(nil), ports...), nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	events := w.Run(ctx)

	require.Equal(t, Event{Attached, "/dev/ttyACM0"}, <-events)

	mu.Lock()
	fail = true
	mu.Unlock()
	time.Sleep(15 * time.Millisecond)

	mu.Lock()
	fail = false
	ports = nil
	mu.Unlock()
	require.Equal(t, Event{Detached, "/dev/ttyACM0"}, <-events)

	cancel()
	for range events {
	}
}

func TestEventKindString(t *testing.T) {
	require.Equal(t, "attached", Attached.String())
	require.Equal(t, "detached", Detached.String())
}
