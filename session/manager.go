// Package session manages the lifetime of the serial reader: which device is
// open, and the single goroutine decoding it.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	serial "github.com/luhtfiimanal/go-thermo-serial"
	"github.com/luhtfiimanal/go-thermo-serial/decoder"
	"github.com/luhtfiimanal/go-thermo-serial/display"
	"github.com/luhtfiimanal/go-thermo-serial/publisher"
)

// Conn is an open transport the manager owns until its task ends.
type Conn interface {
	decoder.Transport
	io.Closer
}

// Opener opens the device at path.
type Opener func(ctx context.Context, path string) (Conn, error)

// SerialOpener opens serial ports with cfg (Device is replaced by path) and
// raises DTR/RTS when configured. Line-control failures are only logged: some
// adapters and ptys do not support them.
func SerialOpener(cfg serial.Config, log *slog.Logger) Opener {
	if log == nil {
		log = slog.Default()
	}
	return func(_ context.Context, path string) (Conn, error) {
		c := cfg
		c.Device = path
		port, err := serial.Open(c)
		if err != nil {
			return nil, err
		}
		if cfg.DTR {
			if err := port.SetDTR(true); err != nil {
				log.Warn("cannot raise DTR", "device", path, "err", err)
			}
		}
		if cfg.RTS {
			if err := port.SetRTS(true); err != nil {
				log.Warn("cannot raise RTS", "device", path, "err", err)
			}
		}
		log.Info("serial port opened", "device", port.Device(), "baud", cfg.BaudRate)
		return port, nil
	}
}

// Info describes the running reader task.
type Info struct {
	ID        uuid.UUID             `json:"id"`
	Device    string                `json:"device"`
	StartedAt time.Time             `json:"started_at"`
	Phase     string                `json:"phase"`
	Stats     decoder.StatsSnapshot `json:"stats"`
}

type task struct {
	id      uuid.UUID
	path    string
	started time.Time
	conn    Conn
	cancel  context.CancelFunc
	done    chan struct{}
	pub     *publisher.Publisher
	stats   *decoder.Stats
}

// Manager runs at most one reader task at a time.
type Manager struct {
	open    Opener
	store   *display.Store
	decoder decoder.Decoder
	log     *slog.Logger

	// startMu serialises Start/Stop so a new task never opens before the
	// previous one has released its transport.
	startMu sync.Mutex
	mu      sync.Mutex
	active  *task
	wg      sync.WaitGroup
}

// NewManager returns a Manager that opens devices with open and publishes to
// store. dec supplies the read timeout and chunk size; its Logger and Stats
// are set per task.
func NewManager(open Opener, store *display.Store, dec decoder.Decoder, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{open: open, store: store, decoder: dec, log: log}
}

// Start stops any running task, waits for it to exit, then opens path and
// starts decoding it.
func (m *Manager) Start(ctx context.Context, path string) error {
	m.startMu.Lock()
	defer m.startMu.Unlock()

	m.stopActive()

	conn, err := m.open(ctx, path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	tctx, cancel := context.WithCancel(ctx)
	t := &task{
		id:      uuid.New(),
		path:    path,
		started: time.Now(),
		conn:    conn,
		cancel:  cancel,
		done:    make(chan struct{}),
		stats:   &decoder.Stats{},
	}
	log := m.log.With("session", t.id.String(), "device", path)
	t.pub = publisher.New(tctx, m.store, log)

	dec := m.decoder
	dec.Logger = log
	dec.Stats = t.stats

	m.mu.Lock()
	m.active = t
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(t.done)
		defer cancel()
		log.Info("reader started")
		err := dec.Run(tctx, conn, t.pub)
		if cerr := conn.Close(); cerr != nil && !errors.Is(cerr, serial.ErrClosed) {
			log.Debug("close transport", "err", cerr)
		}
		m.mu.Lock()
		if m.active == t {
			m.active = nil
		}
		m.mu.Unlock()
		if errors.Is(err, context.Canceled) {
			log.Info("reader stopped")
			return
		}
		log.Warn("reader ended", "err", err)
	}()
	return nil
}

// Stop cancels the running task, if any, and waits for it to exit.
func (m *Manager) Stop() {
	m.startMu.Lock()
	defer m.startMu.Unlock()
	m.stopActive()
}

// StopDevice stops the running task only if it reads path.
func (m *Manager) StopDevice(path string) bool {
	m.startMu.Lock()
	defer m.startMu.Unlock()
	m.mu.Lock()
	t := m.active
	m.mu.Unlock()
	if t == nil || t.path != path {
		return false
	}
	m.stopActive()
	return true
}

func (m *Manager) stopActive() {
	m.mu.Lock()
	t := m.active
	m.mu.Unlock()
	if t == nil {
		return
	}
	t.cancel()
	// Closing unblocks a read that is waiting out its timeout.
	t.conn.Close()
	<-t.done
}

// Active describes the running task.
func (m *Manager) Active() (Info, bool) {
	m.mu.Lock()
	t := m.active
	m.mu.Unlock()
	if t == nil {
		return Info{}, false
	}
	return Info{
		ID:        t.id,
		Device:    t.path,
		StartedAt: t.started,
		Phase:     t.pub.Phase().String(),
		Stats:     t.stats.Snapshot(),
	}, true
}

// Wait blocks until every task started so far has exited.
func (m *Manager) Wait() { m.wg.Wait() }

// Run consumes device events until ctx is done or events is closed, then
// stops the running task. An attached device is opened only when nothing is
// being read; a detach stops the task reading that device.
func (m *Manager) Run(ctx context.Context, events <-chan Event) error {
	defer m.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			m.handle(ctx, ev)
		}
	}
}

func (m *Manager) handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case Attached:
		if _, busy := m.Active(); busy {
			m.log.Debug("device attached while reading, ignoring", "device", ev.Path)
			return
		}
		if err := m.Start(ctx, ev.Path); err != nil {
			m.log.Error("cannot start reader", "device", ev.Path, "err", err)
		}
	case Detached:
		if m.StopDevice(ev.Path) {
			m.log.Info("device detached", "device", ev.Path)
		}
	}
}
