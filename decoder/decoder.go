// Package decoder turns a serial byte stream into sensor readings.
//
// A Decoder runs a single blocking read loop over a Transport, assembles
// lines with a Splitter, parses each line with reading.Parse and hands good
// readings to a Handler. Bad lines are logged and skipped; only the transport
// ending or the context being cancelled stops the loop.
package decoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/luhtfiimanal/go-thermo-serial/reading"
)

// ErrTransportClosed is returned by Run when the transport reports it is no
// longer open.
var ErrTransportClosed = errors.New("transport closed")

const (
	DefaultReadTimeout = time.Second
	DefaultChunkSize   = 256
)

// Transport is the byte source the decoder reads from.
type Transport interface {
	// ReadTimeout waits up to d for data. (0, nil) means the wait elapsed.
	ReadTimeout(p []byte, d time.Duration) (int, error)
	IsOpen() bool
}

// Handler receives the decoder output. All methods are called from the
// decoder goroutine.
type Handler interface {
	// HandleStart is called once, before the first read.
	HandleStart()
	HandleReading(r reading.Reading, line string)
	// HandleEnd is called exactly once when Run returns, with the cause.
	HandleEnd(err error)
}

// Stats counts decoder activity. Safe for concurrent reads.
type Stats struct {
	Bytes     atomic.Uint64
	Lines     atomic.Uint64
	Readings  atomic.Uint64
	Malformed atomic.Uint64
}

// StatsSnapshot is a plain copy of Stats.
type StatsSnapshot struct {
	Bytes     uint64 `json:"bytes"`
	Lines     uint64 `json:"lines"`
	Readings  uint64 `json:"readings"`
	Malformed uint64 `json:"malformed"`
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Bytes:     s.Bytes.Load(),
		Lines:     s.Lines.Load(),
		Readings:  s.Readings.Load(),
		Malformed: s.Malformed.Load(),
	}
}

// Decoder configures a read loop. The zero value uses the defaults.
type Decoder struct {
	ReadTimeout time.Duration
	ChunkSize   int
	Logger      *slog.Logger
	Stats       *Stats
}

// Run reads from t until ctx is cancelled, t stops being open, or a read
// fails. It returns ctx.Err(), ErrTransportClosed, or the wrapped read error.
// Bytes after the last terminator are discarded.
func (d *Decoder) Run(ctx context.Context, t Transport, h Handler) (err error) {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	timeout := d.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	size := d.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	stats := d.Stats
	if stats == nil {
		stats = &Stats{}
	}

	h.HandleStart()
	defer func() { h.HandleEnd(err) }()

	var split Splitter
	buf := make([]byte, size)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !t.IsOpen() {
			return ErrTransportClosed
		}
		n, rerr := t.ReadTimeout(buf, timeout)
		if n > 0 {
			stats.Bytes.Add(uint64(n))
			for _, line := range split.Feed(buf[:n]) {
				stats.Lines.Add(1)
				r, perr := reading.Parse(line)
				if perr != nil {
					stats.Malformed.Add(1)
					log.Warn("dropping malformed line", "err", perr, "line", line)
					continue
				}
				stats.Readings.Add(1)
				log.Debug("reading", "line", line)
				h.HandleReading(r, line)
			}
		}
		if rerr != nil {
			if split.Pending() > 0 {
				log.Debug("discarding partial line", "bytes", split.Pending())
				split.Reset()
			}
			// Closing the transport is how a cancelled read is unblocked.
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			return fmt.Errorf("read: %w", rerr)
		}
	}
}
