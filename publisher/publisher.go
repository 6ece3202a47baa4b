// Package publisher republishes decoded readings as display state.
package publisher

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/luhtfiimanal/go-thermo-serial/display"
	"github.com/luhtfiimanal/go-thermo-serial/reading"
)

// Phase is the publisher's position in the per-connection lifecycle.
type Phase int32

const (
	Idle Phase = iota
	Reading
)

func (p Phase) String() string {
	if p == Reading {
		return "reading"
	}
	return "idle"
}

// endTimeout bounds the unknown-state handoff when the owner loop is slow.
const endTimeout = 5 * time.Second

// Publisher implements decoder.Handler. Its only side effect is submitting
// states to the store.
type Publisher struct {
	ctx   context.Context
	store *display.Store
	log   *slog.Logger
	phase atomic.Int32
}

// New returns a Publisher for one read loop. ctx is the loop's context; the
// final unknown state is submitted even after it is cancelled.
func New(ctx context.Context, store *display.Store, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{ctx: ctx, store: store, log: log}
}

// Phase reports Reading from the moment the read loop starts until it ends,
// whether or not a valid line has arrived yet.
func (p *Publisher) Phase() Phase { return Phase(p.phase.Load()) }

func (p *Publisher) HandleStart() {
	p.phase.Store(int32(Reading))
}

func (p *Publisher) HandleReading(r reading.Reading, line string) {
	if err := p.store.Submit(p.ctx, display.FromReading(r, line)); err != nil {
		p.log.Debug("state not published", "err", err)
	}
}

func (p *Publisher) HandleEnd(err error) {
	p.phase.Store(int32(Idle))
	p.log.Info("read loop ended, resetting display", "cause", err)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(p.ctx), endTimeout)
	defer cancel()
	if err := p.store.Submit(ctx, display.Unknown()); err != nil {
		p.log.Warn("unknown state not published", "err", err)
	}
}
