package display

import (
	"context"
	"errors"
	"sync"
)

// ErrStoreClosed is returned by Submit after Run has returned.
var ErrStoreClosed = errors.New("display store closed")

type update struct {
	state State
	ack   chan struct{}
}

// Store owns the published State. Writers hand states to the goroutine
// running Run and wait until it has applied them; readers take snapshots or
// subscribe. It starts out Unknown.
type Store struct {
	updates chan update
	done    chan struct{}
	stop    sync.Once

	mu     sync.RWMutex
	cur    State
	subs   map[int]chan State
	nextID int
}

func NewStore() *Store {
	return &Store{
		updates: make(chan update),
		done:    make(chan struct{}),
		cur:     Unknown(),
		subs:    make(map[int]chan State),
	}
}

// Run applies submitted states until ctx is done. Only one Run may be active.
func (s *Store) Run(ctx context.Context) {
	defer s.stop.Do(func() { close(s.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-s.updates:
			s.apply(u.state)
			close(u.ack)
		}
	}
}

func (s *Store) apply(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = st
	for _, ch := range s.subs {
		select {
		case ch <- st:
			continue
		default:
		}
		// Full: drop the oldest so subscribers always end on the latest state.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}

// Submit hands st to the owner loop and returns once it is visible to readers.
func (s *Store) Submit(ctx context.Context, st State) error {
	u := update{state: st, ack: make(chan struct{})}
	select {
	case s.updates <- u:
	case <-s.done:
		return ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-u.ack:
		return nil
	case <-s.done:
		return ErrStoreClosed
	}
}

// Current returns the last applied state.
func (s *Store) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Subscribe returns a channel receiving every applied state, primed with the
// current one, and a cancel func that closes it.
func (s *Store) Subscribe(buf int) (<-chan State, func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan State, buf)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.cur
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}
