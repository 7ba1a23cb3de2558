package wizard

import (
	"sync"

	"github.com/rs/zerolog"
)

// Listener is notified after an event has been applied
type Listener func(ev Event, prev, next State)

// Store is the single writer of wizard state. Dispatch calls are serialised;
// listeners run after the store lock is released, in registration order.
//
// The store also keeps a revision that every preview-invalidating event bumps
// under the store lock. A result computed from a snapshot is applied with
// DispatchAt, which refuses it once the revision has moved on.
type Store struct {
	mu        sync.Mutex
	state     State
	revision  uint64
	listeners []Listener
	logger    *zerolog.Logger
}

// NewStore creates a store holding the initial state
func NewStore(logger *zerolog.Logger) *Store {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}
	return &Store{
		state:  Initial(),
		logger: logger,
	}
}

// Snapshot returns the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SnapshotRevision returns the current state and its revision
func (s *Store) SnapshotRevision() (State, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.revision
}

// Subscribe registers a listener for applied events
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Dispatch applies ev and returns the resulting state
func (s *Store) Dispatch(ev Event) State {
	next, _ := s.dispatch(ev, 0, false)
	return next
}

// DispatchAt applies ev only if no preview-invalidating event has been applied
// since rev was read. It reports whether ev was applied.
func (s *Store) DispatchAt(rev uint64, ev Event) (State, bool) {
	return s.dispatch(ev, rev, true)
}

func (s *Store) dispatch(ev Event, rev uint64, guarded bool) (State, bool) {
	s.mu.Lock()
	prev := s.state
	if guarded && rev != s.revision {
		s.mu.Unlock()
		s.logger.Debug().
			Str("event", EventName(ev)).
			Uint64("revision", rev).
			Msg("Wizard event dropped, state has moved on")
		return prev, false
	}
	next := Apply(prev, ev)
	s.state = next
	if InvalidatesPreview(ev) {
		s.revision++
	}
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	s.logger.Debug().
		Str("event", EventName(ev)).
		Str("step", next.CurrentStep.String()).
		Str("status", string(next.Status)).
		Msg("Wizard event applied")

	for _, l := range listeners {
		l(ev, prev, next)
	}
	return next, true
}
