// Package preview recomputes the import preview after parameter changes.
//
// Every qualifying change bumps a generation counter and (re)arms a quiescence
// timer. When the timer fires, one preview call is issued for the parameters
// current at that moment, tagged with the generation that armed it. A result
// is applied only if its generation is still the latest; anything older is
// dropped. The result is written through the store's revision guard, so a
// preview never lands on state that changed after its parameters were read,
// even when the change has not reached the scheduler yet. In-flight calls are
// never cancelled, only ignored.
package preview

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kosarica/import-wizard/internal/types"
	"github.com/kosarica/import-wizard/internal/wizard"
)

// DefaultDebounce is the default quiescence window
const DefaultDebounce = 400 * time.Millisecond

// Previewer performs the remote preview computation
type Previewer interface {
	Preview(ctx context.Context, req types.PreviewRequest) (*types.ImportPreview, error)
}

// StateStore is the part of the wizard store the scheduler needs
type StateStore interface {
	SnapshotRevision() (wizard.State, uint64)
	DispatchAt(rev uint64, ev wizard.Event) (wizard.State, bool)
}

// Scheduler debounces preview recomputation and discards stale results
type Scheduler struct {
	mu         sync.Mutex
	generation uint64
	timer      *time.Timer
	armed      bool
	inflight   int
	idle       chan struct{}
	closed     bool

	delay   time.Duration
	client  Previewer
	store   StateStore
	onError func(error)
	logger  *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// Options configures a Scheduler
type Options struct {
	Debounce time.Duration
	// OnError is called for failed previews; the last good preview stays in place.
	OnError func(error)
	Logger  *zerolog.Logger
}

// NewScheduler creates a scheduler that reads parameters from store and
// writes results back to it
func NewScheduler(client Previewer, store StateStore, opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}
	delay := opts.Debounce
	if delay <= 0 {
		delay = DefaultDebounce
	}
	idle := make(chan struct{})
	close(idle)

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		delay:   delay,
		client:  client,
		store:   store,
		onError: opts.OnError,
		logger:  logger,
		idle:    idle,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Generation returns the latest generation
func (s *Scheduler) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Trigger records a parameter change and restarts the quiescence timer.
// Results of calls already in flight become stale.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.generation++
	gen := s.generation
	if s.timer != nil {
		s.timer.Stop()
	}
	s.armed = true
	s.markBusy()
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
	previewTriggers.Inc()
}

// Cancel drops the armed timer and invalidates calls in flight
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.armed = false
	s.markIdleIfDone()
}

// Wait blocks until no timer is armed and no call is in flight
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the scheduler. Calls in flight are cancelled and their results
// discarded.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.Cancel()
	s.cancel()
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.generation {
		// A newer trigger re-armed the timer after this one was already due.
		s.mu.Unlock()
		return
	}
	s.armed = false
	s.timer = nil

	state, rev := s.store.SnapshotRevision()
	if !state.HasRows() {
		s.logger.Debug().Uint64("generation", gen).Msg("No rows, skipping preview")
		s.markIdleIfDone()
		s.mu.Unlock()
		return
	}
	req := state.PreviewRequest()
	s.inflight++
	s.mu.Unlock()

	// Wait only returns after the result has been applied or dropped.
	defer func() {
		s.mu.Lock()
		s.inflight--
		s.markIdleIfDone()
		s.mu.Unlock()
	}()

	previewRequests.Inc()
	start := time.Now()
	result, err := s.client.Preview(s.ctx, req)
	previewDuration.Observe(time.Since(start).Seconds())

	s.mu.Lock()
	latest := s.generation
	s.mu.Unlock()

	if gen != latest {
		previewStale.Inc()
		s.logger.Debug().
			Uint64("generation", gen).
			Uint64("latest", latest).
			Msg("Discarding stale preview result")
		return
	}
	if err != nil {
		previewFailures.Inc()
		s.logger.Warn().Err(err).Uint64("generation", gen).Msg("Preview failed, keeping last preview")
		if s.onError != nil {
			s.onError(err)
		}
		return
	}

	// Listeners run inside DispatchAt and may call Trigger, so s.mu is not held.
	if _, ok := s.store.DispatchAt(rev, wizard.SetPreview{Preview: result}); !ok {
		previewStale.Inc()
		s.logger.Debug().
			Uint64("generation", gen).
			Uint64("revision", rev).
			Msg("Discarding preview computed for replaced state")
		return
	}
	previewApplied.Inc()
	s.logger.Debug().
		Uint64("generation", gen).
		Int("deals", len(result.Items)).
		Msg("Preview applied")
}

// markBusy must be called with s.mu held
func (s *Scheduler) markBusy() {
	select {
	case <-s.idle:
		s.idle = make(chan struct{})
	default:
	}
}

// markIdleIfDone must be called with s.mu held
func (s *Scheduler) markIdleIfDone() {
	if s.armed || s.inflight > 0 {
		return
	}
	select {
	case <-s.idle:
	default:
		close(s.idle)
	}
}
