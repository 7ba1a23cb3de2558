// Package confirm drives the irreversible commit of an import.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/kosarica/import-wizard/internal/types"
	"github.com/kosarica/import-wizard/internal/wizard"
)

var (
	// ErrNotReady is returned when the wizard is not at an idle review step
	ErrNotReady = errors.New("wizard is not ready to confirm")
	// ErrInProgress is returned when a confirmation is already running
	ErrInProgress = errors.New("confirmation already in progress")
)

var confirmOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "import_confirm_total",
	Help: "Total number of import confirmations by outcome",
}, []string{"outcome"}) // outcome: success, error

// Phase is a named progress stage shown while confirming. Phases are
// display-only and have no effect on what is sent.
type Phase struct {
	Key   string
	Label string
}

// DefaultPhases is the progress sequence shown before the commit call
var DefaultPhases = []Phase{
	{Key: "validating", Label: "Validating rows"},
	{Key: "applying_discounts", Label: "Applying discount rules"},
	{Key: "creating_deals", Label: "Creating deals"},
	{Key: "finalizing", Label: "Finalizing import"},
}

// Confirmer performs the remote commit
type Confirmer interface {
	Confirm(ctx context.Context, req types.ConfirmRequest) (*types.ConfirmResult, error)
}

// StateStore is the part of the wizard store the orchestrator needs
type StateStore interface {
	Snapshot() wizard.State
	Dispatch(ev wizard.Event) wizard.State
}

// Options configures an Orchestrator
type Options struct {
	Phases     []Phase
	PhaseDelay time.Duration
	// OnPhase is called as each phase starts, with its zero-based index.
	OnPhase func(index int, phase Phase)
	Logger  *zerolog.Logger
}

// Orchestrator moves the wizard from idle through confirming to a terminal
// success or error status, issuing exactly one confirm call.
type Orchestrator struct {
	mu      sync.Mutex
	running bool

	client     Confirmer
	store      StateStore
	phases     []Phase
	phaseDelay time.Duration
	onPhase    func(int, Phase)
	logger     *zerolog.Logger
}

// NewOrchestrator creates a confirmation orchestrator
func NewOrchestrator(client Confirmer, store StateStore, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}
	phases := opts.Phases
	if phases == nil {
		phases = DefaultPhases
	}
	return &Orchestrator{
		client:     client,
		store:      store,
		phases:     phases,
		phaseDelay: opts.PhaseDelay,
		onPhase:    opts.OnPhase,
		logger:     logger,
	}
}

// Phases returns the configured phase sequence
func (o *Orchestrator) Phases() []Phase {
	return append([]Phase(nil), o.phases...)
}

// Run commits the current wizard state. It must be called at the review step
// with status idle. The returned error is nil only on success; on failure the
// wizard is left in the error status and can only be left through Reset.
func (o *Orchestrator) Run(ctx context.Context) (*types.ConfirmResult, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrInProgress
	}
	o.running = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	state := o.store.Dispatch(wizard.SetStatus{Status: wizard.StatusConfirming})
	if state.Status != wizard.StatusConfirming {
		return nil, ErrNotReady
	}
	// The state is locked from here on, so the request reflects exactly what
	// the user reviewed.
	req := state.ConfirmRequest()

	log := o.logger.With().
		Bool("publish", req.Publish).
		Int("rows", len(req.RawRows)).
		Int("rules", len(req.DiscountRules)).
		Logger()
	log.Info().Msg("Confirming import")

	if err := o.runPhases(ctx); err != nil {
		return nil, o.finish(&log, nil, fmt.Errorf("confirmation aborted: %w", err))
	}

	result, err := o.client.Confirm(ctx, req)
	return result, o.finish(&log, result, err)
}

func (o *Orchestrator) runPhases(ctx context.Context) error {
	for i, phase := range o.phases {
		if o.onPhase != nil {
			o.onPhase(i, phase)
		}
		if o.phaseDelay <= 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		select {
		case <-time.After(o.phaseDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (o *Orchestrator) finish(log *zerolog.Logger, result *types.ConfirmResult, err error) error {
	if err != nil {
		o.store.Dispatch(wizard.SetStatus{Status: wizard.StatusError})
		confirmOutcomes.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("Import confirmation failed")
		return err
	}
	o.store.Dispatch(wizard.SetStatus{Status: wizard.StatusSuccess})
	confirmOutcomes.WithLabelValues("success").Inc()
	event := log.Info()
	if result != nil {
		event = event.Str("import_id", result.ImportID).Int("created", result.Created)
	}
	event.Msg("Import confirmed")
	return nil
}
