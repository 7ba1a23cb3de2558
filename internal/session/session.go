// Package session wires the wizard store to the remote API: uploads are
// parsed remotely, parameter changes schedule previews, and confirmation is
// handed to the orchestrator.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kosarica/import-wizard/internal/confirm"
	"github.com/kosarica/import-wizard/internal/mapping"
	"github.com/kosarica/import-wizard/internal/preview"
	"github.com/kosarica/import-wizard/internal/types"
	"github.com/kosarica/import-wizard/internal/wizard"
)

// ErrBusy is returned when an upload is attempted while the wizard is not idle
var ErrBusy = errors.New("wizard is busy")

// Client is the remote API as seen by a session
type Client interface {
	Parse(ctx context.Context, file *types.FileHandle) (*types.ParseResult, error)
	Preview(ctx context.Context, req types.PreviewRequest) (*types.ImportPreview, error)
	Confirm(ctx context.Context, req types.ConfirmRequest) (*types.ConfirmResult, error)
}

// Options configures a Session
type Options struct {
	Debounce       time.Duration
	PhaseDelay     time.Duration
	Phases         []confirm.Phase
	OnPreviewError func(error)
	OnPhase        func(index int, phase confirm.Phase)
	Logger         *zerolog.Logger
}

// Session is one run of the import wizard
type Session struct {
	store        *wizard.Store
	scheduler    *preview.Scheduler
	orchestrator *confirm.Orchestrator
	client       Client
	logger       *zerolog.Logger
}

// New creates a session in the initial wizard state
func New(client Client, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}
	sessionLogger := logger.With().Str("component", "session").Logger()

	store := wizard.NewStore(logger)
	s := &Session{
		store:  store,
		client: client,
		logger: &sessionLogger,
		scheduler: preview.NewScheduler(client, store, preview.Options{
			Debounce: opts.Debounce,
			OnError:  opts.OnPreviewError,
			Logger:   logger,
		}),
		orchestrator: confirm.NewOrchestrator(client, store, confirm.Options{
			Phases:     opts.Phases,
			PhaseDelay: opts.PhaseDelay,
			OnPhase:    opts.OnPhase,
			Logger:     logger,
		}),
	}
	store.Subscribe(s.onEvent)
	return s
}

func (s *Session) onEvent(ev wizard.Event, prev, next wizard.State) {
	switch e := ev.(type) {
	case wizard.Reset, wizard.SetFile:
		s.scheduler.Cancel()
		return
	case wizard.SetStatus:
		if e.Status == wizard.StatusConfirming && next.Status == wizard.StatusConfirming {
			s.scheduler.Cancel()
		}
		return
	}
	// Edits are ignored while locked, so they must not schedule work either.
	if wizard.AffectsPreview(ev) && !prev.Locked() {
		s.scheduler.Trigger()
	}
}

// Snapshot returns the current wizard state
func (s *Session) Snapshot() wizard.State {
	return s.store.Snapshot()
}

// Dispatch applies a wizard event
func (s *Session) Dispatch(ev wizard.Event) wizard.State {
	return s.store.Dispatch(ev)
}

// Subscribe registers a listener for applied wizard events. Listeners run
// synchronously on the dispatching goroutine and may dispatch further events.
func (s *Session) Subscribe(l wizard.Listener) {
	s.store.Subscribe(l)
}

// Phases returns the progress phases shown while confirming
func (s *Session) Phases() []confirm.Phase {
	return s.orchestrator.Phases()
}

// Upload sends file to the remote parser and loads the result into the
// wizard. The column mapping is pre-filled from the returned headers. On
// failure the wizard returns to idle and keeps its previous file.
func (s *Session) Upload(ctx context.Context, file *types.FileHandle) (*types.ParseResult, error) {
	if file == nil {
		return nil, errors.New("no file")
	}
	if state := s.store.Dispatch(wizard.SetStatus{Status: wizard.StatusLoading}); state.Status != wizard.StatusLoading {
		return nil, fmt.Errorf("cannot upload while %s: %w", state.Status, ErrBusy)
	}

	log := s.logger.With().Str("file", file.Name).Str("type", string(file.Type)).Logger()
	log.Info().Int64("size", file.Size).Msg("Uploading file")

	result, err := s.client.Parse(ctx, file)
	if err != nil {
		s.store.Dispatch(wizard.SetStatus{Status: wizard.StatusIdle})
		log.Error().Err(err).Msg("Parse failed")
		return nil, fmt.Errorf("failed to parse %s: %w", file.Name, err)
	}

	s.store.Dispatch(wizard.SetFile{File: file})
	s.store.Dispatch(wizard.SetParsedColumns{Columns: result.Columns})
	s.store.Dispatch(wizard.SetMapping{Mapping: mapping.Suggest(result.Columns)})
	s.store.Dispatch(wizard.SetParseErrors{Errors: result.Errors})
	s.store.Dispatch(wizard.SetRawRows{Rows: result.Rows})
	s.store.Dispatch(wizard.SetStatus{Status: wizard.StatusIdle})

	log.Info().
		Int("columns", len(result.Columns)).
		Int("rows", len(result.Rows)).
		Int("issues", len(result.Errors)).
		Msg("File parsed")
	return result, nil
}

// WaitPreview blocks until no preview is pending or in flight
func (s *Session) WaitPreview(ctx context.Context) error {
	return s.scheduler.Wait(ctx)
}

// Confirm commits the import. See confirm.Orchestrator.Run.
func (s *Session) Confirm(ctx context.Context) (*types.ConfirmResult, error) {
	return s.orchestrator.Run(ctx)
}

// Reset returns the wizard to its initial state and drops pending previews
func (s *Session) Reset() {
	s.store.Dispatch(wizard.Reset{})
}

// Close stops background preview work
func (s *Session) Close() {
	s.scheduler.Close()
}
