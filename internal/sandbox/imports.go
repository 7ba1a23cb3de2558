package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kosarica/import-wizard/internal/storage"
	"github.com/kosarica/import-wizard/internal/types"
)

const importsPrefix = "imports/"

var (
	// ErrImportNotFound is returned for unknown import ids
	ErrImportNotFound = errors.New("import not found")
	// ErrNotDraft is returned when discarding an import that was published
	ErrNotDraft = errors.New("only draft imports can be discarded")
)

// ImportStatus is the lifecycle state of a recorded import
type ImportStatus string

const (
	ImportPublished ImportStatus = "published"
	ImportDraft     ImportStatus = "draft"
)

// Record is a confirmed import as persisted by the sandbox
type Record struct {
	ID        string               `json:"id"`
	Owner     string               `json:"owner"`
	Status    ImportStatus         `json:"status"`
	CreatedAt time.Time            `json:"createdAt"`
	Request   types.ConfirmRequest `json:"request"`
	Preview   types.ImportPreview  `json:"preview"`
}

// Summary describes a recorded import without loading it
type Summary struct {
	ID        string       `json:"id"`
	Owner     string       `json:"owner"`
	Status    ImportStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	Size      int64        `json:"size"`
}

// Imports computes previews and records confirmed imports
type Imports struct {
	store  storage.Storage
	now    func() time.Time
	logger *zerolog.Logger
}

// NewImports creates the import service. now defaults to time.Now.
func NewImports(store storage.Storage, now func() time.Time, logger *zerolog.Logger) *Imports {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}
	return &Imports{store: store, now: now, logger: logger}
}

// Preview computes a preview for today
func (s *Imports) Preview(req types.PreviewRequest) (*types.ImportPreview, error) {
	return Compute(req, s.now())
}

// Confirm recomputes the preview and persists the import. The preview is
// never trusted from the caller.
func (s *Imports) Confirm(ctx context.Context, owner string, req types.ConfirmRequest) (*Record, error) {
	preview, err := Compute(req.PreviewRequest, s.now())
	if err != nil {
		return nil, err
	}

	record := &Record{
		ID:        uuid.NewString(),
		Owner:     owner,
		Status:    ImportDraft,
		CreatedAt: s.now().UTC(),
		Request:   req,
		Preview:   *preview,
	}
	if req.Publish {
		record.Status = ImportPublished
	}

	body, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode import record: %w", err)
	}
	err = s.store.Put(ctx, recordKey(record.ID), body, &storage.Metadata{
		ContentType: "application/json",
		CreatedAt:   record.CreatedAt,
		Custom:      map[string]string{"owner": owner, "status": string(record.Status)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store import %s: %w", record.ID, err)
	}

	s.logger.Info().
		Str("import_id", record.ID).
		Str("owner", owner).
		Str("status", string(record.Status)).
		Int("deals", preview.DealCount).
		Int("retained", preview.Retained).
		Msg("Import confirmed")
	return record, nil
}

// Get loads a recorded import
func (s *Imports) Get(ctx context.Context, id string) (*Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", id, ErrImportNotFound)
	}
	body, err := s.store.Get(ctx, recordKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", id, ErrImportNotFound)
	}
	if err != nil {
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("failed to decode import %s: %w", id, err)
	}
	return &record, nil
}

// List returns a summary of every recorded import, read from the stored
// metadata
func (s *Imports) List(ctx context.Context) ([]Summary, error) {
	keys, err := s.store.List(ctx, importsPrefix)
	if err != nil {
		return nil, err
	}
	summaries := make([]Summary, 0, len(keys))
	for _, key := range keys {
		info, err := s.store.GetInfo(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			// Discarded while listing.
			continue
		}
		if err != nil {
			return nil, err
		}
		base := path.Base(key)
		summary := Summary{
			ID:        base[:len(base)-len(path.Ext(base))],
			CreatedAt: info.ModifiedAt.UTC(),
			Size:      info.Size,
		}
		if md := info.Metadata; md != nil {
			summary.Owner = md.Custom["owner"]
			summary.Status = ImportStatus(md.Custom["status"])
			if !md.CreatedAt.IsZero() {
				summary.CreatedAt = md.CreatedAt
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Discard deletes a draft import of owner. Imports of other users are
// reported as not found.
func (s *Imports) Discard(ctx context.Context, owner, id string) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if record.Owner != owner {
		return fmt.Errorf("%s: %w", id, ErrImportNotFound)
	}
	if record.Status != ImportDraft {
		return fmt.Errorf("%s: %w", id, ErrNotDraft)
	}
	if err := s.store.Delete(ctx, recordKey(id)); err != nil {
		return fmt.Errorf("failed to delete import %s: %w", id, err)
	}
	s.logger.Info().Str("import_id", id).Str("owner", owner).Msg("Draft import discarded")
	return nil
}

func recordKey(id string) string {
	return importsPrefix + id + ".json"
}
