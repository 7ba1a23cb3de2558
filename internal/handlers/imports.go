package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kosarica/import-wizard/internal/middleware"
	"github.com/kosarica/import-wizard/internal/sandbox"
	"github.com/kosarica/import-wizard/internal/types"
	"github.com/kosarica/import-wizard/internal/upload"
)

// API serves the sandbox import endpoints
type API struct {
	issuer  *sandbox.Issuer
	imports *sandbox.Imports
	logger  *zerolog.Logger
	started time.Time
}

// NewAPI creates the sandbox API handlers
func NewAPI(issuer *sandbox.Issuer, imports *sandbox.Imports, logger *zerolog.Logger) *API {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}
	return &API{issuer: issuer, imports: imports, logger: logger, started: time.Now()}
}

// ParseFile reads an uploaded CSV or XLSX file into columns and rows
// POST /imports/parse (multipart field "file")
func (a *API) ParseFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	if header.Size > upload.MaxFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": upload.ErrTooLarge.Error()})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to open upload: %v", err)})
		return
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, upload.MaxFileSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to read upload: %v", err)})
		return
	}

	file, err := upload.NewHandle(header.Filename, content)
	if err != nil {
		c.JSON(uploadStatus(err), gin.H{"error": err.Error()})
		return
	}
	table, err := upload.ReadTable(file)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	issues := make([]gin.H, 0, len(table.Errors))
	for _, issue := range table.Errors {
		issues = append(issues, gin.H{"rowNumber": issue.Row, "column": issue.Field, "message": issue.Issue})
	}
	a.logger.Debug().
		Str("file", file.Name).
		Int("columns", len(table.Columns)).
		Int("rows", len(table.Rows)).
		Msg("Parsed upload")

	c.JSON(http.StatusOK, gin.H{
		"headers":     table.Columns,
		"data":        table.Rows,
		"parseErrors": issues,
	})
}

// Preview computes a preview without persisting anything
// POST /imports/preview
func (a *API) Preview(c *gin.Context) {
	var req types.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	preview, err := a.imports.Preview(req)
	if err != nil {
		c.JSON(requestStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary": gin.H{
			"total_rows":       preview.TotalRows,
			"retained":         preview.Retained,
			"expired":          preview.Expired,
			"skipped_zero_qty": preview.Ignored,
			"deal_count":       preview.DealCount,
			"total_original":   preview.TotalOriginal,
			"total_final":      preview.TotalFinal,
		},
		"deals": preview.Items,
	})
}

// Confirm records the import for the authenticated user
// POST /imports/confirm
func (a *API) Confirm(c *gin.Context) {
	var req types.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	record, err := a.imports.Confirm(c.Request.Context(), middleware.Subject(c), req)
	if err != nil {
		a.logger.Error().Err(err).Msg("Import confirmation failed")
		c.JSON(requestStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"import_id":     record.ID,
		"created_count": record.Preview.DealCount,
		"status":        record.Status,
	})
}

// GetImport returns a recorded import
// GET /imports/:id
func (a *API) GetImport(c *gin.Context) {
	record, err := a.imports.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, sandbox.ErrImportNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListImports returns a summary of every recorded import
// GET /imports
func (a *API) ListImports(c *gin.Context) {
	summaries, err := a.imports.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imports": summaries, "total": len(summaries)})
}

// DiscardImport deletes a draft import of the authenticated user
// DELETE /imports/:id
func (a *API) DiscardImport(c *gin.Context) {
	err := a.imports.Discard(c.Request.Context(), middleware.Subject(c), c.Param("id"))
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, sandbox.ErrImportNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, sandbox.ErrNotDraft):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		a.logger.Error().Err(err).Str("import_id", c.Param("id")).Msg("Failed to discard import")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func uploadStatus(err error) int {
	switch {
	case errors.Is(err, upload.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, upload.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusUnprocessableEntity
	}
}

func requestStatus(err error) int {
	if errors.Is(err, sandbox.ErrInvalidRequest) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
