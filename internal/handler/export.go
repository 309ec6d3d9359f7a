package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"neurostudy/internal/config"
	models "neurostudy/internal/domain/models/study"
	"neurostudy/internal/httputil"
	"neurostudy/internal/service/export"
)

// MarkdownService converts a study guide to and from markdown notes.
type MarkdownService interface {
	Export(ctx context.Context, userID, studyID string) (*export.Document, error)
	Import(ctx context.Context, userID, studyID string, data []byte) (*models.Session, error)
}

// ExportHandler serves markdown export and import
type ExportHandler struct {
	markdown MarkdownService
	logger   *slog.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(markdown MarkdownService, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		markdown: markdown,
		logger:   logger,
	}
}

// Export downloads the guide as a markdown note
// GET /api/studies/{id}/export
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	studyID, ok := PathParam(w, r, "id", "Study ID")
	if !ok {
		return
	}

	doc, err := h.markdown.Export(r.Context(), httputil.GetUserID(r), studyID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondAttachment(w, doc.Filename, "text/markdown; charset=utf-8", doc.Content)
}

// Import replaces the guide with one parsed from a markdown note. The note is
// the raw body, or the "file" part of a multipart form.
// POST /api/studies/{id}/import
func (h *ExportHandler) Import(w http.ResponseWriter, r *http.Request) {
	studyID, ok := PathParam(w, r, "id", "Study ID")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes)
	var body io.Reader = r.Body
	if isMultipart(r) {
		if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
			invalidBody(w, err)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "No file provided")
			return
		}
		defer func() { _ = file.Close() }()
		body = file
	}

	data, err := io.ReadAll(body)
	if err != nil {
		invalidBody(w, err)
		return
	}

	study, err := h.markdown.Import(r.Context(), httputil.GetUserID(r), studyID, data)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, study)
}
