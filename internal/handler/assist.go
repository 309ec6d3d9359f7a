package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"neurostudy/internal/domain"
	"neurostudy/internal/domain/services/generation"
	"neurostudy/internal/httputil"
)

// AssistHandler serves the stateless helpers: refine, diagram, chat and DOI lookup
type AssistHandler struct {
	assist       generation.AssistService
	bibliography generation.Bibliography
	logger       *slog.Logger
}

// NewAssistHandler creates a new assist handler
func NewAssistHandler(assist generation.AssistService, bibliography generation.Bibliography, logger *slog.Logger) *AssistHandler {
	return &AssistHandler{
		assist:       assist,
		bibliography: bibliography,
		logger:       logger,
	}
}

// Refine rewrites a concept as a simpler explanation, an example or a mnemonic
// POST /api/refine
func (h *AssistHandler) Refine(w http.ResponseWriter, r *http.Request) {
	var req generation.RefineRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		invalidBody(w, err)
		return
	}

	resp, err := h.assist.Refine(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// Diagram renders a description as a PNG data URI
// POST /api/diagram
func (h *AssistHandler) Diagram(w http.ResponseWriter, r *http.Request) {
	var req generation.DiagramRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		invalidBody(w, err)
		return
	}

	resp, err := h.assist.Diagram(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// Chat answers one tutoring turn
// POST /api/chat
func (h *AssistHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req generation.ChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		invalidBody(w, err)
		return
	}

	reply, err := h.assist.Chat(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, reply)
}

// LookupDOI returns title and abstract for a DOI
// GET /api/doi?id=
func (h *AssistHandler) LookupDOI(w http.ResponseWriter, r *http.Request) {
	doi := strings.TrimSpace(r.URL.Query().Get("id"))
	if doi == "" {
		httputil.RespondError(w, http.StatusBadRequest, "id query parameter is required")
		return
	}

	meta, err := h.bibliography.LookupDOI(r.Context(), doi)
	if err != nil {
		if !errors.Is(err, domain.ErrUpstream) {
			err = &domain.UpstreamError{Service: "crossref", Err: err}
		}
		h.logger.Warn("DOI lookup failed", "doi", doi, "error", err)
		handleError(w, err)
		return
	}
	if meta == nil {
		httputil.RespondError(w, http.StatusNotFound, "DOI not found: "+doi)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, meta)
}
