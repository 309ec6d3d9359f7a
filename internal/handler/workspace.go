package handler

import (
	"log/slog"
	"net/http"

	models "neurostudy/internal/domain/models/study"
	studySvc "neurostudy/internal/domain/services/study"
	"neurostudy/internal/httputil"
)

// WorkspaceHandler exposes the per-user view state (active study and tab)
type WorkspaceHandler struct {
	viewState studySvc.ViewStateService
	logger    *slog.Logger
}

// NewWorkspaceHandler creates a new workspace handler
func NewWorkspaceHandler(viewState studySvc.ViewStateService, logger *slog.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		viewState: viewState,
		logger:    logger,
	}
}

// GetWorkspace returns the current view state
// GET /api/workspace
func (h *WorkspaceHandler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.viewState.Get(r.Context(), httputil.GetUserID(r)))
}

// PutWorkspace replaces the view state
// PUT /api/workspace
func (h *WorkspaceHandler) PutWorkspace(w http.ResponseWriter, r *http.Request) {
	var state models.ViewState
	if err := httputil.ParseJSON(w, r, &state); err != nil {
		invalidBody(w, err)
		return
	}

	updated, err := h.viewState.Set(r.Context(), httputil.GetUserID(r), state)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, updated)
}
