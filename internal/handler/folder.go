package handler

import (
	"log/slog"
	"net/http"

	studySvc "neurostudy/internal/domain/services/study"
	"neurostudy/internal/httputil"
)

// FolderHandler handles folder HTTP requests
type FolderHandler struct {
	folderService studySvc.FolderService
	examService   studySvc.ExamService
	logger        *slog.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(folderService studySvc.FolderService, examService studySvc.ExamService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{
		folderService: folderService,
		examService:   examService,
		logger:        logger,
	}
}

// updateFolderBody distinguishes an absent parent_id (keep) from null (move to root).
type updateFolderBody struct {
	Name     *string                 `json:"name"`
	Color    *string                 `json:"color"`
	ParentID httputil.OptionalString `json:"parent_id"`
}

// ListFolders returns the flat folder list
// GET /api/folders
func (h *FolderHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.folderService.ListFolders(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folders)
}

// CreateFolder creates a new folder
// POST /api/folders
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req studySvc.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		invalidBody(w, err)
		return
	}

	folder, err := h.folderService.CreateFolder(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// GetFolder retrieves a folder by ID
// GET /api/folders/{id}
func (h *FolderHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	folderID, ok := PathParam(w, r, "id", "Folder ID")
	if !ok {
		return
	}

	folder, err := h.folderService.GetFolder(r.Context(), httputil.GetUserID(r), folderID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// UpdateFolder renames and/or moves a folder
// PATCH /api/folders/{id}
func (h *FolderHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	folderID, ok := PathParam(w, r, "id", "Folder ID")
	if !ok {
		return
	}

	var body updateFolderBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		invalidBody(w, err)
		return
	}

	req := &studySvc.UpdateFolderRequest{
		Name:  body.Name,
		Color: body.Color,
		Parent: studySvc.ParentChange{
			Present:  body.ParentID.Present,
			ParentID: body.ParentID.Value,
		},
	}

	folder, err := h.folderService.UpdateFolder(r.Context(), httputil.GetUserID(r), folderID, req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// DeleteFolder deletes a folder with everything below it
// DELETE /api/folders/{id}
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	folderID, ok := PathParam(w, r, "id", "Folder ID")
	if !ok {
		return
	}

	result, err := h.folderService.DeleteFolder(r.Context(), httputil.GetUserID(r), folderID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// CreateExam builds a review study from every guide in the folder
// POST /api/folders/{id}/exam
func (h *FolderHandler) CreateExam(w http.ResponseWriter, r *http.Request) {
	folderID, ok := PathParam(w, r, "id", "Folder ID")
	if !ok {
		return
	}

	exam, err := h.examService.CreateFolderExam(r.Context(), httputil.GetUserID(r), folderID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, exam)
}
