package handler

import (
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"neurostudy/internal/config"
	models "neurostudy/internal/domain/models/study"
	studySvc "neurostudy/internal/domain/services/study"
	"neurostudy/internal/httputil"
)

// StudyHandler handles study, source and stored-artifact requests
type StudyHandler struct {
	studyService studySvc.StudyService
	logger       *slog.Logger
}

// NewStudyHandler creates a new study handler
func NewStudyHandler(studyService studySvc.StudyService, logger *slog.Logger) *StudyHandler {
	return &StudyHandler{
		studyService: studyService,
		logger:       logger,
	}
}

// ListStudies returns study summaries, optionally for one folder
// GET /api/studies?folder_id=
func (h *StudyHandler) ListStudies(w http.ResponseWriter, r *http.Request) {
	var folderID *string
	if id := r.URL.Query().Get("folder_id"); id != "" {
		folderID = &id
	}

	studies, err := h.studyService.ListStudies(r.Context(), httputil.GetUserID(r), folderID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, studies)
}

// CreateStudy creates an empty study in a folder
// POST /api/studies
func (h *StudyHandler) CreateStudy(w http.ResponseWriter, r *http.Request) {
	var req studySvc.CreateStudyRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		invalidBody(w, err)
		return
	}

	study, err := h.studyService.CreateStudy(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, study)
}

// QuickStart creates a study with its first source in the quick-studies folder.
// Accepts the same JSON or multipart bodies as AddSource, plus mode and pareto.
// POST /api/quick-start
func (h *StudyHandler) QuickStart(w http.ResponseWriter, r *http.Request) {
	var req studySvc.QuickStartRequest

	if isMultipart(r) {
		src, ok := h.readUpload(w, r)
		if !ok {
			return
		}
		req.AddSourceRequest = *src
		req.Mode = models.Mode(strings.ToUpper(r.FormValue("mode")))
		req.Pareto = r.FormValue("pareto") == "true"
	} else {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			invalidBody(w, err)
			return
		}
		req.Type = models.SourceType(strings.ToUpper(string(req.Type)))
	}

	study, err := h.studyService.QuickStart(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, study)
}

// GetStudy returns a study with all of its artifacts
// GET /api/studies/{id}
func (h *StudyHandler) GetStudy(w http.ResponseWriter, r *http.Request) {
	studyID, ok := PathParam(w, r, "id", "Study ID")
	if !ok {
		return
	}

	study, err := h.studyService.GetStudy(r.Context(), httputil.GetUserID(r), studyID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, study)
}

// UpdateStudy renames, moves or changes the mode of a study
// PATCH /api/studies/{id}
func (h *StudyHandler) UpdateStudy(w http.ResponseWriter, r *http.Request) {
	studyID, ok := PathParam(w, r, "id", "Study ID")
	if !ok {
		return
	}

	var req studySvc.UpdateStudyRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		invalidBody(w, err)
		return
	}

	study, err := h.studyService.UpdateStudy(r.Context(), httputil.GetUserID(r), studyID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, study)
}

// DeleteStudy deletes a study
// DELETE /api/studies/{id}
func (h *StudyHandler) DeleteStudy(w http.ResponseWriter, r *http.Request) {
	studyID, ok := PathParam(w, r, "id", "Study ID")
	if !ok {
		return
	}

	if err := h.studyService.DeleteStudy(r.Context(), httputil.GetUserID(r), studyID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddSource attaches material to a study. JSON bodies carry text or base64
// content; multipart bodies carry a "file" part whose type is detected.
// POST /api/studies/{id}/sources
func (h *StudyHandler) AddSource(w http.ResponseWriter, r *http.Request) {
	studyID, ok := PathParam(w, r, "id", "Study ID")
	if !ok {
		return
	}

	var req *studySvc.AddSourceRequest
	if isMultipart(r) {
		if req, ok = h.readUpload(w, r); !ok {
			return
		}
	} else {
		req = &studySvc.AddSourceRequest{}
		if err := httputil.ParseJSON(w, r, req); err != nil {
			invalidBody(w, err)
			return
		}
		req.Type = models.SourceType(strings.ToUpper(string(req.Type)))
	}

	study, err := h.studyService.AddSource(r.Context(), httputil.GetUserID(r), studyID, req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, study)
}

// RemoveSource detaches one source
// DELETE /api/studies/{id}/sources/{sourceId}
func (h *StudyHandler) RemoveSource(w http.ResponseWriter, r *http.Request) {
	studyID, ok := PathParam(w, r, "id", "Study ID")
	if !ok {
		return
	}
	sourceID, ok := PathParam(w, r, "sourceId", "Source ID")
	if !ok {
		return
	}

	study, err := h.studyService.RemoveSource(r.Context(), httputil.GetUserID(r), studyID, sourceID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, study)
}

// PutGuide replaces the guide
// PUT /api/studies/{id}/guide
func (h *StudyHandler) PutGuide(w http.ResponseWriter, r *http.Request) {
	var guide models.Guide
	h.replaceArtifact(w, r, &guide, func(userID, studyID string) (*models.Session, error) {
		return h.studyService.UpdateGuide(r.Context(), userID, studyID, &guide)
	})
}

// DeleteGuide clears the guide
// DELETE /api/studies/{id}/guide
func (h *StudyHandler) DeleteGuide(w http.ResponseWriter, r *http.Request) {
	h.clearArtifact(w, r, func(userID, studyID string) (*models.Session, error) {
		return h.studyService.UpdateGuide(r.Context(), userID, studyID, nil)
	})
}

// UpdateCheckpoint edits one checkpoint's note, drawing, image or completion
// PATCH /api/studies/{id}/guide/checkpoints/{index}
func (h *StudyHandler) UpdateCheckpoint(w http.ResponseWriter, r *http.Request) {
	studyID, ok := PathParam(w, r, "id", "Study ID")
	if !ok {
		return
	}
	index, ok := PathIndex(w, r, "index", "Checkpoint index")
	if !ok {
		return
	}

	var req studySvc.UpdateCheckpointRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		invalidBody(w, err)
		return
	}

	study, err := h.studyService.UpdateCheckpoint(r.Context(), httputil.GetUserID(r), studyID, index, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, study)
}

// PutSlides replaces the slide deck
// PUT /api/studies/{id}/slides
func (h *StudyHandler) PutSlides(w http.ResponseWriter, r *http.Request) {
	slides := []models.Slide{}
	h.replaceArtifact(w, r, &slides, func(userID, studyID string) (*models.Session, error) {
		return h.studyService.UpdateSlides(r.Context(), userID, studyID, slides)
	})
}

// DeleteSlides clears the slide deck
// DELETE /api/studies/{id}/slides
func (h *StudyHandler) DeleteSlides(w http.ResponseWriter, r *http.Request) {
	h.clearArtifact(w, r, func(userID, studyID string) (*models.Session, error) {
		return h.studyService.UpdateSlides(r.Context(), userID, studyID, nil)
	})
}

// PutQuiz replaces the quiz
// PUT /api/studies/{id}/quiz
func (h *StudyHandler) PutQuiz(w http.ResponseWriter, r *http.Request) {
	quiz := []models.QuizQuestion{}
	h.replaceArtifact(w, r, &quiz, func(userID, studyID string) (*models.Session, error) {
		return h.studyService.UpdateQuiz(r.Context(), userID, studyID, quiz)
	})
}

// DeleteQuiz clears the quiz
// DELETE /api/studies/{id}/quiz
func (h *StudyHandler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	h.clearArtifact(w, r, func(userID, studyID string) (*models.Session, error) {
		return h.studyService.UpdateQuiz(r.Context(), userID, studyID, nil)
	})
}

// PutFlashcards replaces the flashcards
// PUT /api/studies/{id}/flashcards
func (h *StudyHandler) PutFlashcards(w http.ResponseWriter, r *http.Request) {
	cards := []models.Flashcard{}
	h.replaceArtifact(w, r, &cards, func(userID, studyID string) (*models.Session, error) {
		return h.studyService.UpdateFlashcards(r.Context(), userID, studyID, cards)
	})
}

// DeleteFlashcards clears the flashcards
// DELETE /api/studies/{id}/flashcards
func (h *StudyHandler) DeleteFlashcards(w http.ResponseWriter, r *http.Request) {
	h.clearArtifact(w, r, func(userID, studyID string) (*models.Session, error) {
		return h.studyService.UpdateFlashcards(r.Context(), userID, studyID, nil)
	})
}

type artifactWrite func(userID, studyID string) (*models.Session, error)

// replaceArtifact decodes the body into dest and then runs write.
func (h *StudyHandler) replaceArtifact(w http.ResponseWriter, r *http.Request, dest interface{}, write artifactWrite) {
	studyID, ok := PathParam(w, r, "id", "Study ID")
	if !ok {
		return
	}

	if err := httputil.ParseJSON(w, r, dest); err != nil {
		invalidBody(w, err)
		return
	}

	study, err := write(httputil.GetUserID(r), studyID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, study)
}

func (h *StudyHandler) clearArtifact(w http.ResponseWriter, r *http.Request, write artifactWrite) {
	studyID, ok := PathParam(w, r, "id", "Study ID")
	if !ok {
		return
	}

	study, err := write(httputil.GetUserID(r), studyID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, study)
}

// readUpload turns the "file" part of a multipart form into a source request.
// Binary types are base64-encoded; anything else is stored as text.
func (h *StudyHandler) readUpload(w http.ResponseWriter, r *http.Request) (*studySvc.AddSourceRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
		invalidBody(w, err)
		return nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "No file provided")
		return nil, false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, config.MaxUploadBytes+1))
	if err != nil {
		h.logger.Error("failed to read uploaded file", "file", header.Filename, "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read file %s", header.Filename))
		return nil, false
	}
	if len(data) > config.MaxUploadBytes {
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, "file too large")
		return nil, false
	}

	mimeType := uploadMimeType(header.Header.Get("Content-Type"), header.Filename)
	srcType := models.SourceTypeForMIME(mimeType)
	if t := r.FormValue("type"); t != "" {
		parsed, err := models.ParseSourceType(t)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
			return nil, false
		}
		srcType = parsed
	}

	content := string(data)
	if srcType.IsBinary() {
		content = base64.StdEncoding.EncodeToString(data)
	}

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	h.logger.Debug("source uploaded",
		"file", header.Filename,
		"type", srcType,
		"mime_type", mimeType,
		"bytes", len(data),
	)

	return &studySvc.AddSourceRequest{
		Type:     srcType,
		Name:     name,
		Content:  content,
		MimeType: mimeType,
	}, true
}

// uploadMimeType prefers the part's declared type, falling back to the extension.
func uploadMimeType(declared, filename string) string {
	if declared != "" && declared != "application/octet-stream" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			return mt
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		if mt, _, err := mime.ParseMediaType(byExt); err == nil {
			return mt
		}
	}
	return "text/plain"
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}
