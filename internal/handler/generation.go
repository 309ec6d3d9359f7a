package handler

import (
	"log/slog"
	"net/http"

	models "neurostudy/internal/domain/models/study"
	"neurostudy/internal/domain/services/generation"
	"neurostudy/internal/httputil"
)

// GenerationHandler triggers model generation for a study. Each call blocks
// until the artifact is stored; a second call for the same study while one is
// running gets 409.
type GenerationHandler struct {
	generator generation.Service
	logger    *slog.Logger
}

// NewGenerationHandler creates a new generation handler
func NewGenerationHandler(generator generation.Service, logger *slog.Logger) *GenerationHandler {
	return &GenerationHandler{
		generator: generator,
		logger:    logger,
	}
}

// GenerateGuide builds the guide from the latest source
// POST /api/studies/{id}/guide/generate
func (h *GenerationHandler) GenerateGuide(w http.ResponseWriter, r *http.Request) {
	studyID, ok := PathParam(w, r, "id", "Study ID")
	if !ok {
		return
	}

	var req generation.GuideRequest
	if err := httputil.ParseOptionalJSON(w, r, &req); err != nil {
		invalidBody(w, err)
		return
	}

	h.respond(w, r, studyID, "guide", func(userID string) (*models.Session, error) {
		return h.generator.GenerateGuide(r.Context(), userID, studyID, &req)
	})
}

// GenerateSlides builds slides from the guide
// POST /api/studies/{id}/slides/generate
func (h *GenerationHandler) GenerateSlides(w http.ResponseWriter, r *http.Request) {
	studyID, ok := PathParam(w, r, "id", "Study ID")
	if !ok {
		return
	}

	h.respond(w, r, studyID, "slides", func(userID string) (*models.Session, error) {
		return h.generator.GenerateSlides(r.Context(), userID, studyID)
	})
}

// GenerateQuiz builds the quiz, optionally with a size and difficulty
// POST /api/studies/{id}/quiz/generate
func (h *GenerationHandler) GenerateQuiz(w http.ResponseWriter, r *http.Request) {
	studyID, ok := PathParam(w, r, "id", "Study ID")
	if !ok {
		return
	}

	// no body means mode defaults
	var cfg *generation.QuizConfig
	if err := httputil.ParseOptionalJSON(w, r, &cfg); err != nil {
		invalidBody(w, err)
		return
	}

	h.respond(w, r, studyID, "quiz", func(userID string) (*models.Session, error) {
		return h.generator.GenerateQuiz(r.Context(), userID, studyID, cfg)
	})
}

// GenerateFlashcards builds flashcards from the guide
// POST /api/studies/{id}/flashcards/generate
func (h *GenerationHandler) GenerateFlashcards(w http.ResponseWriter, r *http.Request) {
	studyID, ok := PathParam(w, r, "id", "Study ID")
	if !ok {
		return
	}

	h.respond(w, r, studyID, "flashcards", func(userID string) (*models.Session, error) {
		return h.generator.GenerateFlashcards(r.Context(), userID, studyID)
	})
}

// GenerateArtifacts builds the selected guide-derived artifacts together
// POST /api/studies/{id}/artifacts/generate
func (h *GenerationHandler) GenerateArtifacts(w http.ResponseWriter, r *http.Request) {
	studyID, ok := PathParam(w, r, "id", "Study ID")
	if !ok {
		return
	}

	var req generation.ArtifactsRequest
	if err := httputil.ParseOptionalJSON(w, r, &req); err != nil {
		invalidBody(w, err)
		return
	}

	h.respond(w, r, studyID, "artifacts", func(userID string) (*models.Session, error) {
		return h.generator.GenerateArtifacts(r.Context(), userID, studyID, &req)
	})
}

// GenerateCheckpointDiagram draws a checkpoint's diagram into its image URL
// POST /api/studies/{id}/guide/checkpoints/{index}/diagram
func (h *GenerationHandler) GenerateCheckpointDiagram(w http.ResponseWriter, r *http.Request) {
	studyID, ok := PathParam(w, r, "id", "Study ID")
	if !ok {
		return
	}
	index, ok := PathIndex(w, r, "index", "Checkpoint index")
	if !ok {
		return
	}

	h.respond(w, r, studyID, "diagram", func(userID string) (*models.Session, error) {
		return h.generator.GenerateCheckpointDiagram(r.Context(), userID, studyID, index)
	})
}

func (h *GenerationHandler) respond(w http.ResponseWriter, r *http.Request, studyID, artifact string, run func(userID string) (*models.Session, error)) {
	study, err := run(httputil.GetUserID(r))
	if err != nil {
		h.logger.Warn("generation request failed",
			"study_id", studyID,
			"artifact", artifact,
			"error", err,
		)
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, study)
}
