package study

import (
	"context"

	models "neurostudy/internal/domain/models/study"
)

// StudyService manages study sessions and their artifacts. Every artifact
// update replaces one field and leaves the others alone.
type StudyService interface {
	CreateStudy(ctx context.Context, userID string, req *CreateStudyRequest) (*models.Session, error)
	GetStudy(ctx context.Context, userID, studyID string) (*models.Session, error)
	ListStudies(ctx context.Context, userID string, folderID *string) ([]models.Summary, error)

	// UpdateStudy renames, moves, or changes the mode of a study.
	UpdateStudy(ctx context.Context, userID, studyID string, req *UpdateStudyRequest) (*models.Session, error)
	DeleteStudy(ctx context.Context, userID, studyID string) error

	AddSource(ctx context.Context, userID, studyID string, req *AddSourceRequest) (*models.Session, error)
	RemoveSource(ctx context.Context, userID, studyID, sourceID string) (*models.Session, error)

	// QuickStart files a new study with one source under the quick-studies folder.
	QuickStart(ctx context.Context, userID string, req *QuickStartRequest) (*models.Session, error)

	// Artifact replacement. A nil value clears the artifact.
	UpdateGuide(ctx context.Context, userID, studyID string, guide *models.Guide) (*models.Session, error)
	UpdateSlides(ctx context.Context, userID, studyID string, slides []models.Slide) (*models.Session, error)
	UpdateQuiz(ctx context.Context, userID, studyID string, quiz []models.QuizQuestion) (*models.Session, error)
	UpdateFlashcards(ctx context.Context, userID, studyID string, cards []models.Flashcard) (*models.Session, error)

	// UpdateArtifacts stores generated output in one transaction: all fields
	// are written or none are.
	UpdateArtifacts(ctx context.Context, userID, studyID string, req *ArtifactsUpdate) (*models.Session, error)

	// UpdateCheckpoint edits one checkpoint's user-editable fields.
	UpdateCheckpoint(ctx context.Context, userID, studyID string, index int, req *UpdateCheckpointRequest) (*models.Session, error)

	// SetProcessing records the state of the last generation attempt.
	SetProcessing(ctx context.Context, userID, studyID string, state *models.ProcessingState) error
}

// ArtifactsUpdate carries the output of one generation run. Nil fields are
// left unchanged; clearing goes through the single-artifact methods.
type ArtifactsUpdate struct {
	Mode       *models.Mode
	Guide      *models.Guide
	Slides     []models.Slide
	Quiz       []models.QuizQuestion
	Flashcards []models.Flashcard
}

// CreateStudyRequest represents a study creation request
type CreateStudyRequest struct {
	FolderID string      `json:"folder_id"`
	Title    string      `json:"title"`
	Mode     models.Mode `json:"mode"`
}

// UpdateStudyRequest represents a study update request
type UpdateStudyRequest struct {
	Title    *string      `json:"title,omitempty"`
	FolderID *string      `json:"folder_id,omitempty"`
	Mode     *models.Mode `json:"mode,omitempty"`
}

// AddSourceRequest carries new material. Content is raw text, or base64 for
// binary types.
type AddSourceRequest struct {
	Type     models.SourceType `json:"type"`
	Name     string            `json:"name"`
	Content  string            `json:"content"`
	MimeType string            `json:"mime_type,omitempty"`
}

// QuickStartRequest creates a study and its first source in one call.
type QuickStartRequest struct {
	AddSourceRequest
	Mode models.Mode `json:"mode"`
	// Pareto is shorthand for SURVIVAL mode. Combined with any other mode it
	// is a validation error.
	Pareto bool `json:"pareto"`
}

// UpdateCheckpointRequest lists the user-editable checkpoint fields.
type UpdateCheckpointRequest struct {
	NoteExactly *string `json:"note_exactly,omitempty"`
	DrawExactly *string `json:"draw_exactly,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
}
