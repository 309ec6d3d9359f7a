package generation

import (
	"context"

	models "neurostudy/internal/domain/models/study"
)

// Service runs model generation for a study and stores the result. At most one
// generation per study runs at a time; a second call gets a ConflictError.
type Service interface {
	// GenerateGuide builds the guide from the study's latest source.
	GenerateGuide(ctx context.Context, userID, studyID string, req *GuideRequest) (*models.Session, error)

	// The remaining artifacts are derived from the stored guide.
	GenerateSlides(ctx context.Context, userID, studyID string) (*models.Session, error)
	GenerateQuiz(ctx context.Context, userID, studyID string, cfg *QuizConfig) (*models.Session, error)
	GenerateFlashcards(ctx context.Context, userID, studyID string) (*models.Session, error)

	// GenerateArtifacts runs slides, quiz and flashcards concurrently under one guard.
	GenerateArtifacts(ctx context.Context, userID, studyID string, req *ArtifactsRequest) (*models.Session, error)

	// GenerateCheckpointDiagram renders the checkpoint's drawing into its image URL.
	GenerateCheckpointDiagram(ctx context.Context, userID, studyID string, index int) (*models.Session, error)
}

// GuideRequest optionally switches the study mode before regenerating.
type GuideRequest struct {
	Mode *models.Mode `json:"mode,omitempty"`
}

// QuizConfig overrides the mode-based quiz defaults.
type QuizConfig struct {
	Quantity   int               `json:"quantity"`
	Difficulty models.Difficulty `json:"difficulty"`
}

// ArtifactsRequest selects which guide-derived artifacts to build.
// All false means all three.
type ArtifactsRequest struct {
	Slides     bool        `json:"slides"`
	Quiz       bool        `json:"quiz"`
	Flashcards bool        `json:"flashcards"`
	QuizConfig *QuizConfig `json:"quiz_config,omitempty"`
}

// RefineTask names an auxiliary rewrite of a concept.
type RefineTask string

const (
	RefineSimplify RefineTask = "simplify"
	RefineExample  RefineTask = "example"
	RefineMnemonic RefineTask = "mnemonic"
)

// Valid reports whether t is a known task.
func (t RefineTask) Valid() bool {
	switch t {
	case RefineSimplify, RefineExample, RefineMnemonic:
		return true
	}
	return false
}

// AssistService covers the stateless model calls.
type AssistService interface {
	Refine(ctx context.Context, req *RefineRequest) (*RefineResponse, error)
	Diagram(ctx context.Context, req *DiagramRequest) (*DiagramResponse, error)

	// Chat answers a tutoring question, optionally grounded in a study's guide.
	Chat(ctx context.Context, userID string, req *ChatRequest) (*models.ChatMessage, error)
}

type RefineRequest struct {
	Text string     `json:"text"`
	Task RefineTask `json:"task"`
}

type RefineResponse struct {
	Text string `json:"text"`
}

type DiagramRequest struct {
	Description string `json:"description"`
}

// DiagramResponse carries the rendered image as a data URI and the structure
// it was drawn from.
type DiagramResponse struct {
	DataURI string             `json:"data_uri"`
	Spec    models.DiagramSpec `json:"spec"`
}

// ChatRequest is one tutoring turn. History is oldest first.
type ChatRequest struct {
	StudyID *string              `json:"study_id,omitempty"`
	History []models.ChatMessage `json:"history"`
	Message string               `json:"message"`
}

// Guard serializes generation per key.
type Guard interface {
	// Acquire returns a release func, or a ConflictError if key is held.
	Acquire(ctx context.Context, key string) (func(), error)
}

// Bibliography looks up paper metadata. A DOI that is not found returns nil, nil.
type Bibliography interface {
	LookupDOI(ctx context.Context, doi string) (*models.DOIMetadata, error)
}

// PageFetcher downloads a web page as markdown.
type PageFetcher interface {
	FetchMarkdown(ctx context.Context, url string) (string, error)
}

// DiagramRenderer draws a diagram spec as a PNG.
type DiagramRenderer interface {
	RenderPNG(spec *models.DiagramSpec) ([]byte, error)
}
