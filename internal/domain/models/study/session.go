package study

import (
	"fmt"
	"time"
)

// Mode controls checkpoint granularity and quiz defaults.
type Mode string

const (
	ModeNormal   Mode = "NORMAL"
	ModeTurbo    Mode = "TURBO"
	ModeSurvival Mode = "SURVIVAL"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeNormal, ModeTurbo, ModeSurvival:
		return true
	}
	return false
}

// ParseMode parses a mode name, defaulting to NORMAL for the empty string.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeNormal, nil
	}
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown study mode %q", s)
	}
	return m, nil
}

// Session is a single study: its sources and every artifact generated from them.
// Artifacts are independently nullable.
type Session struct {
	ID         string           `json:"id" db:"id"`
	OwnerID    string           `json:"-" db:"owner_id"`
	FolderID   string           `json:"folder_id" db:"folder_id"`
	Title      string           `json:"title" db:"title"`
	Mode       Mode             `json:"mode" db:"mode"`
	Sources    []Source         `json:"sources" db:"sources"`
	Guide      *Guide           `json:"guide" db:"guide"`
	Slides     []Slide          `json:"slides" db:"slides"`
	Quiz       []QuizQuestion   `json:"quiz" db:"quiz"`
	Flashcards []Flashcard      `json:"flashcards" db:"flashcards"`
	Processing *ProcessingState `json:"processing,omitempty" db:"processing"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at" db:"updated_at"`
}

// LatestSource returns the most recently added source, or nil.
func (s *Session) LatestSource() *Source {
	if len(s.Sources) == 0 {
		return nil
	}
	src := s.Sources[len(s.Sources)-1]
	return &src
}

// Clone returns a deep copy so callers never share slices with a store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Sources != nil {
		c.Sources = make([]Source, len(s.Sources))
		copy(c.Sources, s.Sources)
	}
	c.Guide = s.Guide.Clone()
	c.Slides = CloneSlides(s.Slides)
	c.Quiz = CloneQuiz(s.Quiz)
	c.Flashcards = CloneFlashcards(s.Flashcards)
	if s.Processing != nil {
		p := *s.Processing
		c.Processing = &p
	}
	return &c
}

// Summary is the lightweight projection used in listings and the tree.
type Summary struct {
	ID            string    `json:"id"`
	FolderID      string    `json:"folder_id"`
	Title         string    `json:"title"`
	Mode          Mode      `json:"mode"`
	SourceCount   int       `json:"source_count"`
	HasGuide      bool      `json:"has_guide"`
	HasSlides     bool      `json:"has_slides"`
	HasQuiz       bool      `json:"has_quiz"`
	HasFlashcards bool      `json:"has_flashcards"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Summarize projects a session to its summary.
func (s *Session) Summarize() Summary {
	return Summary{
		ID:            s.ID,
		FolderID:      s.FolderID,
		Title:         s.Title,
		Mode:          s.Mode,
		SourceCount:   len(s.Sources),
		HasGuide:      s.Guide != nil,
		HasSlides:     s.Slides != nil,
		HasQuiz:       s.Quiz != nil,
		HasFlashcards: s.Flashcards != nil,
		UpdatedAt:     s.UpdatedAt,
	}
}

// ProcessingStep names the phase of the last generation on a session.
type ProcessingStep string

const (
	StepAnalyzing    ProcessingStep = "analyzing"
	StepTranscribing ProcessingStep = "transcribing"
	StepGenerating   ProcessingStep = "generating"
	StepDone         ProcessingStep = "done"
	StepError        ProcessingStep = "error"
)

// ProcessingState is the session-scoped record of the last generation attempt.
type ProcessingState struct {
	Artifact  string         `json:"artifact"`
	Step      ProcessingStep `json:"step"`
	Error     string         `json:"error,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}
