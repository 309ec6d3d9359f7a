package study

// Tab names a view of a study.
type Tab string

const (
	TabSources    Tab = "sources"
	TabGuide      Tab = "guide"
	TabSlides     Tab = "slides"
	TabQuiz       Tab = "quiz"
	TabFlashcards Tab = "flashcards"
)

// Valid reports whether t is a known tab.
func (t Tab) Valid() bool {
	switch t {
	case TabSources, TabGuide, TabSlides, TabQuiz, TabFlashcards:
		return true
	}
	return false
}

// ViewState references into the store; it never owns study data.
type ViewState struct {
	ActiveStudyID *string `json:"active_study_id"`
	ActiveTab     Tab     `json:"active_tab"`
}
