package study

import "time"

type Slide struct {
	Title        string   `json:"title"`
	Bullets      []string `json:"bullets"`
	SpeakerNotes string   `json:"speaker_notes"`
}

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionOpen           QuestionType = "open"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	// DifficultyMixed is only valid as a quiz request setting.
	DifficultyMixed Difficulty = "mixed"
)

// QuizQuestion is a review question. For multiple choice, CorrectAnswer is the
// index of the right option as a decimal string ("0".."3").
type QuizQuestion struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Difficulty    Difficulty   `json:"difficulty"`
	Question      string       `json:"question"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer"`
	Explanation   string       `json:"explanation"`
}

type Flashcard struct {
	ID    string `json:"id"`
	Front string `json:"front"`
	Back  string `json:"back"`
}

type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	Role      ChatRole  `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// CloneSlides returns a deep copy of a slide deck.
func CloneSlides(in []Slide) []Slide {
	if in == nil {
		return nil
	}
	out := make([]Slide, len(in))
	for i, s := range in {
		s.Bullets = append([]string(nil), s.Bullets...)
		out[i] = s
	}
	return out
}

// CloneQuiz returns a deep copy of a quiz.
func CloneQuiz(in []QuizQuestion) []QuizQuestion {
	if in == nil {
		return nil
	}
	out := make([]QuizQuestion, len(in))
	for i, q := range in {
		if q.Options != nil {
			q.Options = append([]string(nil), q.Options...)
		}
		out[i] = q
	}
	return out
}

// CloneFlashcards returns a copy of a flashcard set.
func CloneFlashcards(in []Flashcard) []Flashcard {
	if in == nil {
		return nil
	}
	out := make([]Flashcard, len(in))
	copy(out, in)
	return out
}
