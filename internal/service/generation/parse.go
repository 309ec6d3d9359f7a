package generation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	models "neurostudy/internal/domain/models/study"
)

var errNoJSON = errors.New("model response contains no JSON")

// extractJSON returns the JSON document in a model reply, skipping code fences
// and any prose around it.
func extractJSON(text string) (gjson.Result, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return gjson.Result{}, errNoJSON
	}
	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(text, closer)
	if end < start {
		return gjson.Result{}, errNoJSON
	}

	candidate := text[start : end+1]
	if !gjson.Valid(candidate) {
		return gjson.Result{}, fmt.Errorf("model response is not valid JSON")
	}
	return gjson.Parse(candidate), nil
}

// listOf returns r itself when it is an array, otherwise r[key].
func listOf(r gjson.Result, key string) []gjson.Result {
	if r.IsArray() {
		return r.Array()
	}
	return r.Get(key).Array()
}

// str reads the first present key, so camelCase and snake_case replies both work.
func str(r gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() {
			return strings.TrimSpace(v.String())
		}
	}
	return ""
}

func parseGuide(r gjson.Result) (*models.Guide, error) {
	guide := &models.Guide{
		Subject:      str(r, "subject"),
		Overview:     str(r, "overview"),
		CoreConcepts: []models.CoreConcept{},
		Checkpoints:  []models.Checkpoint{},
	}

	concepts := r.Get("coreConcepts")
	if !concepts.Exists() {
		concepts = r.Get("core_concepts")
	}
	for _, c := range concepts.Array() {
		concept := str(c, "concept", "name")
		if concept == "" {
			continue
		}
		guide.CoreConcepts = append(guide.CoreConcepts, models.CoreConcept{
			Concept:    concept,
			Definition: str(c, "definition"),
		})
	}

	for _, c := range r.Get("checkpoints").Array() {
		cp := models.Checkpoint{
			Mission:     str(c, "mission"),
			Timestamp:   str(c, "timestamp"),
			LookFor:     str(c, "lookFor", "look_for"),
			NoteExactly: str(c, "noteExactly", "note_exactly"),
			DrawExactly: str(c, "drawExactly", "draw_exactly"),
			DrawLabel:   models.DrawLabel(strings.ToLower(str(c, "drawLabel", "draw_label"))).Normalize(),
			Question:    str(c, "question"),
		}
		if cp.Mission == "" {
			continue
		}
		guide.Checkpoints = append(guide.Checkpoints, cp)
	}

	if guide.Subject == "" || len(guide.Checkpoints) == 0 {
		return nil, fmt.Errorf("model response is missing the subject or checkpoints")
	}
	return guide, nil
}

func parseSlides(r gjson.Result) ([]models.Slide, error) {
	var slides []models.Slide
	for _, s := range listOf(r, "slides") {
		title := str(s, "title")
		if title == "" {
			continue
		}
		bullets := []string{}
		for _, b := range s.Get("bullets").Array() {
			if text := strings.TrimSpace(b.String()); text != "" {
				bullets = append(bullets, text)
			}
		}
		slides = append(slides, models.Slide{
			Title:        title,
			Bullets:      bullets,
			SpeakerNotes: str(s, "speakerNotes", "speaker_notes"),
		})
	}
	if len(slides) == 0 {
		return nil, fmt.Errorf("model response has no slides")
	}
	return slides, nil
}

func parseQuiz(r gjson.Result) ([]models.QuizQuestion, error) {
	var quiz []models.QuizQuestion
	for _, q := range listOf(r, "questions") {
		question := str(q, "question")
		if question == "" {
			continue
		}

		var options []string
		for _, o := range q.Get("options").Array() {
			options = append(options, strings.TrimSpace(o.String()))
		}

		qt := models.QuestionType(strings.ToLower(str(q, "type")))
		if qt != models.QuestionMultipleChoice && qt != models.QuestionOpen {
			qt = models.QuestionOpen
			if len(options) >= 2 {
				qt = models.QuestionMultipleChoice
			}
		}

		answer := str(q, "correctAnswer", "correct_answer")
		if qt == models.QuestionMultipleChoice {
			if len(options) < 2 {
				continue
			}
			idx, ok := optionIndex(answer, options)
			if !ok {
				continue
			}
			answer = strconv.Itoa(idx)
		} else {
			options = nil
		}

		quiz = append(quiz, models.QuizQuestion{
			Type:          qt,
			Difficulty:    normalizeDifficulty(str(q, "difficulty")),
			Question:      question,
			Options:       options,
			CorrectAnswer: answer,
			Explanation:   str(q, "explanation"),
		})
	}
	if len(quiz) == 0 {
		return nil, fmt.Errorf("model response has no usable questions")
	}
	return quiz, nil
}

// optionIndex resolves a multiple-choice answer given as an index, a letter or
// the option text.
func optionIndex(answer string, options []string) (int, bool) {
	if n, err := strconv.Atoi(answer); err == nil {
		return n, n >= 0 && n < len(options)
	}
	if len(answer) == 1 {
		c := answer[0] | 0x20
		if c >= 'a' && int(c-'a') < len(options) {
			return int(c - 'a'), true
		}
	}
	for i, o := range options {
		if strings.EqualFold(o, answer) {
			return i, true
		}
	}
	return 0, false
}

func normalizeDifficulty(s string) models.Difficulty {
	switch d := models.Difficulty(strings.ToLower(s)); d {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		return d
	}
	return models.DifficultyMedium
}

func parseFlashcards(r gjson.Result) ([]models.Flashcard, error) {
	var cards []models.Flashcard
	for _, c := range listOf(r, "flashcards") {
		front, back := str(c, "front"), str(c, "back")
		if front == "" || back == "" {
			continue
		}
		cards = append(cards, models.Flashcard{Front: front, Back: back})
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("model response has no flashcards")
	}
	return cards, nil
}

func parseDiagram(r gjson.Result) (*models.DiagramSpec, error) {
	spec := &models.DiagramSpec{
		Title: str(r, "title"),
		Nodes: []models.DiagramNode{},
		Edges: []models.DiagramEdge{},
	}

	known := map[string]bool{}
	for _, n := range r.Get("nodes").Array() {
		id, label := str(n, "id"), str(n, "label")
		if id == "" || known[id] {
			continue
		}
		if label == "" {
			label = id
		}
		known[id] = true
		spec.Nodes = append(spec.Nodes, models.DiagramNode{ID: id, Label: label})
	}
	for _, e := range r.Get("edges").Array() {
		from, to := str(e, "from"), str(e, "to")
		if !known[from] || !known[to] {
			continue
		}
		spec.Edges = append(spec.Edges, models.DiagramEdge{From: from, To: to, Label: str(e, "label")})
	}

	if len(spec.Nodes) == 0 {
		return nil, fmt.Errorf("model response has no diagram nodes")
	}
	return spec, nil
}
