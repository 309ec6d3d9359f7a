package generation

import (
	"testing"

	models "neurostudy/internal/domain/models/study"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain object", `{"a": 1}`, `{"a": 1}`, false},
		{"fenced", "```json\n[1, 2]\n```", `[1, 2]`, false},
		{"prose around", "Sure! {\"a\": {\"b\": 2}} Hope it helps.", `{"a": {"b": 2}}`, false},
		{"no json", "I cannot do that", "", true},
		{"broken", `{"a": `, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.Raw != tt.want {
				t.Errorf("raw = %q, want %q", got.Raw, tt.want)
			}
		})
	}
}

func TestParseGuide_AcceptsSnakeCase(t *testing.T) {
	r, err := extractJSON(`{"subject": "S", "overview": "O",
		"core_concepts": [{"concept": "C", "definition": "D"}],
		"checkpoints": [{"mission": "M", "note_exactly": "N", "draw_label": "ESSENTIAL"}, {"mission": ""}]}`)
	if err != nil {
		t.Fatalf("extractJSON: %v", err)
	}

	g, err := parseGuide(r)
	if err != nil {
		t.Fatalf("parseGuide: %v", err)
	}
	if len(g.CoreConcepts) != 1 || g.CoreConcepts[0].Definition != "D" {
		t.Errorf("concepts = %+v", g.CoreConcepts)
	}
	if len(g.Checkpoints) != 1 {
		t.Fatalf("checkpoints = %+v", g.Checkpoints)
	}
	cp := g.Checkpoints[0]
	if cp.NoteExactly != "N" || cp.DrawLabel != models.DrawEssential || cp.Completed {
		t.Errorf("checkpoint = %+v", cp)
	}
}

func TestParseQuiz_Answers(t *testing.T) {
	r, err := extractJSON(`[
		{"type": "multiple_choice", "question": "index", "options": ["a","b","c","d"], "correctAnswer": "2"},
		{"type": "multiple_choice", "question": "letter", "options": ["a","b","c","d"], "correctAnswer": "D"},
		{"type": "multiple_choice", "question": "text", "options": ["red","blue"], "correctAnswer": "Blue"},
		{"type": "multiple_choice", "question": "out of range", "options": ["a","b"], "correctAnswer": 5},
		{"type": "open", "question": "open", "options": ["ignored"], "correctAnswer": "Because", "difficulty": "HARD"},
		{"question": "untyped", "options": ["x","y"], "correctAnswer": 0}
	]`)
	if err != nil {
		t.Fatalf("extractJSON: %v", err)
	}

	quiz, err := parseQuiz(r)
	if err != nil {
		t.Fatalf("parseQuiz: %v", err)
	}

	want := []struct {
		question string
		typ      models.QuestionType
		answer   string
	}{
		{"index", models.QuestionMultipleChoice, "2"},
		{"letter", models.QuestionMultipleChoice, "3"},
		{"text", models.QuestionMultipleChoice, "1"},
		{"open", models.QuestionOpen, "Because"},
		{"untyped", models.QuestionMultipleChoice, "0"},
	}
	if len(quiz) != len(want) {
		t.Fatalf("quiz = %+v", quiz)
	}
	for i, w := range want {
		q := quiz[i]
		if q.Question != w.question || q.Type != w.typ || q.CorrectAnswer != w.answer {
			t.Errorf("quiz[%d] = %+v, want %+v", i, q, w)
		}
	}
	if quiz[3].Options != nil || quiz[3].Difficulty != models.DifficultyHard {
		t.Errorf("open question = %+v", quiz[3])
	}
	if quiz[0].Difficulty != models.DifficultyMedium {
		t.Errorf("missing difficulty = %q, want medium", quiz[0].Difficulty)
	}
}

func TestParseArtifacts_EmptyIsAnError(t *testing.T) {
	r, _ := extractJSON(`[]`)
	if _, err := parseSlides(r); err == nil {
		t.Error("parseSlides accepted an empty deck")
	}
	if _, err := parseQuiz(r); err == nil {
		t.Error("parseQuiz accepted an empty quiz")
	}
	if _, err := parseFlashcards(r); err == nil {
		t.Error("parseFlashcards accepted no cards")
	}
	if _, err := parseDiagram(r); err == nil {
		t.Error("parseDiagram accepted no nodes")
	}
}

func TestClassifySource(t *testing.T) {
	tests := []struct {
		name     string
		src      models.Source
		wantKind inputKind
		wantRef  string
	}{
		{"pdf", models.Source{Type: models.SourcePDF, Content: "AAAA"}, inputBinary, ""},
		{"doi prefix", models.Source{Type: models.SourceDOI, Content: "doi:10.1038/nature12373"}, inputDOI, "10.1038/nature12373"},
		{"doi resolver", models.Source{Type: models.SourceDOI, Content: "https://doi.org/10.1038/nature12373"}, inputDOI, "10.1038/nature12373"},
		{"url", models.Source{Type: models.SourceURL, Content: "www.example.com/a"}, inputURL, "https://www.example.com/a"},
		{"text that is a url", models.Source{Type: models.SourceText, Content: "https://example.com/x"}, inputURL, "https://example.com/x"},
		{"text that is a doi", models.Source{Type: models.SourceText, Content: "10.1038/nature12373"}, inputDOI, "10.1038/nature12373"},
		{"prose", models.Source{Type: models.SourceText, Content: "see 10.1038/nature12373 for details"}, inputText, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ref := classifySource(&tt.src)
			if kind != tt.wantKind || ref != tt.wantRef {
				t.Errorf("classifySource() = (%v, %q), want (%v, %q)", kind, ref, tt.wantKind, tt.wantRef)
			}
		})
	}
}
