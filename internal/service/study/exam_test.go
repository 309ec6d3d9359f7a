package study

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"neurostudy/internal/domain"
	models "neurostudy/internal/domain/models/study"
)

func TestCreateFolderExam_MergesGuides(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	folder := env.mustFolder(t, "Biology", nil)

	doneAt := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	s1 := env.mustStudy(t, folder.ID, "Cells")
	s2 := env.mustStudy(t, folder.ID, "Genes")
	env.mustStudy(t, folder.ID, "Not generated yet")

	_, err := env.studies.UpdateGuide(ctx, testUser, s1.ID, &models.Guide{
		Subject: "Cells",
		CoreConcepts: []models.CoreConcept{
			{Concept: "Membrane", Definition: "boundary"},
			{Concept: "Nucleus", Definition: "control"},
		},
		Checkpoints: []models.Checkpoint{
			{
				Mission:     "Read chapter 1",
				NoteExactly: strings.Repeat("a", 300),
				DrawLabel:   models.DrawEssential,
				Question:    "Why?",
				ImageURL:    "data:image/png;base64,AAAA",
				Completed:   true,
				CompletedAt: &doneAt,
			},
		},
	})
	if err != nil {
		t.Fatalf("guide 1: %v", err)
	}
	_, err = env.studies.UpdateGuide(ctx, testUser, s2.ID, &models.Guide{
		Subject:      "Genes",
		CoreConcepts: []models.CoreConcept{{Concept: "Membrane", Definition: "repeated on purpose"}},
	})
	if err != nil {
		t.Fatalf("guide 2: %v", err)
	}

	exam, err := env.exams.CreateFolderExam(ctx, testUser, folder.ID)
	if err != nil {
		t.Fatalf("exam: %v", err)
	}

	if exam.Mode != models.ModeNormal || exam.FolderID != folder.ID {
		t.Errorf("exam mode %s folder %s", exam.Mode, exam.FolderID)
	}
	if exam.Title != "Exam: Biology" || exam.Guide.Subject != exam.Title {
		t.Errorf("title %q subject %q", exam.Title, exam.Guide.Subject)
	}
	if exam.Guide.Overview != "Unified exam covering 2 studies: Cells, Genes" {
		t.Errorf("overview = %q", exam.Guide.Overview)
	}
	if len(exam.Guide.CoreConcepts) != 3 {
		t.Errorf("concepts = %d, want 3", len(exam.Guide.CoreConcepts))
	}
	if len(exam.Guide.Checkpoints) != 1 {
		t.Fatalf("checkpoints = %d, want 1", len(exam.Guide.Checkpoints))
	}
	cp := exam.Guide.Checkpoints[0]
	if len(cp.NoteExactly) != 200 {
		t.Errorf("note length = %d, want 200", len(cp.NoteExactly))
	}
	if cp.Mission != "Read chapter 1" || cp.Question != "Why?" || cp.DrawLabel != models.DrawEssential {
		t.Errorf("checkpoint = %+v", cp)
	}
	if cp.ImageURL != "data:image/png;base64,AAAA" {
		t.Errorf("image url = %q", cp.ImageURL)
	}
	if !cp.Completed || cp.CompletedAt == nil || !cp.CompletedAt.Equal(doneAt) {
		t.Errorf("completion = %v at %v, want true at %v", cp.Completed, cp.CompletedAt, doneAt)
	}

	vs := env.viewState.Get(ctx, testUser)
	if vs.ActiveStudyID == nil || *vs.ActiveStudyID != exam.ID || vs.ActiveTab != models.TabQuiz {
		t.Errorf("view state = %+v, want exam on quiz tab", vs)
	}

	source, _ := env.studies.GetStudy(ctx, testUser, s1.ID)
	srcCP := source.Guide.Checkpoints[0]
	if len(srcCP.NoteExactly) != 300 || srcCP.CompletedAt == nil || !srcCP.CompletedAt.Equal(doneAt) {
		t.Errorf("source guide was modified: %+v", srcCP)
	}
}

func TestCreateFolderExam_NoGuides(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	folder := env.mustFolder(t, "Empty", nil)
	env.mustStudy(t, folder.ID, "No guide")

	before, _ := env.studies.ListStudies(ctx, testUser, nil)

	_, err := env.exams.CreateFolderExam(ctx, testUser, folder.ID)
	if !errors.Is(err, ErrNoGuides) || !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrNoGuides, got %v", err)
	}
	if !strings.Contains(err.Error(), "no generated guides in this folder") {
		t.Errorf("message = %q", err.Error())
	}

	after, _ := env.studies.ListStudies(ctx, testUser, nil)
	if len(after) != len(before) {
		t.Errorf("studies %d -> %d, want no new study", len(before), len(after))
	}
}

func TestCreateFolderExam_MissingFolder(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.exams.CreateFolderExam(context.Background(), testUser, "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
