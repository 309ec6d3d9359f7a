package study

import (
	"context"
	"io"
	"log/slog"
	"testing"

	models "neurostudy/internal/domain/models/study"
	studySvc "neurostudy/internal/domain/services/study"
	"neurostudy/internal/repository/memory"
)

const testUser = "user-1"

type testEnv struct {
	folders   studySvc.FolderService
	studies   studySvc.StudyService
	exams     studySvc.ExamService
	tree      studySvc.TreeService
	viewState studySvc.ViewStateService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	folderRepo := memory.NewFolderRepository(store)
	sessionRepo := memory.NewSessionRepository(store)
	txManager := memory.NewTransactionManager(store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	viewState := NewViewStateService(sessionRepo)
	env := &testEnv{
		folders:   NewFolderService(folderRepo, sessionRepo, txManager, viewState, logger),
		studies:   NewStudyService(folderRepo, sessionRepo, txManager, viewState, logger),
		exams:     NewExamService(folderRepo, sessionRepo, txManager, viewState, logger),
		tree:      NewTreeService(folderRepo, sessionRepo, logger),
		viewState: viewState,
	}

	if err := env.folders.EnsureDefaults(context.Background(), testUser); err != nil {
		t.Fatalf("ensure defaults: %v", err)
	}
	return env
}

func (e *testEnv) mustFolder(t *testing.T, name string, parent *models.Folder) *models.Folder {
	t.Helper()
	req := &studySvc.CreateFolderRequest{Name: name}
	if parent != nil {
		req.ParentID = &parent.ID
	}
	f, err := e.folders.CreateFolder(context.Background(), testUser, req)
	if err != nil {
		t.Fatalf("create folder %q: %v", name, err)
	}
	return f
}

func (e *testEnv) mustStudy(t *testing.T, folderID, title string) *models.Session {
	t.Helper()
	s, err := e.studies.CreateStudy(context.Background(), testUser, &studySvc.CreateStudyRequest{
		FolderID: folderID,
		Title:    title,
		Mode:     models.ModeNormal,
	})
	if err != nil {
		t.Fatalf("create study %q: %v", title, err)
	}
	return s
}

func (e *testEnv) folderParents(t *testing.T) map[string]string {
	t.Helper()
	list, err := e.folders.ListFolders(context.Background(), testUser)
	if err != nil {
		t.Fatalf("list folders: %v", err)
	}
	parents := make(map[string]string, len(list))
	for _, f := range list {
		p := ""
		if f.ParentID != nil {
			p = *f.ParentID
		}
		parents[f.ID] = p
	}
	return parents
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
