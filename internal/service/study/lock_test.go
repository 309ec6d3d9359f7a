package study

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"neurostudy/internal/domain"
	models "neurostudy/internal/domain/models/study"
	"neurostudy/internal/domain/repositories"
	studyRepo "neurostudy/internal/domain/repositories/study"
	studySvc "neurostudy/internal/domain/services/study"
	"neurostudy/internal/repository/memory"
)

// callLog records repository calls in order, marking which ran inside a transaction.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

type txMarker struct{}

func (l *callLog) add(ctx context.Context, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ctx.Value(txMarker{}) == nil {
		name += " (no tx)"
	}
	l.calls = append(l.calls, name)
}

func (l *callLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type recordingTxManager struct {
	inner repositories.TransactionManager
}

func (m *recordingTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return m.inner.ExecTx(ctx, func(txCtx context.Context) error {
		return fn(context.WithValue(txCtx, txMarker{}, true))
	})
}

type recordingFolderRepo struct {
	studyRepo.FolderRepository
	log *callLog
}

func (r *recordingFolderRepo) LockOwner(ctx context.Context, ownerID string) error {
	r.log.add(ctx, "lock")
	return r.FolderRepository.LockOwner(ctx, ownerID)
}

func (r *recordingFolderRepo) GetByID(ctx context.Context, ownerID, id string) (*models.Folder, error) {
	r.log.add(ctx, "get")
	return r.FolderRepository.GetByID(ctx, ownerID, id)
}

func (r *recordingFolderRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.Folder, error) {
	r.log.add(ctx, "list")
	return r.FolderRepository.ListByOwner(ctx, ownerID)
}

func TestHierarchyChangesLockOwnerFirst(t *testing.T) {
	store := memory.NewStore()
	log := &callLog{}
	folderRepo := &recordingFolderRepo{FolderRepository: memory.NewFolderRepository(store), log: log}
	sessionRepo := memory.NewSessionRepository(store)
	txManager := &recordingTxManager{inner: memory.NewTransactionManager(store)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	viewState := NewViewStateService(sessionRepo)

	folders := NewFolderService(folderRepo, sessionRepo, txManager, viewState, logger)
	studies := NewStudyService(folderRepo, sessionRepo, txManager, viewState, logger)
	exams := NewExamService(folderRepo, sessionRepo, txManager, viewState, logger)
	ctx := context.Background()

	if err := folders.EnsureDefaults(ctx, testUser); err != nil {
		t.Fatalf("ensure defaults: %v", err)
	}
	a, err := folders.CreateFolder(ctx, testUser, &studySvc.CreateFolderRequest{Name: "A"})
	if err != nil {
		t.Fatalf("create A: %v", err)
	}
	b, err := folders.CreateFolder(ctx, testUser, &studySvc.CreateFolderRequest{Name: "B"})
	if err != nil {
		t.Fatalf("create B: %v", err)
	}
	s, err := studies.CreateStudy(ctx, testUser, &studySvc.CreateStudyRequest{FolderID: a.ID, Title: "X"})
	if err != nil {
		t.Fatalf("create study: %v", err)
	}
	if _, err := studies.UpdateGuide(ctx, testUser, s.ID, &models.Guide{Subject: "X"}); err != nil {
		t.Fatalf("guide: %v", err)
	}

	tests := []struct {
		name string
		run  func() error
	}{
		{
			name: "create folder under parent",
			run: func() error {
				_, err := folders.CreateFolder(ctx, testUser, &studySvc.CreateFolderRequest{Name: "C", ParentID: &a.ID})
				return err
			},
		},
		{
			name: "move folder",
			run: func() error {
				_, err := folders.UpdateFolder(ctx, testUser, b.ID, &studySvc.UpdateFolderRequest{
					Parent: studySvc.ParentChange{Present: true, ParentID: &a.ID},
				})
				return err
			},
		},
		{
			name: "create study",
			run: func() error {
				_, err := studies.CreateStudy(ctx, testUser, &studySvc.CreateStudyRequest{FolderID: b.ID, Title: "Y"})
				return err
			},
		},
		{
			name: "move study",
			run: func() error {
				_, err := studies.UpdateStudy(ctx, testUser, s.ID, &studySvc.UpdateStudyRequest{FolderID: &b.ID})
				return err
			},
		},
		{
			name: "folder exam",
			run: func() error {
				_, err := exams.CreateFolderExam(ctx, testUser, b.ID)
				return err
			},
		},
		{
			name: "delete folder",
			run: func() error {
				_, err := folders.DeleteFolder(ctx, testUser, a.ID)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log.reset()
			if err := tt.run(); err != nil {
				t.Fatalf("run: %v", err)
			}
			calls := log.snapshot()
			if len(calls) == 0 || calls[0] != "lock" {
				t.Fatalf("calls = %v, want lock first inside the transaction", calls)
			}
		})
	}
}

func TestConcurrentCrossMovesKeepHierarchyAcyclic(t *testing.T) {
	for i := 0; i < 20; i++ {
		env := newTestEnv(t)
		ctx := context.Background()
		a := env.mustFolder(t, "A", nil)
		b := env.mustFolder(t, "B", nil)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		move := func(slot int, folderID, parentID string) {
			defer wg.Done()
			_, errs[slot] = env.folders.UpdateFolder(ctx, testUser, folderID, &studySvc.UpdateFolderRequest{
				Parent: studySvc.ParentChange{Present: true, ParentID: &parentID},
			})
		}
		wg.Add(2)
		go move(0, a.ID, b.ID)
		go move(1, b.ID, a.ID)
		wg.Wait()

		failed := 0
		for _, err := range errs {
			if err != nil {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("unexpected error: %v", err)
				}
				failed++
			}
		}
		if failed != 1 {
			t.Fatalf("round %d: %d moves failed, want exactly 1", i, failed)
		}

		parents := env.folderParents(t)
		if parents[a.ID] == b.ID && parents[b.ID] == a.ID {
			t.Fatalf("round %d: cycle between A and B", i)
		}
	}
}
