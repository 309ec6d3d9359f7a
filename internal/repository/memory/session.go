package memory

import (
	"context"
	"fmt"
	"time"

	"neurostudy/internal/domain"
	models "neurostudy/internal/domain/models/study"
	studyRepo "neurostudy/internal/domain/repositories/study"
)

// SessionRepository implements studyRepo.SessionRepository in process memory.
type SessionRepository struct {
	store *Store
	now   func() time.Time
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(store *Store) studyRepo.SessionRepository {
	return &SessionRepository{store: store, now: time.Now}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	unlock := r.store.lock(ctx)
	defer unlock()

	lib := r.store.library(session.OwnerID, true)
	if _, exists := lib.sessions[session.ID]; exists {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("study %s already exists", session.ID),
			ResourceType: "study",
			ResourceID:   session.ID,
		}
	}
	lib.sessions[session.ID] = session.Clone()
	lib.sessionOrder = append(lib.sessionOrder, session.ID)
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Session, error) {
	unlock := r.store.lock(ctx)
	defer unlock()

	s, err := r.find(ownerID, id)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

func (r *SessionRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Session, error) {
	return r.list(ctx, ownerID, func(*models.Session) bool { return true })
}

func (r *SessionRepository) ListByFolder(ctx context.Context, ownerID, folderID string) ([]models.Session, error) {
	return r.list(ctx, ownerID, func(s *models.Session) bool { return s.FolderID == folderID })
}

func (r *SessionRepository) Update(ctx context.Context, ownerID, id string, upd *studyRepo.SessionUpdate) (*models.Session, error) {
	unlock := r.store.lock(ctx)
	defer unlock()

	s, err := r.find(ownerID, id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		s.Title = *upd.Title
	}
	if upd.FolderID != nil {
		s.FolderID = *upd.FolderID
	}
	if upd.Mode != nil {
		s.Mode = *upd.Mode
	}
	if upd.SetGuide {
		s.Guide = upd.Guide.Clone()
	}
	if upd.SetSlides {
		s.Slides = models.CloneSlides(upd.Slides)
	}
	if upd.SetQuiz {
		s.Quiz = models.CloneQuiz(upd.Quiz)
	}
	if upd.SetFlashcards {
		s.Flashcards = models.CloneFlashcards(upd.Flashcards)
	}
	if upd.SetProcessing {
		s.Processing = nil
		if upd.Processing != nil {
			p := *upd.Processing
			s.Processing = &p
		}
	}
	s.UpdatedAt = r.now()

	return s.Clone(), nil
}

func (r *SessionRepository) AppendSource(ctx context.Context, ownerID, id string, src models.Source) (*models.Session, error) {
	unlock := r.store.lock(ctx)
	defer unlock()

	s, err := r.find(ownerID, id)
	if err != nil {
		return nil, err
	}
	s.Sources = append(s.Sources, src)
	s.UpdatedAt = r.now()
	return s.Clone(), nil
}

func (r *SessionRepository) RemoveSource(ctx context.Context, ownerID, id, sourceID string) (*models.Session, error) {
	unlock := r.store.lock(ctx)
	defer unlock()

	s, err := r.find(ownerID, id)
	if err != nil {
		return nil, err
	}
	kept := make([]models.Source, 0, len(s.Sources))
	for _, src := range s.Sources {
		if src.ID != sourceID {
			kept = append(kept, src)
		}
	}
	if len(kept) == len(s.Sources) {
		return nil, fmt.Errorf("source %s: %w", sourceID, domain.ErrNotFound)
	}
	s.Sources = kept
	s.UpdatedAt = r.now()
	return s.Clone(), nil
}

func (r *SessionRepository) Delete(ctx context.Context, ownerID, id string) error {
	unlock := r.store.lock(ctx)
	defer unlock()

	if _, err := r.find(ownerID, id); err != nil {
		return err
	}
	lib := r.store.library(ownerID, false)
	delete(lib.sessions, id)
	lib.sessionOrder = removeID(lib.sessionOrder, map[string]bool{id: true})
	return nil
}

func (r *SessionRepository) DeleteByFolders(ctx context.Context, ownerID string, folderIDs []string) ([]string, error) {
	unlock := r.store.lock(ctx)
	defer unlock()

	removed := []string{}
	lib := r.store.library(ownerID, false)
	if lib == nil {
		return removed, nil
	}
	inSet := make(map[string]bool, len(folderIDs))
	for _, id := range folderIDs {
		inSet[id] = true
	}
	drop := make(map[string]bool)
	for _, id := range lib.sessionOrder {
		if inSet[lib.sessions[id].FolderID] {
			drop[id] = true
			removed = append(removed, id)
			delete(lib.sessions, id)
		}
	}
	lib.sessionOrder = removeID(lib.sessionOrder, drop)
	return removed, nil
}

// find returns the stored session (not a copy). Callers must hold the lock.
func (r *SessionRepository) find(ownerID, id string) (*models.Session, error) {
	lib := r.store.library(ownerID, false)
	if lib == nil {
		return nil, fmt.Errorf("study %s: %w", id, domain.ErrNotFound)
	}
	s, ok := lib.sessions[id]
	if !ok {
		return nil, fmt.Errorf("study %s: %w", id, domain.ErrNotFound)
	}
	return s, nil
}

func (r *SessionRepository) list(ctx context.Context, ownerID string, keep func(*models.Session) bool) ([]models.Session, error) {
	unlock := r.store.lock(ctx)
	defer unlock()

	sessions := []models.Session{}
	lib := r.store.library(ownerID, false)
	if lib == nil {
		return sessions, nil
	}
	for _, id := range lib.sessionOrder {
		if s := lib.sessions[id]; keep(s) {
			sessions = append(sessions, *s.Clone())
		}
	}
	return sessions, nil
}
