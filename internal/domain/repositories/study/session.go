package study

import (
	"context"

	models "neurostudy/internal/domain/models/study"
)

// SessionUpdate lists the fields to replace. Each field is applied on its own,
// so writing one artifact never touches another.
type SessionUpdate struct {
	Title    *string
	FolderID *string
	Mode     *models.Mode

	SetGuide bool
	Guide    *models.Guide

	SetSlides bool
	Slides    []models.Slide

	SetQuiz bool
	Quiz    []models.QuizQuestion

	SetFlashcards bool
	Flashcards    []models.Flashcard

	SetProcessing bool
	Processing    *models.ProcessingState
}

// IsEmpty reports whether the update changes nothing.
func (u *SessionUpdate) IsEmpty() bool {
	return u.Title == nil && u.FolderID == nil && u.Mode == nil &&
		!u.SetGuide && !u.SetSlides && !u.SetQuiz && !u.SetFlashcards && !u.SetProcessing
}

// SessionRepository stores study sessions as a flat list, each tagged with one folder.
type SessionRepository interface {
	// Create inserts a new session. The caller assigns the ID.
	Create(ctx context.Context, session *models.Session) error

	// GetByID returns domain.ErrNotFound if the session does not exist for the owner.
	GetByID(ctx context.Context, ownerID, id string) (*models.Session, error)

	// ListByOwner returns every session of the owner in creation order.
	ListByOwner(ctx context.Context, ownerID string) ([]models.Session, error)

	// ListByFolder returns the sessions of one folder in creation order.
	ListByFolder(ctx context.Context, ownerID, folderID string) ([]models.Session, error)

	// Update applies the non-empty fields of upd and returns the stored session.
	Update(ctx context.Context, ownerID, id string, upd *SessionUpdate) (*models.Session, error)

	// AppendSource adds src to the end of the session's source list.
	AppendSource(ctx context.Context, ownerID, id string, src models.Source) (*models.Session, error)

	// RemoveSource drops the source with sourceID. Returns domain.ErrNotFound
	// if the session or the source does not exist.
	RemoveSource(ctx context.Context, ownerID, id, sourceID string) (*models.Session, error)

	// Delete removes one session.
	Delete(ctx context.Context, ownerID, id string) error

	// DeleteByFolders removes every session whose folder is in folderIDs and
	// returns the removed ids.
	DeleteByFolders(ctx context.Context, ownerID string, folderIDs []string) ([]string, error)
}
