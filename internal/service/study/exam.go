package study

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"neurostudy/internal/config"
	"neurostudy/internal/domain"
	models "neurostudy/internal/domain/models/study"
	"neurostudy/internal/domain/repositories"
	studyRepo "neurostudy/internal/domain/repositories/study"
	studySvc "neurostudy/internal/domain/services/study"
	"neurostudy/internal/utils"
)

// ErrNoGuides is returned when a folder has no study with a generated guide.
var ErrNoGuides = fmt.Errorf("%w: no generated guides in this folder", domain.ErrValidation)

type examService struct {
	folderRepo  studyRepo.FolderRepository
	sessionRepo studyRepo.SessionRepository
	txManager   repositories.TransactionManager
	viewState   studySvc.ViewStateService
	logger      *slog.Logger
}

// NewExamService creates a new exam service
func NewExamService(
	folderRepo studyRepo.FolderRepository,
	sessionRepo studyRepo.SessionRepository,
	txManager repositories.TransactionManager,
	viewState studySvc.ViewStateService,
	logger *slog.Logger,
) studySvc.ExamService {
	return &examService{
		folderRepo:  folderRepo,
		sessionRepo: sessionRepo,
		txManager:   txManager,
		viewState:   viewState,
		logger:      logger,
	}
}

// CreateFolderExam merges the guides of the folder's direct studies into a new
// NORMAL study in the same folder and opens it on the quiz tab.
func (s *examService) CreateFolderExam(ctx context.Context, userID, folderID string) (*models.Session, error) {
	var (
		exam    *models.Session
		sources int
	)
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.folderRepo.LockOwner(txCtx, userID); err != nil {
			return err
		}
		folder, err := s.folderRepo.GetByID(txCtx, userID, folderID)
		if err != nil {
			return err
		}

		sessions, err := s.sessionRepo.ListByFolder(txCtx, userID, folderID)
		if err != nil {
			return fmt.Errorf("list folder studies: %w", err)
		}

		guide, count := BuildExamGuide(folder.Name, sessions)
		if guide == nil {
			return ErrNoGuides
		}
		sources = count

		exam = newSession(userID, folderID, guide.Subject, models.ModeNormal)
		exam.Guide = guide
		return s.sessionRepo.Create(txCtx, exam)
	})
	if err != nil {
		return nil, err
	}

	s.viewState.Open(ctx, userID, exam.ID, models.TabQuiz)

	s.logger.Info("folder exam created",
		"id", exam.ID,
		"folder_id", folderID,
		"studies", sources,
		"checkpoints", len(exam.Guide.Checkpoints),
	)

	return exam, nil
}

// BuildExamGuide concatenates the guides of sessions, in order, into one guide.
// Sessions without a guide are skipped. Concepts are not deduplicated. Each
// checkpoint is copied whole, including its image and completion state, with
// the note cut to the first ExamNoteMaxChars characters.
// Returns nil when no session has a guide.
func BuildExamGuide(folderName string, sessions []models.Session) (*models.Guide, int) {
	var (
		titles      []string
		concepts    = []models.CoreConcept{}
		checkpoints = []models.Checkpoint{}
	)

	for i := range sessions {
		g := sessions[i].Guide
		if g == nil {
			continue
		}
		titles = append(titles, sessions[i].Title)
		concepts = append(concepts, g.CoreConcepts...)
		for _, cp := range g.Checkpoints {
			c := cp
			c.NoteExactly = utils.TruncateRunes(cp.NoteExactly, config.ExamNoteMaxChars)
			c.DrawLabel = cp.DrawLabel.Normalize()
			if cp.CompletedAt != nil {
				at := *cp.CompletedAt
				c.CompletedAt = &at
			}
			checkpoints = append(checkpoints, c)
		}
	}

	if len(titles) == 0 {
		return nil, 0
	}

	return &models.Guide{
		Subject:      "Exam: " + folderName,
		Overview:     fmt.Sprintf("Unified exam covering %d studies: %s", len(titles), strings.Join(titles, ", ")),
		CoreConcepts: concepts,
		Checkpoints:  checkpoints,
	}, len(titles)
}
