package study

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"neurostudy/internal/domain"
	models "neurostudy/internal/domain/models/study"
	"neurostudy/internal/domain/repositories"
	studyRepo "neurostudy/internal/domain/repositories/study"
	studySvc "neurostudy/internal/domain/services/study"
)

type studyService struct {
	folderRepo  studyRepo.FolderRepository
	sessionRepo studyRepo.SessionRepository
	txManager   repositories.TransactionManager
	viewState   studySvc.ViewStateService
	logger      *slog.Logger
}

// NewStudyService creates a new study service
func NewStudyService(
	folderRepo studyRepo.FolderRepository,
	sessionRepo studyRepo.SessionRepository,
	txManager repositories.TransactionManager,
	viewState studySvc.ViewStateService,
	logger *slog.Logger,
) studySvc.StudyService {
	return &studyService{
		folderRepo:  folderRepo,
		sessionRepo: sessionRepo,
		txManager:   txManager,
		viewState:   viewState,
		logger:      logger,
	}
}

// CreateStudy creates an empty study in an existing folder
func (s *studyService) CreateStudy(ctx context.Context, userID string, req *studySvc.CreateStudyRequest) (*models.Session, error) {
	if err := validateCreateStudy(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	session := newSession(userID, req.FolderID, strings.TrimSpace(req.Title), req.Mode)
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.folderRepo.LockOwner(txCtx, userID); err != nil {
			return err
		}
		if _, err := s.folderRepo.GetByID(txCtx, userID, req.FolderID); err != nil {
			return fmt.Errorf("invalid folder: %w", err)
		}
		return s.sessionRepo.Create(txCtx, session)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("study created",
		"id", session.ID,
		"folder_id", session.FolderID,
		"mode", session.Mode,
		"user_id", userID,
	)

	return session, nil
}

func newSession(userID, folderID, title string, mode models.Mode) *models.Session {
	if mode == "" {
		mode = models.ModeNormal
	}
	now := time.Now()
	return &models.Session{
		ID:        uuid.NewString(),
		OwnerID:   userID,
		FolderID:  folderID,
		Title:     title,
		Mode:      mode,
		Sources:   []models.Source{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GetStudy retrieves a study with all its artifacts
func (s *studyService) GetStudy(ctx context.Context, userID, studyID string) (*models.Session, error) {
	return s.sessionRepo.GetByID(ctx, userID, studyID)
}

// ListStudies returns study summaries, optionally limited to one folder
func (s *studyService) ListStudies(ctx context.Context, userID string, folderID *string) ([]models.Summary, error) {
	var (
		sessions []models.Session
		err      error
	)
	if folderID != nil {
		sessions, err = s.sessionRepo.ListByFolder(ctx, userID, *folderID)
	} else {
		sessions, err = s.sessionRepo.ListByOwner(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	summaries := make([]models.Summary, 0, len(sessions))
	for i := range sessions {
		summaries = append(summaries, sessions[i].Summarize())
	}
	return summaries, nil
}

// UpdateStudy renames, moves, or changes the mode of a study
func (s *studyService) UpdateStudy(ctx context.Context, userID, studyID string, req *studySvc.UpdateStudyRequest) (*models.Session, error) {
	if err := validateUpdateStudy(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	upd := &studyRepo.SessionUpdate{Mode: req.Mode}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		upd.Title = &title
	}

	var session *models.Session
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if req.FolderID != nil {
			if err := s.folderRepo.LockOwner(txCtx, userID); err != nil {
				return err
			}
			if _, err := s.folderRepo.GetByID(txCtx, userID, *req.FolderID); err != nil {
				return fmt.Errorf("target folder: %w", err)
			}
			upd.FolderID = req.FolderID
		}

		var err error
		session, err = s.sessionRepo.Update(txCtx, userID, studyID, upd)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("study updated",
		"id", session.ID,
		"folder_id", session.FolderID,
		"mode", session.Mode,
	)

	return session, nil
}

// DeleteStudy removes a study and clears it from the view state
func (s *studyService) DeleteStudy(ctx context.Context, userID, studyID string) error {
	if err := s.sessionRepo.Delete(ctx, userID, studyID); err != nil {
		return err
	}
	s.viewState.Forget(ctx, userID, studyID)

	s.logger.Info("study deleted", "id", studyID, "user_id", userID)
	return nil
}

// AddSource appends a source to the study
func (s *studyService) AddSource(ctx context.Context, userID, studyID string, req *studySvc.AddSourceRequest) (*models.Session, error) {
	src, err := buildSource(req, time.Now())
	if err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.AppendSource(ctx, userID, studyID, src)
	if err != nil {
		return nil, err
	}

	s.logger.Info("source added",
		"study_id", studyID,
		"source_id", src.ID,
		"type", src.Type,
		"bytes", len(src.Content),
	)

	return session, nil
}

// buildSource validates req and turns it into a source with a default name.
func buildSource(req *studySvc.AddSourceRequest, now time.Time) (models.Source, error) {
	if t, err := models.ParseSourceType(string(req.Type)); err == nil {
		req.Type = t
	}
	req.Name = strings.TrimSpace(req.Name)
	if !req.Type.IsBinary() {
		req.Content = strings.TrimSpace(req.Content)
	}

	if err := validateAddSource(req); err != nil {
		return models.Source{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	name := req.Name
	if name == "" {
		name = defaultSourceName(req.Type, req.Content, now)
	}

	return models.Source{
		ID:        uuid.NewString(),
		Type:      req.Type,
		Name:      name,
		Content:   req.Content,
		MimeType:  req.MimeType,
		DateAdded: now,
	}, nil
}

func defaultSourceName(t models.SourceType, content string, now time.Time) string {
	switch t {
	case models.SourceDOI:
		return "DOI: " + content
	case models.SourceURL:
		return "Site: " + content
	case models.SourceText:
		return "Text note " + now.Format("15:04")
	default:
		return strings.ToLower(string(t)) + " file " + now.Format("15:04")
	}
}

// RemoveSource deletes one source from the study
func (s *studyService) RemoveSource(ctx context.Context, userID, studyID, sourceID string) (*models.Session, error) {
	session, err := s.sessionRepo.RemoveSource(ctx, userID, studyID, sourceID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("source removed", "study_id", studyID, "source_id", sourceID)
	return session, nil
}

// QuickStart creates a study with one source under the quick-studies folder,
// recreating that folder if it is missing. Pareto is SURVIVAL mode: the flag
// selects it when no mode is given, and the Pareto title follows the mode.
func (s *studyService) QuickStart(ctx context.Context, userID string, req *studySvc.QuickStartRequest) (*models.Session, error) {
	if err := checkMode(req.Mode); err != nil {
		return nil, err
	}
	mode := req.Mode
	if req.Pareto {
		switch mode {
		case "":
			mode = models.ModeSurvival
		case models.ModeSurvival:
		default:
			return nil, fmt.Errorf("%w: pareto requires mode %s, got %s", domain.ErrValidation, models.ModeSurvival, mode)
		}
	}

	now := time.Now()
	src, err := buildSource(&req.AddSourceRequest, now)
	if err != nil {
		return nil, err
	}

	title := "Quick Study - " + now.Format("15:04")
	if mode == models.ModeSurvival {
		title = "Pareto 80/20 Study - " + now.Format("15:04")
	}

	var session *models.Session
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if _, err := ensureReservedFolder(txCtx, s.folderRepo, userID, models.QuickStudiesFolderID, models.QuickStudiesFolderName); err != nil {
			return err
		}

		session = newSession(userID, models.QuickStudiesFolderID, title, mode)
		session.Sources = []models.Source{src}
		return s.sessionRepo.Create(txCtx, session)
	})
	if err != nil {
		return nil, err
	}

	s.viewState.Open(ctx, userID, session.ID, models.TabSources)

	s.logger.Info("quick study created",
		"id", session.ID,
		"mode", session.Mode,
		"source_type", src.Type,
		"user_id", userID,
	)

	return session, nil
}

func checkMode(m models.Mode) error {
	if err := validMode(m); err != nil {
		return fmt.Errorf("%w: mode: %v", domain.ErrValidation, err)
	}
	return nil
}

// UpdateGuide replaces the guide. nil clears it.
func (s *studyService) UpdateGuide(ctx context.Context, userID, studyID string, guide *models.Guide) (*models.Session, error) {
	if guide != nil {
		guide = guide.Clone()
		normalizeGuide(guide)
	}
	return s.update(ctx, userID, studyID, "guide", &studyRepo.SessionUpdate{SetGuide: true, Guide: guide})
}

// UpdateSlides replaces the slide deck. nil clears it.
func (s *studyService) UpdateSlides(ctx context.Context, userID, studyID string, slides []models.Slide) (*models.Session, error) {
	return s.update(ctx, userID, studyID, "slides", &studyRepo.SessionUpdate{SetSlides: true, Slides: slides})
}

// UpdateQuiz replaces the quiz. nil clears it.
func (s *studyService) UpdateQuiz(ctx context.Context, userID, studyID string, quiz []models.QuizQuestion) (*models.Session, error) {
	return s.update(ctx, userID, studyID, "quiz", &studyRepo.SessionUpdate{SetQuiz: true, Quiz: prepareQuiz(quiz)})
}

// UpdateFlashcards replaces the flashcards. nil clears them.
func (s *studyService) UpdateFlashcards(ctx context.Context, userID, studyID string, cards []models.Flashcard) (*models.Session, error) {
	return s.update(ctx, userID, studyID, "flashcards", &studyRepo.SessionUpdate{SetFlashcards: true, Flashcards: prepareFlashcards(cards)})
}

// UpdateArtifacts writes every non-nil field of req in one transaction
func (s *studyService) UpdateArtifacts(ctx context.Context, userID, studyID string, req *studySvc.ArtifactsUpdate) (*models.Session, error) {
	if req == nil {
		req = &studySvc.ArtifactsUpdate{}
	}
	upd := &studyRepo.SessionUpdate{}
	if req.Mode != nil {
		if err := checkMode(*req.Mode); err != nil {
			return nil, err
		}
		mode := *req.Mode
		upd.Mode = &mode
	}
	if req.Guide != nil {
		guide := req.Guide.Clone()
		normalizeGuide(guide)
		upd.SetGuide, upd.Guide = true, guide
	}
	if req.Slides != nil {
		upd.SetSlides, upd.Slides = true, models.CloneSlides(req.Slides)
	}
	if req.Quiz != nil {
		upd.SetQuiz, upd.Quiz = true, prepareQuiz(req.Quiz)
	}
	if req.Flashcards != nil {
		upd.SetFlashcards, upd.Flashcards = true, prepareFlashcards(req.Flashcards)
	}
	if upd.IsEmpty() {
		return nil, fmt.Errorf("%w: no artifacts to store", domain.ErrValidation)
	}

	var session *models.Session
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var err error
		session, err = s.sessionRepo.Update(txCtx, userID, studyID, upd)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("artifacts replaced",
		"study_id", studyID,
		"guide", upd.SetGuide,
		"slides", upd.SetSlides,
		"quiz", upd.SetQuiz,
		"flashcards", upd.SetFlashcards,
	)
	return session, nil
}

func prepareQuiz(quiz []models.QuizQuestion) []models.QuizQuestion {
	if quiz == nil {
		return nil
	}
	quiz = models.CloneQuiz(quiz)
	for i := range quiz {
		if quiz[i].ID == "" {
			quiz[i].ID = uuid.NewString()
		}
	}
	return quiz
}

func prepareFlashcards(cards []models.Flashcard) []models.Flashcard {
	if cards == nil {
		return nil
	}
	cards = models.CloneFlashcards(cards)
	for i := range cards {
		if cards[i].ID == "" {
			cards[i].ID = uuid.NewString()
		}
	}
	return cards
}

func (s *studyService) update(ctx context.Context, userID, studyID, artifact string, upd *studyRepo.SessionUpdate) (*models.Session, error) {
	session, err := s.sessionRepo.Update(ctx, userID, studyID, upd)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("artifact replaced", "study_id", studyID, "artifact", artifact)
	return session, nil
}

// normalizeGuide fills in defaults the model or client may omit.
func normalizeGuide(g *models.Guide) {
	if g.CoreConcepts == nil {
		g.CoreConcepts = []models.CoreConcept{}
	}
	if g.Checkpoints == nil {
		g.Checkpoints = []models.Checkpoint{}
	}
	for i := range g.Checkpoints {
		g.Checkpoints[i].DrawLabel = g.Checkpoints[i].DrawLabel.Normalize()
	}
}

// UpdateCheckpoint edits the user-editable fields of one checkpoint
func (s *studyService) UpdateCheckpoint(ctx context.Context, userID, studyID string, index int, req *studySvc.UpdateCheckpointRequest) (*models.Session, error) {
	if req.NoteExactly == nil && req.DrawExactly == nil && req.Completed == nil && req.ImageURL == nil {
		return nil, fmt.Errorf("%w: at least one field must be provided", domain.ErrValidation)
	}

	var session *models.Session
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		current, err := s.sessionRepo.GetByID(txCtx, userID, studyID)
		if err != nil {
			return err
		}
		if current.Guide == nil {
			return fmt.Errorf("%w: study %s has no guide", domain.ErrValidation, studyID)
		}
		if index < 0 || index >= len(current.Guide.Checkpoints) {
			return fmt.Errorf("checkpoint %d: %w", index, domain.ErrNotFound)
		}

		guide := current.Guide
		cp := &guide.Checkpoints[index]
		if req.NoteExactly != nil {
			cp.NoteExactly = *req.NoteExactly
		}
		if req.DrawExactly != nil {
			cp.DrawExactly = *req.DrawExactly
		}
		if req.ImageURL != nil {
			cp.ImageURL = *req.ImageURL
		}
		if req.Completed != nil {
			switch {
			case *req.Completed && !cp.Completed:
				now := time.Now()
				cp.CompletedAt = &now
			case !*req.Completed:
				cp.CompletedAt = nil
			}
			cp.Completed = *req.Completed
		}

		session, err = s.sessionRepo.Update(txCtx, userID, studyID, &studyRepo.SessionUpdate{SetGuide: true, Guide: guide})
		return err
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// SetProcessing records the state of the last generation attempt
func (s *studyService) SetProcessing(ctx context.Context, userID, studyID string, state *models.ProcessingState) error {
	if state != nil && state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now()
	}
	_, err := s.sessionRepo.Update(ctx, userID, studyID, &studyRepo.SessionUpdate{SetProcessing: true, Processing: state})
	return err
}
