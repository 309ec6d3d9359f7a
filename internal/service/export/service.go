package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"neurostudy/internal/domain"
	models "neurostudy/internal/domain/models/study"
	studySvc "neurostudy/internal/domain/services/study"
)

// Document is a rendered export ready for download.
type Document struct {
	Filename string
	Content  []byte
}

// Service exports study guides to markdown and imports them back.
type Service struct {
	studies studySvc.StudyService
	now     func() time.Time
	logger  *slog.Logger
}

// NewService creates an export service.
func NewService(studies studySvc.StudyService, logger *slog.Logger) *Service {
	return &Service{
		studies: studies,
		now:     time.Now,
		logger:  logger,
	}
}

// Export renders the study's guide as markdown.
func (s *Service) Export(ctx context.Context, userID, studyID string) (*Document, error) {
	study, err := s.studies.GetStudy(ctx, userID, studyID)
	if err != nil {
		return nil, err
	}
	if study.Guide == nil {
		return nil, fmt.Errorf("%w: study has no guide to export", domain.ErrValidation)
	}

	content, err := Markdown(study.Guide, study.Mode, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Debug("guide exported",
		"study_id", studyID,
		"bytes", len(content),
	)
	return &Document{
		Filename: Filename(study.Guide.Subject),
		Content:  content,
	}, nil
}

// Import replaces the study's guide with one parsed from markdown. Other
// artifacts are left alone.
func (s *Service) Import(ctx context.Context, userID, studyID string, data []byte) (*models.Session, error) {
	guide, err := ParseMarkdown(data)
	if err != nil {
		return nil, err
	}

	study, err := s.studies.UpdateGuide(ctx, userID, studyID, guide)
	if err != nil {
		return nil, err
	}

	s.logger.Info("guide imported",
		"study_id", studyID,
		"concepts", len(guide.CoreConcepts),
		"checkpoints", len(guide.Checkpoints),
	)
	return study, nil
}
