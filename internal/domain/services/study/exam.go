package study

import (
	"context"

	models "neurostudy/internal/domain/models/study"
)

// ExamService builds a combined review study from every guide in a folder.
type ExamService interface {
	CreateFolderExam(ctx context.Context, userID, folderID string) (*models.Session, error)
}
