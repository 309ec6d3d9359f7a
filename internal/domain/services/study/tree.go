package study

import (
	"context"

	models "neurostudy/internal/domain/models/study"
)

// TreeService handles tree-related operations
type TreeService interface {
	// GetTree returns the nested folder tree with study summaries
	GetTree(ctx context.Context, userID string) (*models.TreeNode, error)
}
