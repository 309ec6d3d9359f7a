package study

import (
	"context"
	"log/slog"

	models "neurostudy/internal/domain/models/study"
	studyRepo "neurostudy/internal/domain/repositories/study"
	studySvc "neurostudy/internal/domain/services/study"
)

// treeService implements the TreeService interface
type treeService struct {
	folderRepo  studyRepo.FolderRepository
	sessionRepo studyRepo.SessionRepository
	logger      *slog.Logger
}

// NewTreeService creates a new tree service
func NewTreeService(
	folderRepo studyRepo.FolderRepository,
	sessionRepo studyRepo.SessionRepository,
	logger *slog.Logger,
) studySvc.TreeService {
	return &treeService{
		folderRepo:  folderRepo,
		sessionRepo: sessionRepo,
		logger:      logger,
	}
}

// GetTree builds the nested folder tree with study summaries from the flat lists
func (s *treeService) GetTree(ctx context.Context, userID string) (*models.TreeNode, error) {
	allFolders, err := s.folderRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	allSessions, err := s.sessionRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	tree := buildTree(allFolders, allSessions)

	s.logger.Debug("study tree built",
		"user_id", userID,
		"folder_count", len(allFolders),
		"study_count", len(allSessions),
	)

	return tree, nil
}

// buildTree nests folders and studies in three passes. A folder whose parent
// is missing is shown at the root so it stays reachable.
func buildTree(allFolders []models.Folder, allSessions []models.Session) *models.TreeNode {
	folderMap := make(map[string]*models.FolderTreeNode, len(allFolders))
	var rootFolderIDs []string

	// First pass: create all folder nodes
	for _, folder := range allFolders {
		folderMap[folder.ID] = &models.FolderTreeNode{
			ID:        folder.ID,
			Name:      folder.Name,
			ParentID:  folder.ParentID,
			Color:     folder.Color,
			Protected: folder.IsProtected(),
			CreatedAt: folder.CreatedAt,
			Folders:   []*models.FolderTreeNode{},
			Studies:   []models.Summary{},
		}
	}

	// Second pass: attach children to parents
	for _, folder := range allFolders {
		node := folderMap[folder.ID]
		if folder.ParentID == nil {
			rootFolderIDs = append(rootFolderIDs, folder.ID)
			continue
		}
		if parent, exists := folderMap[*folder.ParentID]; exists {
			parent.Folders = append(parent.Folders, node)
		} else {
			rootFolderIDs = append(rootFolderIDs, folder.ID)
		}
	}

	// Third pass: add studies to their folders
	for i := range allSessions {
		if parent, exists := folderMap[allSessions[i].FolderID]; exists {
			parent.Studies = append(parent.Studies, allSessions[i].Summarize())
		}
	}

	rootFolders := make([]*models.FolderTreeNode, 0, len(rootFolderIDs))
	for _, id := range rootFolderIDs {
		rootFolders = append(rootFolders, folderMap[id])
	}

	return &models.TreeNode{Folders: rootFolders}
}
