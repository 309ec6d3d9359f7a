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

type folderService struct {
	folderRepo  studyRepo.FolderRepository
	sessionRepo studyRepo.SessionRepository
	txManager   repositories.TransactionManager
	viewState   studySvc.ViewStateService
	logger      *slog.Logger
}

// NewFolderService creates a new folder service
func NewFolderService(
	folderRepo studyRepo.FolderRepository,
	sessionRepo studyRepo.SessionRepository,
	txManager repositories.TransactionManager,
	viewState studySvc.ViewStateService,
	logger *slog.Logger,
) studySvc.FolderService {
	return &folderService{
		folderRepo:  folderRepo,
		sessionRepo: sessionRepo,
		txManager:   txManager,
		viewState:   viewState,
		logger:      logger,
	}
}

// reservedFolders are created for every user on first access.
var reservedFolders = []struct {
	id   string
	name string
}{
	{models.DefaultFolderID, models.DefaultFolderName},
	{models.QuickStudiesFolderID, models.QuickStudiesFolderName},
}

// EnsureDefaults creates the default and quick-studies folders if missing.
func (s *folderService) EnsureDefaults(ctx context.Context, userID string) error {
	for _, rf := range reservedFolders {
		if _, err := ensureReservedFolder(ctx, s.folderRepo, userID, rf.id, rf.name); err != nil {
			return err
		}
	}
	return nil
}

func ensureReservedFolder(ctx context.Context, repo studyRepo.FolderRepository, userID, id, name string) (bool, error) {
	now := time.Now()
	created, err := repo.CreateIfNotExists(ctx, &models.Folder{
		ID:        id,
		OwnerID:   userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return false, fmt.Errorf("ensure folder %s: %w", id, err)
	}
	return created, nil
}

// CreateFolder creates a new folder under an optional parent
func (s *folderService) CreateFolder(ctx context.Context, userID string, req *studySvc.CreateFolderRequest) (*models.Folder, error) {
	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}
	if err := validateCreateFolder(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	now := time.Now()
	folder := &models.Folder{
		ID:        uuid.NewString(),
		OwnerID:   userID,
		Name:      strings.TrimSpace(req.Name),
		ParentID:  req.ParentID,
		Color:     normalizeColor(req.Color),
		CreatedAt: now,
		UpdatedAt: now,
	}

	// The parent check and insert share the owner lock with delete, so a
	// folder is never created under a parent that is being removed.
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.folderRepo.LockOwner(txCtx, userID); err != nil {
			return err
		}
		if req.ParentID != nil {
			if _, err := s.folderRepo.GetByID(txCtx, userID, *req.ParentID); err != nil {
				return fmt.Errorf("parent folder: %w", err)
			}
		}
		return s.folderRepo.Create(txCtx, folder)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder created",
		"id", folder.ID,
		"name", folder.Name,
		"parent_id", folder.ParentID,
		"user_id", userID,
	)

	return folder, nil
}

// GetFolder retrieves a folder by ID
func (s *folderService) GetFolder(ctx context.Context, userID, folderID string) (*models.Folder, error) {
	return s.folderRepo.GetByID(ctx, userID, folderID)
}

// ListFolders returns the flat folder list in creation order
func (s *folderService) ListFolders(ctx context.Context, userID string) ([]models.Folder, error) {
	return s.folderRepo.ListByOwner(ctx, userID)
}

// UpdateFolder renames and/or moves a folder. Both changes are checked before
// anything is written.
func (s *folderService) UpdateFolder(ctx context.Context, userID, folderID string, req *studySvc.UpdateFolderRequest) (*models.Folder, error) {
	if err := validateUpdateFolder(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var folder *models.Folder
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		// Two concurrent moves can each pass the cycle check against the
		// other's stale parent; the owner lock makes them run one at a time.
		if err := s.folderRepo.LockOwner(txCtx, userID); err != nil {
			return err
		}
		var err error
		folder, err = s.folderRepo.GetByID(txCtx, userID, folderID)
		if err != nil {
			return err
		}

		if req.Name != nil {
			if !folder.CanRename() {
				return &domain.ForbiddenError{Message: fmt.Sprintf("folder %q cannot be renamed", folder.ID)}
			}
			folder.Name = strings.TrimSpace(*req.Name)
		}

		if req.Color != nil {
			folder.Color = normalizeColor(req.Color)
		}

		if req.Parent.Present {
			if err := s.applyMove(txCtx, userID, folder, req.Parent.ParentID); err != nil {
				return err
			}
		}

		folder.UpdatedAt = time.Now()
		return s.folderRepo.Update(txCtx, folder)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder updated",
		"id", folder.ID,
		"name", folder.Name,
		"parent_id", folder.ParentID,
	)

	return folder, nil
}

// applyMove sets folder's parent after checking the move keeps the hierarchy acyclic.
func (s *folderService) applyMove(ctx context.Context, userID string, folder *models.Folder, targetParentID *string) error {
	if targetParentID == nil || *targetParentID == "" {
		folder.ParentID = nil
		s.logger.Debug("moving folder to root", "folder_id", folder.ID)
		return nil
	}

	target := *targetParentID
	if _, err := s.folderRepo.GetByID(ctx, userID, target); err != nil {
		return fmt.Errorf("target folder: %w", err)
	}

	all, err := s.folderRepo.ListByOwner(ctx, userID)
	if err != nil {
		return fmt.Errorf("list folders: %w", err)
	}
	if err := validateNoCircularReference(folder.ID, target, all); err != nil {
		s.logger.Warn("folder move rejected",
			"folder_id", folder.ID,
			"target_parent_id", target,
			"reason", err.Error(),
		)
		return err
	}

	folder.ParentID = &target
	s.logger.Debug("moving folder to new parent",
		"folder_id", folder.ID,
		"parent_id", target,
	)
	return nil
}

// DeleteFolder removes the folder, every folder below it, and every study in
// any of them, as one transaction.
func (s *folderService) DeleteFolder(ctx context.Context, userID, folderID string) (*studySvc.DeleteFolderResult, error) {
	if models.IsProtectedFolderID(folderID) {
		return nil, &domain.ForbiddenError{Message: fmt.Sprintf("folder %q cannot be deleted", folderID)}
	}

	result := &studySvc.DeleteFolderResult{}
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.folderRepo.LockOwner(txCtx, userID); err != nil {
			return err
		}
		if _, err := s.folderRepo.GetByID(txCtx, userID, folderID); err != nil {
			return err
		}

		all, err := s.folderRepo.ListByOwner(txCtx, userID)
		if err != nil {
			return fmt.Errorf("list folders: %w", err)
		}

		closure := descendantClosure(folderID, all)
		for _, id := range closure {
			if models.IsProtectedFolderID(id) {
				return &domain.ForbiddenError{
					Message: fmt.Sprintf("folder %q contains the protected folder %q", folderID, id),
				}
			}
		}

		if _, err := s.folderRepo.DeleteMany(txCtx, userID, closure); err != nil {
			return fmt.Errorf("delete folders: %w", err)
		}
		studyIDs, err := s.sessionRepo.DeleteByFolders(txCtx, userID, closure)
		if err != nil {
			return fmt.Errorf("delete studies: %w", err)
		}

		result.FolderIDs = closure
		result.StudyIDs = studyIDs
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.viewState.Forget(ctx, userID, result.StudyIDs...)

	s.logger.Info("folder deleted",
		"id", folderID,
		"folders_removed", len(result.FolderIDs),
		"studies_removed", len(result.StudyIDs),
		"user_id", userID,
	)

	return result, nil
}

// validateNoCircularReference rejects moving folderID under targetParentID when
// folderID is the target itself or one of its ancestors. The ancestor walk keeps
// a visited set so a corrupt hierarchy cannot loop forever.
func validateNoCircularReference(folderID, targetParentID string, folders []models.Folder) error {
	if folderID == targetParentID {
		return fmt.Errorf("%w: cannot move a folder into itself", domain.ErrValidation)
	}

	parents := make(map[string]*string, len(folders))
	for i := range folders {
		parents[folders[i].ID] = folders[i].ParentID
	}

	visited := make(map[string]bool)
	current := &targetParentID
	for current != nil {
		id := *current
		if id == folderID {
			return fmt.Errorf("%w: cannot move a folder into its own descendant", domain.ErrValidation)
		}
		if visited[id] {
			return fmt.Errorf("%w: folder hierarchy already contains a cycle at %s", domain.ErrValidation, id)
		}
		visited[id] = true
		current = parents[id]
	}

	return nil
}

// descendantClosure returns rootID followed by every folder reachable from it
// through parent links, breadth first.
func descendantClosure(rootID string, folders []models.Folder) []string {
	children := make(map[string][]string)
	for _, f := range folders {
		if f.ParentID != nil {
			children[*f.ParentID] = append(children[*f.ParentID], f.ID)
		}
	}

	closure := []string{rootID}
	visited := map[string]bool{rootID: true}
	for i := 0; i < len(closure); i++ {
		for _, child := range children[closure[i]] {
			if !visited[child] {
				visited[child] = true
				closure = append(closure, child)
			}
		}
	}
	return closure
}

func normalizeColor(color *string) *string {
	if color == nil {
		return nil
	}
	c := strings.TrimSpace(*color)
	if c == "" {
		return nil
	}
	return &c
}
