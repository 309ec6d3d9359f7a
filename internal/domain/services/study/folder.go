package study

import (
	"context"

	models "neurostudy/internal/domain/models/study"
)

// FolderService handles folder business logic and the tree invariants.
type FolderService interface {
	// EnsureDefaults creates the reserved folders for a user if missing.
	EnsureDefaults(ctx context.Context, userID string) error

	// CreateFolder creates a new folder under an optional parent
	CreateFolder(ctx context.Context, userID string, req *CreateFolderRequest) (*models.Folder, error)

	// GetFolder retrieves a folder by ID
	GetFolder(ctx context.Context, userID, folderID string) (*models.Folder, error)

	// ListFolders returns the flat folder list in creation order
	ListFolders(ctx context.Context, userID string) ([]models.Folder, error)

	// UpdateFolder renames and/or moves a folder in one atomic step
	UpdateFolder(ctx context.Context, userID, folderID string, req *UpdateFolderRequest) (*models.Folder, error)

	// DeleteFolder removes the folder, all descendant folders and their studies
	DeleteFolder(ctx context.Context, userID, folderID string) (*DeleteFolderResult, error)
}

// CreateFolderRequest represents a folder creation request
type CreateFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id,omitempty"` // null for root
	Color    *string `json:"color,omitempty"`
}

// ParentChange tracks tri-state semantics for a move.
//   - Present=false: leave the parent unchanged
//   - Present=true, ParentID=nil: move to root
//   - Present=true, ParentID=&id: move under id
type ParentChange struct {
	Present  bool
	ParentID *string
}

// UpdateFolderRequest represents a folder update request.
// Parent has no json tag; the handler maps it from its DTO.
type UpdateFolderRequest struct {
	Name   *string
	Color  *string
	Parent ParentChange
}

// DeleteFolderResult reports what a cascading delete removed.
type DeleteFolderResult struct {
	FolderIDs []string `json:"folder_ids"`
	StudyIDs  []string `json:"study_ids"`
}
