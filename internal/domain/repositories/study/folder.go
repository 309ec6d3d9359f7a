package study

import (
	"context"

	models "neurostudy/internal/domain/models/study"
)

// FolderRepository stores a user's folders as a flat list keyed by id.
type FolderRepository interface {
	// Create inserts a new folder. The caller assigns the ID.
	Create(ctx context.Context, folder *models.Folder) error

	// CreateIfNotExists inserts the folder unless one with the same ID exists.
	// Returns true if a row was inserted.
	CreateIfNotExists(ctx context.Context, folder *models.Folder) (bool, error)

	// GetByID returns domain.ErrNotFound if the folder does not exist for the owner.
	GetByID(ctx context.Context, ownerID, id string) (*models.Folder, error)

	// ListByOwner returns every folder of the owner in creation order.
	ListByOwner(ctx context.Context, ownerID string) ([]models.Folder, error)

	// Update persists name, parent and color.
	Update(ctx context.Context, folder *models.Folder) error

	// LockOwner serializes hierarchy changes of one owner until the current
	// transaction ends. Must be called inside TransactionManager.ExecTx.
	LockOwner(ctx context.Context, ownerID string) error

	// DeleteMany removes the given folders. Missing ids are ignored.
	DeleteMany(ctx context.Context, ownerID string, ids []string) (int, error)
}
