package memory

import (
	"context"
	"fmt"

	"neurostudy/internal/domain"
	models "neurostudy/internal/domain/models/study"
	studyRepo "neurostudy/internal/domain/repositories/study"
)

// FolderRepository implements studyRepo.FolderRepository in process memory.
type FolderRepository struct {
	store *Store
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(store *Store) studyRepo.FolderRepository {
	return &FolderRepository{store: store}
}

func (r *FolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	unlock := r.store.lock(ctx)
	defer unlock()

	lib := r.store.library(folder.OwnerID, true)
	if _, exists := lib.folders[folder.ID]; exists {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("folder %s already exists", folder.ID),
			ResourceType: "folder",
			ResourceID:   folder.ID,
		}
	}
	lib.folders[folder.ID] = cloneFolder(folder)
	lib.folderOrder = append(lib.folderOrder, folder.ID)
	return nil
}

func (r *FolderRepository) CreateIfNotExists(ctx context.Context, folder *models.Folder) (bool, error) {
	unlock := r.store.lock(ctx)
	defer unlock()

	lib := r.store.library(folder.OwnerID, true)
	if _, exists := lib.folders[folder.ID]; exists {
		return false, nil
	}
	lib.folders[folder.ID] = cloneFolder(folder)
	lib.folderOrder = append(lib.folderOrder, folder.ID)
	return true, nil
}

func (r *FolderRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Folder, error) {
	unlock := r.store.lock(ctx)
	defer unlock()

	lib := r.store.library(ownerID, false)
	if lib == nil {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	f, ok := lib.folders[id]
	if !ok {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	return cloneFolder(f), nil
}

func (r *FolderRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Folder, error) {
	unlock := r.store.lock(ctx)
	defer unlock()

	folders := []models.Folder{}
	lib := r.store.library(ownerID, false)
	if lib == nil {
		return folders, nil
	}
	for _, id := range lib.folderOrder {
		folders = append(folders, *cloneFolder(lib.folders[id]))
	}
	return folders, nil
}

// LockOwner is a no-op: ExecTx already holds the store mutex.
func (r *FolderRepository) LockOwner(ctx context.Context, ownerID string) error {
	return nil
}

func (r *FolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	unlock := r.store.lock(ctx)
	defer unlock()

	lib := r.store.library(folder.OwnerID, false)
	if lib == nil {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}
	existing, ok := lib.folders[folder.ID]
	if !ok {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}
	updated := cloneFolder(folder)
	updated.CreatedAt = existing.CreatedAt
	lib.folders[folder.ID] = updated
	return nil
}

func (r *FolderRepository) DeleteMany(ctx context.Context, ownerID string, ids []string) (int, error) {
	unlock := r.store.lock(ctx)
	defer unlock()

	lib := r.store.library(ownerID, false)
	if lib == nil {
		return 0, nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := lib.folders[id]; ok {
			drop[id] = true
			delete(lib.folders, id)
		}
	}
	lib.folderOrder = removeID(lib.folderOrder, drop)
	return len(drop), nil
}
