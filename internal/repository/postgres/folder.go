package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	models "neurostudy/internal/domain/models/study"
	"neurostudy/internal/domain/repositories"
	studyRepo "neurostudy/internal/domain/repositories/study"
)

const folderColumns = "id, owner_id, name, parent_id, color, created_at, updated_at"

const lockOwnerQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`

// PostgresFolderRepository implements studyRepo.FolderRepository
type PostgresFolderRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(config *RepositoryConfig) studyRepo.FolderRepository {
	return &PostgresFolderRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a new folder
func (r *PostgresFolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.tables.Folders, folderColumns)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		folder.ID,
		folder.OwnerID,
		folder.Name,
		folder.ParentID,
		folder.Color,
		folder.CreatedAt,
		folder.UpdatedAt,
	)
	if err != nil {
		return mapInsertError(err, "folder", folder.ID)
	}

	return nil
}

// CreateIfNotExists inserts the folder unless the owner already has one with its ID
func (r *PostgresFolderRepository) CreateIfNotExists(ctx context.Context, folder *models.Folder) (bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_id, id) DO NOTHING
	`, r.tables.Folders, folderColumns)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query,
		folder.ID,
		folder.OwnerID,
		folder.Name,
		folder.ParentID,
		folder.Color,
		folder.CreatedAt,
		folder.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("create folder %s: %w", folder.ID, err)
	}

	return tag.RowsAffected() == 1, nil
}

// GetByID retrieves a folder by ID
func (r *PostgresFolderRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE owner_id = $1 AND id = $2
	`, folderColumns, r.tables.Folders)

	var folder models.Folder
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, ownerID, id).Scan(
		&folder.ID,
		&folder.OwnerID,
		&folder.Name,
		&folder.ParentID,
		&folder.Color,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, notFound("folder", id)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}

	return &folder, nil
}

// ListByOwner returns every folder of the owner in creation order
func (r *PostgresFolderRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE owner_id = $1
		ORDER BY seq
	`, folderColumns, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	folders := []models.Folder{}
	for rows.Next() {
		var folder models.Folder
		if err := rows.Scan(
			&folder.ID,
			&folder.OwnerID,
			&folder.Name,
			&folder.ParentID,
			&folder.Color,
			&folder.CreatedAt,
			&folder.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return folders, nil
}

// Update persists name, parent and color
func (r *PostgresFolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, parent_id = $2, color = $3, updated_at = $4
		WHERE owner_id = $5 AND id = $6
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		folder.Name,
		folder.ParentID,
		folder.Color,
		folder.UpdatedAt,
		folder.OwnerID,
		folder.ID,
	)
	if err != nil {
		return fmt.Errorf("update folder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return notFound("folder", folder.ID)
	}

	return nil
}

// DeleteMany removes the given folders in one statement
func (r *PostgresFolderRepository) DeleteMany(ctx context.Context, ownerID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE owner_id = $1 AND id = ANY($2)
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, ownerID, ids)
	if err != nil {
		return 0, fmt.Errorf("delete folders: %w", err)
	}

	r.logger.Debug("folders deleted", "owner_id", ownerID, "count", result.RowsAffected())
	return int(result.RowsAffected()), nil
}

// LockOwner takes a transaction-scoped advisory lock on the owner. It is
// released on commit or rollback.
func (r *PostgresFolderRepository) LockOwner(ctx context.Context, ownerID string) error {
	if repositories.GetTx(ctx) == nil {
		return fmt.Errorf("lock owner %s: no transaction in context", ownerID)
	}

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, lockOwnerQuery, ownerLockKey(r.tables.Folders, ownerID)); err != nil {
		return fmt.Errorf("lock owner %s: %w", ownerID, err)
	}
	return nil
}

// ownerLockKey includes the table name so deployments sharing a database
// under different prefixes do not block each other.
func ownerLockKey(table, ownerID string) string {
	return table + ":" + ownerID
}
