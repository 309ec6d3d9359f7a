package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	models "neurostudy/internal/domain/models/study"
	studyRepo "neurostudy/internal/domain/repositories/study"
)

const sessionColumns = "id, owner_id, folder_id, title, mode, sources, guide, slides, quiz, flashcards, processing, created_at, updated_at"

// PostgresSessionRepository implements studyRepo.SessionRepository. Sources
// and artifacts are JSONB columns; a NULL artifact column means "not generated".
type PostgresSessionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
	now    func() time.Time
}

// NewSessionRepository creates a new study session repository
func NewSessionRepository(config *RepositoryConfig) studyRepo.SessionRepository {
	return &PostgresSessionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
		now:    time.Now,
	}
}

// Create inserts a new session
func (r *PostgresSessionRepository) Create(ctx context.Context, session *models.Session) error {
	sources := session.Sources
	if sources == nil {
		sources = []models.Source{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	guide, slides, quiz, flashcards, processing, err := marshalArtifacts(session)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, r.tables.Studies, sessionColumns)

	executor := GetExecutor(ctx, r.pool)
	_, err = executor.Exec(ctx, query,
		session.ID,
		session.OwnerID,
		session.FolderID,
		session.Title,
		string(session.Mode),
		sourcesJSON,
		guide,
		slides,
		quiz,
		flashcards,
		processing,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return mapInsertError(err, "study", session.ID)
	}

	return nil
}

// GetByID retrieves a session by ID
func (r *PostgresSessionRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE owner_id = $1 AND id = $2
	`, sessionColumns, r.tables.Studies)

	executor := GetExecutor(ctx, r.pool)
	session, err := scanSession(executor.QueryRow(ctx, query, ownerID, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, notFound("study", id)
		}
		return nil, fmt.Errorf("get study: %w", err)
	}

	return session, nil
}

// ListByOwner returns every session of the owner in creation order
func (r *PostgresSessionRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE owner_id = $1
		ORDER BY seq
	`, sessionColumns, r.tables.Studies)

	return r.list(ctx, query, ownerID)
}

// ListByFolder returns the sessions of one folder in creation order
func (r *PostgresSessionRepository) ListByFolder(ctx context.Context, ownerID, folderID string) ([]models.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE owner_id = $1 AND folder_id = $2
		ORDER BY seq
	`, sessionColumns, r.tables.Studies)

	return r.list(ctx, query, ownerID, folderID)
}

func (r *PostgresSessionRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Session, error) {
	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list studies: %w", err)
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan study: %w", err)
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate studies: %w", err)
	}

	return sessions, nil
}

// Update applies the fields set in upd. Only the named columns are written.
func (r *PostgresSessionRepository) Update(ctx context.Context, ownerID, id string, upd *studyRepo.SessionUpdate) (*models.Session, error) {
	set, err := buildSessionUpdate(upd, r.now())
	if err != nil {
		return nil, err
	}

	args := append(set.args, ownerID, id)
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE owner_id = $%d AND id = $%d
		RETURNING %s
	`, r.tables.Studies, strings.Join(set.clauses, ", "), len(args)-1, len(args), sessionColumns)

	executor := GetExecutor(ctx, r.pool)
	session, err := scanSession(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, notFound("study", id)
		}
		return nil, fmt.Errorf("update study: %w", err)
	}

	return session, nil
}

// AppendSource adds src to the end of the JSONB source array
func (r *PostgresSessionRepository) AppendSource(ctx context.Context, ownerID, id string, src models.Source) (*models.Session, error) {
	srcJSON, err := json.Marshal([]models.Source{src})
	if err != nil {
		return nil, fmt.Errorf("marshal source: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET sources = sources || $1::jsonb, updated_at = $2
		WHERE owner_id = $3 AND id = $4
		RETURNING %s
	`, r.tables.Studies, sessionColumns)

	executor := GetExecutor(ctx, r.pool)
	session, err := scanSession(executor.QueryRow(ctx, query, srcJSON, r.now(), ownerID, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, notFound("study", id)
		}
		return nil, fmt.Errorf("append source: %w", err)
	}

	return session, nil
}

// RemoveSource rebuilds the source array without sourceID, keeping the order
// of the remaining entries.
func (r *PostgresSessionRepository) RemoveSource(ctx context.Context, ownerID, id, sourceID string) (*models.Session, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET sources = COALESCE((
				SELECT jsonb_agg(e.value ORDER BY e.ord)
				FROM jsonb_array_elements(sources) WITH ORDINALITY AS e(value, ord)
				WHERE e.value->>'id' <> $1
			), '[]'::jsonb),
			updated_at = $2
		WHERE owner_id = $3 AND id = $4
			AND EXISTS (
				SELECT 1 FROM jsonb_array_elements(sources) AS s(value)
				WHERE s.value->>'id' = $1
			)
		RETURNING %s
	`, r.tables.Studies, sessionColumns)

	executor := GetExecutor(ctx, r.pool)
	session, err := scanSession(executor.QueryRow(ctx, query, sourceID, r.now(), ownerID, id))
	if err == nil {
		return session, nil
	}
	if !IsPgNoRowsError(err) {
		return nil, fmt.Errorf("remove source: %w", err)
	}

	// no row: either the study or the source is missing
	if _, err := r.GetByID(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return nil, notFound("source", sourceID)
}

// Delete removes one session
func (r *PostgresSessionRepository) Delete(ctx context.Context, ownerID, id string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE owner_id = $1 AND id = $2
	`, r.tables.Studies)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete study: %w", err)
	}

	if result.RowsAffected() == 0 {
		return notFound("study", id)
	}

	return nil
}

// DeleteByFolders removes every session filed under folderIDs and returns their ids
func (r *PostgresSessionRepository) DeleteByFolders(ctx context.Context, ownerID string, folderIDs []string) ([]string, error) {
	ids := []string{}
	if len(folderIDs) == 0 {
		return ids, nil
	}

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE owner_id = $1 AND folder_id = ANY($2)
		RETURNING id
	`, r.tables.Studies)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ownerID, folderIDs)
	if err != nil {
		return nil, fmt.Errorf("delete studies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan study id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deleted studies: %w", err)
	}

	return ids, nil
}

// setClauses is the SET list of an UPDATE with its positional arguments.
type setClauses struct {
	clauses []string
	args    []interface{}
}

func (s *setClauses) add(column string, value interface{}) {
	s.args = append(s.args, value)
	s.clauses = append(s.clauses, fmt.Sprintf("%s = $%d", column, len(s.args)))
}

func buildSessionUpdate(upd *studyRepo.SessionUpdate, now time.Time) (*setClauses, error) {
	set := &setClauses{}

	if upd.Title != nil {
		set.add("title", *upd.Title)
	}
	if upd.FolderID != nil {
		set.add("folder_id", *upd.FolderID)
	}
	if upd.Mode != nil {
		set.add("mode", string(*upd.Mode))
	}

	columns := []struct {
		set    bool
		column string
		value  interface{}
		isNil  bool
	}{
		{upd.SetGuide, "guide", upd.Guide, upd.Guide == nil},
		{upd.SetSlides, "slides", upd.Slides, upd.Slides == nil},
		{upd.SetQuiz, "quiz", upd.Quiz, upd.Quiz == nil},
		{upd.SetFlashcards, "flashcards", upd.Flashcards, upd.Flashcards == nil},
		{upd.SetProcessing, "processing", upd.Processing, upd.Processing == nil},
	}
	for _, c := range columns {
		if !c.set {
			continue
		}
		data, err := jsonColumn(c.value, c.isNil)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", c.column, err)
		}
		set.add(c.column, data)
	}

	set.add("updated_at", now)
	return set, nil
}

// jsonColumn encodes v for a nullable JSONB column; nil becomes SQL NULL.
func jsonColumn(v interface{}, isNil bool) ([]byte, error) {
	if isNil {
		return nil, nil
	}
	return json.Marshal(v)
}

func marshalArtifacts(s *models.Session) (guide, slides, quiz, flashcards, processing []byte, err error) {
	if guide, err = jsonColumn(s.Guide, s.Guide == nil); err != nil {
		return
	}
	if slides, err = jsonColumn(s.Slides, s.Slides == nil); err != nil {
		return
	}
	if quiz, err = jsonColumn(s.Quiz, s.Quiz == nil); err != nil {
		return
	}
	if flashcards, err = jsonColumn(s.Flashcards, s.Flashcards == nil); err != nil {
		return
	}
	processing, err = jsonColumn(s.Processing, s.Processing == nil)
	if err != nil {
		err = fmt.Errorf("marshal artifacts: %w", err)
	}
	return
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		s          models.Session
		mode       string
		sources    []byte
		guide      []byte
		slides     []byte
		quiz       []byte
		flashcards []byte
		processing []byte
	)
	if err := row.Scan(
		&s.ID,
		&s.OwnerID,
		&s.FolderID,
		&s.Title,
		&mode,
		&sources,
		&guide,
		&slides,
		&quiz,
		&flashcards,
		&processing,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.Mode = models.Mode(mode)

	s.Sources = []models.Source{}
	fields := []struct {
		data []byte
		dest interface{}
	}{
		{sources, &s.Sources},
		{guide, &s.Guide},
		{slides, &s.Slides},
		{quiz, &s.Quiz},
		{flashcards, &s.Flashcards},
		{processing, &s.Processing},
	}
	for _, f := range fields {
		if f.data == nil {
			continue
		}
		if err := json.Unmarshal(f.data, f.dest); err != nil {
			return nil, fmt.Errorf("decode study %s: %w", s.ID, err)
		}
	}

	return &s, nil
}
