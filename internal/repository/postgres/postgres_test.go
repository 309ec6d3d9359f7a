package postgres

import (
	"context"
	"io"
	"log/slog"
	"io/fs"
	"strings"
	"testing"
	"time"

	models "neurostudy/internal/domain/models/study"
	studyRepo "neurostudy/internal/domain/repositories/study"
)

func TestNewTableNames(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		folders string
		wantErr bool
	}{
		{name: "empty prefix", prefix: "", folders: "folders"},
		{name: "environment prefix", prefix: "dev_", folders: "dev_folders"},
		{name: "rejects quotes", prefix: "dev'; drop", wantErr: true},
		{name: "rejects uppercase", prefix: "DEV_", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables, err := NewTableNames(tt.prefix)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tables.Folders != tt.folders {
				t.Errorf("Folders = %q, want %q", tables.Folders, tt.folders)
			}
			if tables.Studies != tt.prefix+"studies" {
				t.Errorf("Studies = %q", tables.Studies)
			}
		})
	}
}

func TestPrefixedFS(t *testing.T) {
	fsys := prefixedFS{FS: migrationFiles, prefix: "test_"}

	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no migration files embedded")
	}

	f, err := fsys.Open("migrations/000001_init.up.sql")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	sql := string(data)

	if strings.Contains(sql, prefixToken) {
		t.Error("prefix token was not replaced")
	}
	for _, want := range []string{"test_folders", "test_studies"} {
		if !strings.Contains(sql, want) {
			t.Errorf("migration missing %q", want)
		}
	}
}

func TestLatestVersion(t *testing.T) {
	src, err := newMigrationSource("")
	if err != nil {
		t.Fatalf("newMigrationSource: %v", err)
	}
	defer src.Close()

	version, err := latestVersion(src)
	if err != nil {
		t.Fatalf("latestVersion: %v", err)
	}
	if version != 1 {
		t.Errorf("latest version = %d, want 1", version)
	}
}

func TestBuildSessionUpdate(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	title := "Cells"
	mode := models.ModeTurbo

	tests := []struct {
		name    string
		upd     *studyRepo.SessionUpdate
		clauses []string
		nullArg int // index of an argument that must be SQL NULL, or -1
	}{
		{
			name:    "scalar fields",
			upd:     &studyRepo.SessionUpdate{Title: &title, Mode: &mode},
			clauses: []string{"title = $1", "mode = $2", "updated_at = $3"},
			nullArg: -1,
		},
		{
			name:    "clearing an artifact writes NULL",
			upd:     &studyRepo.SessionUpdate{SetQuiz: true},
			clauses: []string{"quiz = $1", "updated_at = $2"},
			nullArg: 0,
		},
		{
			name: "artifact with value",
			upd: &studyRepo.SessionUpdate{
				SetFlashcards: true,
				Flashcards:    []models.Flashcard{{Front: "ATP", Back: "energy"}},
			},
			clauses: []string{"flashcards = $1", "updated_at = $2"},
			nullArg: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := buildSessionUpdate(tt.upd, now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := strings.Join(set.clauses, ", "); got != strings.Join(tt.clauses, ", ") {
				t.Errorf("clauses = %q, want %q", got, strings.Join(tt.clauses, ", "))
			}
			if len(set.args) != len(tt.clauses) {
				t.Fatalf("got %d args for %d clauses", len(set.args), len(tt.clauses))
			}
			if tt.nullArg >= 0 {
				if b, ok := set.args[tt.nullArg].([]byte); !ok || b != nil {
					t.Errorf("arg %d = %#v, want nil []byte", tt.nullArg, set.args[tt.nullArg])
				}
			}
			if got := set.args[len(set.args)-1]; got != now {
				t.Errorf("last arg = %v, want updated_at", got)
			}
		})
	}
}

type fakeRow struct {
	values []interface{}
}

func (r fakeRow) Scan(dest ...interface{}) error {
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *[]byte:
			if r.values[i] != nil {
				*p = []byte(r.values[i].(string))
			}
		case *time.Time:
			*p = r.values[i].(time.Time)
		}
	}
	return nil
}

func TestScanSession(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	row := fakeRow{values: []interface{}{
		"s1", "u1", "default", "Cells", "SURVIVAL",
		`[{"id":"src1","type":"TEXT","name":"notes","content":"hello","date_added":"2026-03-14T09:00:00Z"}]`,
		`{"subject":"Cells","overview":"o","core_concepts":[],"checkpoints":[]}`,
		nil, nil,
		`[{"front":"ATP","back":"energy"}]`,
		nil,
		now, now,
	}}

	s, err := scanSession(row)
	if err != nil {
		t.Fatalf("scanSession: %v", err)
	}
	if s.Mode != models.ModeSurvival {
		t.Errorf("Mode = %q", s.Mode)
	}
	if len(s.Sources) != 1 || s.Sources[0].ID != "src1" {
		t.Errorf("Sources = %+v", s.Sources)
	}
	if s.Guide == nil || s.Guide.Subject != "Cells" {
		t.Errorf("Guide = %+v", s.Guide)
	}
	if s.Slides != nil || s.Quiz != nil || s.Processing != nil {
		t.Error("NULL artifact columns should stay nil")
	}
	if len(s.Flashcards) != 1 {
		t.Errorf("Flashcards = %+v", s.Flashcards)
	}
}

func TestLockOwner(t *testing.T) {
	tables, err := NewTableNames("dev_")
	if err != nil {
		t.Fatalf("NewTableNames: %v", err)
	}
	repo := NewFolderRepository(&RepositoryConfig{
		Tables: tables,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	if err := repo.LockOwner(context.Background(), "user-1"); err == nil {
		t.Error("expected error outside a transaction")
	}
	if !strings.Contains(lockOwnerQuery, "pg_advisory_xact_lock") {
		t.Errorf("lock query = %q, want a transaction-scoped advisory lock", lockOwnerQuery)
	}
	if a, b := ownerLockKey(tables.Folders, "user-1"), ownerLockKey("folders", "user-1"); a == b {
		t.Errorf("lock keys for different prefixes collide: %q", a)
	}
}
