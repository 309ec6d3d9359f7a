package study

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"neurostudy/internal/domain"
	models "neurostudy/internal/domain/models/study"
	studySvc "neurostudy/internal/domain/services/study"
)

func TestEnsureDefaults_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.folders.EnsureDefaults(ctx, testUser); err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	list, _ := env.folders.ListFolders(ctx, testUser)
	if len(list) != 2 {
		t.Fatalf("got %d folders, want 2", len(list))
	}
	if list[0].ID != models.DefaultFolderID || list[1].ID != models.QuickStudiesFolderID {
		t.Errorf("unexpected reserved folders: %s, %s", list[0].ID, list[1].ID)
	}
}

func TestCreateFolder_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     *studySvc.CreateFolderRequest
		wantErr error
	}{
		{
			name:    "empty name",
			req:     &studySvc.CreateFolderRequest{Name: ""},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "blank name",
			req:     &studySvc.CreateFolderRequest{Name: "   "},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "missing parent",
			req:     &studySvc.CreateFolderRequest{Name: "x", ParentID: strPtr("nope")},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "empty parent means root",
			req:  &studySvc.CreateFolderRequest{Name: "x", ParentID: strPtr("")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := env.folders.CreateFolder(ctx, testUser, tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.ParentID != nil {
				t.Errorf("parent = %v, want root", *f.ParentID)
			}
		})
	}
}

func TestUpdateFolder_MoveIntoOwnSubtreeIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustFolder(t, "A", nil)
	b := env.mustFolder(t, "B", a)
	c := env.mustFolder(t, "C", b)

	tests := []struct {
		name   string
		target string
	}{
		{"into itself", a.ID},
		{"into child", b.ID},
		{"into grandchild", c.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := env.folderParents(t)

			_, err := env.folders.UpdateFolder(ctx, testUser, a.ID, &studySvc.UpdateFolderRequest{
				Parent: studySvc.ParentChange{Present: true, ParentID: strPtr(tt.target)},
			})
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}

			after := env.folderParents(t)
			if !reflect.DeepEqual(before, after) {
				t.Errorf("tree changed:\nbefore %v\nafter  %v", before, after)
			}
		})
	}
}

func TestUpdateFolder_Move(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustFolder(t, "A", nil)
	b := env.mustFolder(t, "B", nil)
	c := env.mustFolder(t, "C", a)

	moved, err := env.folders.UpdateFolder(ctx, testUser, c.ID, &studySvc.UpdateFolderRequest{
		Parent: studySvc.ParentChange{Present: true, ParentID: &b.ID},
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.ParentID == nil || *moved.ParentID != b.ID {
		t.Fatalf("parent = %v, want %s", moved.ParentID, b.ID)
	}

	// moving a parent under a former sibling's child is fine
	if _, err := env.folders.UpdateFolder(ctx, testUser, a.ID, &studySvc.UpdateFolderRequest{
		Parent: studySvc.ParentChange{Present: true, ParentID: &c.ID},
	}); err != nil {
		t.Fatalf("move A under C: %v", err)
	}

	root, err := env.folders.UpdateFolder(ctx, testUser, c.ID, &studySvc.UpdateFolderRequest{
		Parent: studySvc.ParentChange{Present: true},
	})
	if err != nil {
		t.Fatalf("move to root: %v", err)
	}
	if root.ParentID != nil {
		t.Errorf("parent = %v, want root", *root.ParentID)
	}
}

func TestUpdateFolder_Rename(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		folderID string
		wantErr  error
	}{
		{"default folder can be renamed", models.DefaultFolderID, nil},
		{"quick studies cannot be renamed", models.QuickStudiesFolderID, domain.ErrForbidden},
		{"missing folder", "nope", domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := env.folders.UpdateFolder(ctx, testUser, tt.folderID, &studySvc.UpdateFolderRequest{
				Name: strPtr("  Renamed  "),
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("rename: %v", err)
			}
			if f.Name != "Renamed" {
				t.Errorf("name = %q, want Renamed", f.Name)
			}
		})
	}

	qs, _ := env.folders.GetFolder(ctx, testUser, models.QuickStudiesFolderID)
	if qs.Name != models.QuickStudiesFolderName {
		t.Errorf("quick studies name changed to %q", qs.Name)
	}
}

func TestUpdateFolder_RequiresAField(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.folders.UpdateFolder(context.Background(), testUser, models.DefaultFolderID, &studySvc.UpdateFolderRequest{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestDeleteFolder_Cascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustFolder(t, "A", nil)
	b := env.mustFolder(t, "B", a)
	c := env.mustFolder(t, "C", b)
	other := env.mustFolder(t, "Other", nil)

	inA := env.mustStudy(t, a.ID, "in A")
	inC := env.mustStudy(t, c.ID, "in C")
	inOther := env.mustStudy(t, other.ID, "in Other")
	inDefault := env.mustStudy(t, models.DefaultFolderID, "in default")

	env.viewState.Open(ctx, testUser, inC.ID, models.TabGuide)

	result, err := env.folders.DeleteFolder(ctx, testUser, a.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	gotFolders := append([]string(nil), result.FolderIDs...)
	sort.Strings(gotFolders)
	wantFolders := []string{a.ID, b.ID, c.ID}
	sort.Strings(wantFolders)
	if !reflect.DeepEqual(gotFolders, wantFolders) {
		t.Errorf("removed folders = %v, want %v", gotFolders, wantFolders)
	}

	gotStudies := append([]string(nil), result.StudyIDs...)
	sort.Strings(gotStudies)
	wantStudies := []string{inA.ID, inC.ID}
	sort.Strings(wantStudies)
	if !reflect.DeepEqual(gotStudies, wantStudies) {
		t.Errorf("removed studies = %v, want %v", gotStudies, wantStudies)
	}

	remaining := env.folderParents(t)
	for _, id := range wantFolders {
		if _, ok := remaining[id]; ok {
			t.Errorf("folder %s still present", id)
		}
	}
	if _, ok := remaining[other.ID]; !ok {
		t.Errorf("unrelated folder removed")
	}

	for _, s := range []*models.Session{inOther, inDefault} {
		if _, err := env.studies.GetStudy(ctx, testUser, s.ID); err != nil {
			t.Errorf("study %q in untouched folder was removed: %v", s.Title, err)
		}
	}

	if vs := env.viewState.Get(ctx, testUser); vs.ActiveStudyID != nil {
		t.Errorf("view state still points at deleted study %s", *vs.ActiveStudyID)
	}
}

func TestDeleteFolder_ProtectedIsRejected(t *testing.T) {
	for _, id := range []string{models.DefaultFolderID, models.QuickStudiesFolderID} {
		t.Run(id, func(t *testing.T) {
			env := newTestEnv(t)
			env.mustFolder(t, "child", &models.Folder{ID: id})
			before := env.folderParents(t)

			_, err := env.folders.DeleteFolder(context.Background(), testUser, id)
			if !errors.Is(err, domain.ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}

			if after := env.folderParents(t); !reflect.DeepEqual(before, after) {
				t.Errorf("folder list changed:\nbefore %v\nafter  %v", before, after)
			}
		})
	}
}

func TestDeleteFolder_ContainingProtectedFolderIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustFolder(t, "A", nil)
	if _, err := env.folders.UpdateFolder(ctx, testUser, models.QuickStudiesFolderID, &studySvc.UpdateFolderRequest{
		Parent: studySvc.ParentChange{Present: true, ParentID: &a.ID},
	}); err != nil {
		t.Fatalf("move quick studies: %v", err)
	}
	before := env.folderParents(t)

	_, err := env.folders.DeleteFolder(ctx, testUser, a.ID)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if after := env.folderParents(t); !reflect.DeepEqual(before, after) {
		t.Errorf("folder list changed after rejected delete")
	}
}

func TestValidateNoCircularReference(t *testing.T) {
	folders := []models.Folder{
		{ID: "a"},
		{ID: "b", ParentID: strPtr("a")},
		{ID: "c", ParentID: strPtr("b")},
		{ID: "x"},
		// corrupt loop not involving a, b or c
		{ID: "p", ParentID: strPtr("q")},
		{ID: "q", ParentID: strPtr("p")},
	}

	tests := []struct {
		name    string
		folder  string
		target  string
		wantErr bool
	}{
		{"sibling root", "a", "x", false},
		{"leaf under root", "c", "x", false},
		{"self", "a", "a", true},
		{"into child", "a", "b", true},
		{"into grandchild", "a", "c", true},
		{"up the chain", "c", "a", false},
		{"into corrupt loop terminates", "x", "p", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateNoCircularReference(tt.folder, tt.target, folders)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}
