package study

import (
	"context"
	"testing"

	models "neurostudy/internal/domain/models/study"
)

func TestGetTree_NestsFoldersAndStudies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.mustFolder(t, "A", nil)
	b := env.mustFolder(t, "B", a)
	env.mustStudy(t, b.ID, "deep")
	env.mustStudy(t, models.DefaultFolderID, "top")

	tree, err := env.tree.GetTree(ctx, testUser)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}

	if len(tree.Folders) != 3 {
		t.Fatalf("root folders = %d, want 3", len(tree.Folders))
	}

	byID := make(map[string]*models.FolderTreeNode)
	for _, f := range tree.Folders {
		byID[f.ID] = f
	}

	def := byID[models.DefaultFolderID]
	if def == nil || !def.Protected || len(def.Studies) != 1 || def.Studies[0].Title != "top" {
		t.Errorf("default folder node = %+v", def)
	}
	if qs := byID[models.QuickStudiesFolderID]; qs == nil || !qs.Protected {
		t.Errorf("quick studies node = %+v", qs)
	}

	an := byID[a.ID]
	if an == nil || an.Protected || len(an.Folders) != 1 {
		t.Fatalf("folder A node = %+v", an)
	}
	bn := an.Folders[0]
	if bn.ID != b.ID || len(bn.Studies) != 1 || bn.Studies[0].Title != "deep" {
		t.Errorf("folder B node = %+v", bn)
	}
}

func TestBuildTree_OrphanShownAtRoot(t *testing.T) {
	folders := []models.Folder{
		{ID: "orphan", ParentID: strPtr("gone")},
	}

	tree := buildTree(folders, nil)
	if len(tree.Folders) != 1 || tree.Folders[0].ID != "orphan" {
		t.Errorf("orphan folder missing from root: %+v", tree.Folders)
	}
}
