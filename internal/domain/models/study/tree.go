package study

import "time"

// TreeNode is the root of a user's library: top-level folders only.
// Every study lives in exactly one folder, so there are no root-level studies.
type TreeNode struct {
	Folders []*FolderTreeNode `json:"folders"`
}

// FolderTreeNode represents a folder with its nested children
type FolderTreeNode struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	ParentID  *string           `json:"parent_id"`
	Color     *string           `json:"color,omitempty"`
	Protected bool              `json:"protected"`
	CreatedAt time.Time         `json:"created_at"`
	Folders   []*FolderTreeNode `json:"folders"`
	Studies   []Summary         `json:"studies"`
}
