package study

import (
	"time"
)

// Reserved folder IDs present in every library.
const (
	DefaultFolderID      = "default"
	QuickStudiesFolderID = "quick-studies"
)

// Display names used when a library is bootstrapped.
const (
	DefaultFolderName      = "My Studies"
	QuickStudiesFolderName = "⚡ Quick Studies"
)

type Folder struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"-" db:"owner_id"`
	Name      string    `json:"name" db:"name"`
	ParentID  *string   `json:"parent_id" db:"parent_id"` // NULL = root level
	Color     *string   `json:"color,omitempty" db:"color"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsProtected reports whether the folder can never be deleted.
func (f *Folder) IsProtected() bool {
	return IsProtectedFolderID(f.ID)
}

// IsProtectedFolderID reports whether id names one of the reserved folders.
func IsProtectedFolderID(id string) bool {
	return id == DefaultFolderID || id == QuickStudiesFolderID
}

// CanRename reports whether the folder name may be changed.
func (f *Folder) CanRename() bool {
	return f.ID != QuickStudiesFolderID
}
