package memory

import (
	"context"
	"sync"

	models "neurostudy/internal/domain/models/study"
)

// library holds one owner's folders and sessions. The order slices keep
// creation order; the maps index by id.
type library struct {
	folders      map[string]*models.Folder
	folderOrder  []string
	sessions     map[string]*models.Session
	sessionOrder []string
}

func newLibrary() *library {
	return &library{
		folders:  make(map[string]*models.Folder),
		sessions: make(map[string]*models.Session),
	}
}

func (l *library) clone() *library {
	c := &library{
		folders:      make(map[string]*models.Folder, len(l.folders)),
		folderOrder:  append([]string(nil), l.folderOrder...),
		sessions:     make(map[string]*models.Session, len(l.sessions)),
		sessionOrder: append([]string(nil), l.sessionOrder...),
	}
	for id, f := range l.folders {
		c.folders[id] = cloneFolder(f)
	}
	for id, s := range l.sessions {
		c.sessions[id] = s.Clone()
	}
	return c
}

// Store is the process-local backing store for the memory repositories.
// All state is lost when the process exits.
type Store struct {
	mu        sync.Mutex
	libraries map[string]*library
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{libraries: make(map[string]*library)}
}

type txKey struct{}

// inTx reports whether ctx carries a transaction opened on this store.
func (s *Store) inTx(ctx context.Context) bool {
	st, _ := ctx.Value(txKey{}).(*Store)
	return st == s
}

// lock acquires the store mutex unless the caller already holds it through ExecTx.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// library returns the owner's library, creating it when create is true.
// Callers must hold the lock.
func (s *Store) library(ownerID string, create bool) *library {
	lib, ok := s.libraries[ownerID]
	if !ok && create {
		lib = newLibrary()
		s.libraries[ownerID] = lib
	}
	return lib
}

func (s *Store) snapshot() map[string]*library {
	snap := make(map[string]*library, len(s.libraries))
	for owner, lib := range s.libraries {
		snap[owner] = lib.clone()
	}
	return snap
}

func cloneFolder(f *models.Folder) *models.Folder {
	c := *f
	if f.ParentID != nil {
		p := *f.ParentID
		c.ParentID = &p
	}
	if f.Color != nil {
		col := *f.Color
		c.Color = &col
	}
	return &c
}

func removeID(ids []string, drop map[string]bool) []string {
	out := ids[:0]
	for _, id := range ids {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}
