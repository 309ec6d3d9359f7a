package memory

import (
	"context"

	"neurostudy/internal/domain/repositories"
)

// TransactionManager implements repositories.TransactionManager over a Store.
// A transaction holds the store lock for its whole duration and restores a
// snapshot if fn fails, so the memory store gives the same all-or-nothing
// behaviour as the postgres one.
type TransactionManager struct {
	store *Store
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(store *Store) repositories.TransactionManager {
	return &TransactionManager{store: store}
}

// ExecTx executes a function within a transaction
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	s := tm.store
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshot()
	defer func() {
		if r := recover(); r != nil {
			s.libraries = snapshot
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.libraries = snapshot
		return err
	}
	return nil
}
