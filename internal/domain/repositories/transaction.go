package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager runs a group of repository calls atomically: either every
// write made through ctx inside fn is applied, or none is.
type TransactionManager interface {
	// ExecTx executes fn within a transaction. Nested calls join the outer one.
	ExecTx(ctx context.Context, fn TxFn) error
}
