package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// TransactionManager provides a thin abstraction to execute a function within
// a database transaction, passing the underlying transaction handle via `tx`.
//
// Repository methods accept a `Tx` so a use case can group several store
// operations into one commit without its interface leaking pgx types.
// Repositories MUST gracefully accept a nil tx (non-transactional path, the
// pool is used directly). The concrete type of `tx` is infra-defined
// (pgx.Tx for Postgres).
//
// Note that the redemption hot path does not need this at all: quota
// consumption is a single conditional UPDATE and is atomic on its own.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
