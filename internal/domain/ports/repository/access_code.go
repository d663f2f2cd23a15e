package repository

import (
	"context"
	"time"

	"template-market/internal/domain/model"
)

// AccessCodeRepository is the port for the durable access-code store. All
// cross-process correctness lives behind ConsumeUse, Retire and SweepExpired:
// each is a single conditional update whose checks run inside the store, so
// concurrent callers can never push used_count past max_uses or retire a code
// that a racing increment kept valid.
type AccessCodeRepository interface {
	// Save creates a new code or applies operator edits to an existing one.
	// It never touches used_count.
	Save(ctx context.Context, tx Tx, code *model.AccessCode) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.AccessCode, error)
	// FindByCode looks up by canonical code text.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.AccessCode, error)
	// List returns codes newest-first. Retired short-term codes are excluded
	// unless includeRetired is set.
	List(ctx context.Context, tx Tx, includeRetired bool) ([]*model.AccessCode, error)
	// ConsumeUse atomically increments used_count if and only if the code is
	// active, unexpired and has quota left (or is unlimited). It returns the
	// post-increment record, or domain.ErrNotFound when no row satisfied the
	// conditions — the caller re-reads to learn the precise reason.
	ConsumeUse(ctx context.Context, tx Tx, code string, now time.Time) (*model.AccessCode, error)
	// Retire marks a short-term code as retired if it is exhausted or
	// expired, re-checking both conditions inside the store. Long-term codes
	// are never retired. Reports whether the row was updated.
	Retire(ctx context.Context, tx Tx, id string, now time.Time) (bool, error)
	// SweepExpired retires every short-term code whose expiry has passed and
	// returns how many were retired. Idempotent and safe to run concurrently
	// with redemptions.
	SweepExpired(ctx context.Context, tx Tx, now time.Time) (int, error)
	// Delete hard-deletes the code record. Audit rows referencing it remain.
	Delete(ctx context.Context, tx Tx, id string) error
}
