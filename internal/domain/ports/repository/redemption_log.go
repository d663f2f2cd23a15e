package repository

import (
	"context"

	"template-market/internal/domain/model"
)

// RedemptionLogFilter narrows an audit query. Zero values mean "no filter".
type RedemptionLogFilter struct {
	CodeID    string
	SubjectID string
	Outcome   *model.RedemptionOutcome
	Limit     int
	Offset    int
}

// RedemptionLogRepository is the append-only audit trail of redemption
// attempts.
type RedemptionLogRepository interface {
	Append(ctx context.Context, tx Tx, attempt *model.RedemptionAttempt) error
	// Query returns attempts ordered by timestamp descending.
	Query(ctx context.Context, tx Tx, f RedemptionLogFilter) ([]*model.RedemptionAttempt, error)
}
