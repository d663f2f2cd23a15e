package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"

	"template-market/internal/domain/model"
	"template-market/internal/domain/ports/repository"
)

var _ repository.RedemptionLogRepository = (*redemptionLogRepo)(nil)

// redemptionLogRepo persists the append-only audit trail. Rows are only ever
// inserted; the code_id foreign key is SET NULL on code deletion so history
// outlives the codes it references.
type redemptionLogRepo struct {
	pool *pgxpool.Pool
}

func NewRedemptionLogRepo(pool *pgxpool.Pool) repository.RedemptionLogRepository {
	return &redemptionLogRepo{pool: pool}
}

func (r *redemptionLogRepo) Append(ctx context.Context, tx repository.Tx, a *model.RedemptionAttempt) error {
	const q = `
INSERT INTO redemption_attempts (id, code_id, code_text, subject_id, requester_ip, outcome, failure_reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		a.ID, a.CodeID, a.CodeText, a.SubjectID, a.RequesterIP, string(a.Outcome), a.FailureReason, a.CreatedAt,
	)
	return err
}

func (r *redemptionLogRepo) Query(ctx context.Context, tx repository.Tx, f repository.RedemptionLogFilter) ([]*model.RedemptionAttempt, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.CodeID != "" {
		add("code_id = $%d", f.CodeID)
	}
	if f.SubjectID != "" {
		add("subject_id = $%d", f.SubjectID)
	}
	if f.Outcome != nil {
		add("outcome = $%d", string(*f.Outcome))
	}

	q := `SELECT id, code_id, code_text, subject_id, requester_ip, outcome, failure_reason, created_at FROM redemption_attempts`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC"
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	q += fmt.Sprintf(" LIMIT $%d", len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.RedemptionAttempt
	for rows.Next() {
		var (
			a       model.RedemptionAttempt
			outcome string
		)
		if err := rows.Scan(&a.ID, &a.CodeID, &a.CodeText, &a.SubjectID, &a.RequesterIP, &outcome, &a.FailureReason, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Outcome = model.RedemptionOutcome(outcome)
		out = append(out, &a)
	}
	return out, rows.Err()
}
