package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"template-market/internal/domain"
	"template-market/internal/domain/model"
	"template-market/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.AccessCodeRepository = (*accessCodeRepo)(nil)

type accessCodeRepo struct {
	pool *pgxpool.Pool
}

func NewAccessCodeRepo(pool *pgxpool.Pool) repository.AccessCodeRepository {
	return &accessCodeRepo{pool: pool}
}

const accessCodeColumns = `id, code, name, max_uses, used_count, expires_at, is_active, is_long_term, retired_at, created_at`

func scanAccessCode(row pgx.Row) (*model.AccessCode, error) {
	var c model.AccessCode
	err := row.Scan(
		&c.ID, &c.Code, &c.Name, &c.MaxUses, &c.UsedCount,
		&c.ExpiresAt, &c.IsActive, &c.IsLongTerm, &c.RetiredAt, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Save creates a new code or applies operator edits. used_count is owned by
// ConsumeUse and deliberately excluded from the conflict update.
func (r *accessCodeRepo) Save(ctx context.Context, tx repository.Tx, code *model.AccessCode) error {
	if code.ID == "" {
		code.ID = uuid.NewString()
	}

	const q = `
INSERT INTO access_codes (id, code, name, max_uses, used_count, expires_at, is_active, is_long_term, retired_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  max_uses = EXCLUDED.max_uses,
  expires_at = EXCLUDED.expires_at,
  is_active = EXCLUDED.is_active,
  is_long_term = EXCLUDED.is_long_term,
  retired_at = EXCLUDED.retired_at;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		code.ID, code.Code, code.Name, code.MaxUses, code.UsedCount,
		code.ExpiresAt, code.IsActive, code.IsLongTerm, code.RetiredAt, code.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		// generated token collided with an existing one; caller retries
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *accessCodeRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.AccessCode, error) {
	const q = `SELECT ` + accessCodeColumns + ` FROM access_codes WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanAccessCode(row)
}

func (r *accessCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.AccessCode, error) {
	const q = `SELECT ` + accessCodeColumns + ` FROM access_codes WHERE code = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	return scanAccessCode(row)
}

func (r *accessCodeRepo) List(ctx context.Context, tx repository.Tx, includeRetired bool) ([]*model.AccessCode, error) {
	q := `SELECT ` + accessCodeColumns + ` FROM access_codes ORDER BY created_at DESC;`
	if !includeRetired {
		q = `SELECT ` + accessCodeColumns + ` FROM access_codes WHERE retired_at IS NULL ORDER BY created_at DESC;`
	}
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.AccessCode
	for rows.Next() {
		c, err := scanAccessCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ConsumeUse is the atomic validate-and-consume step. The validity checks run
// inside the UPDATE's WHERE clause, so two concurrent redemptions of the last
// remaining use can never both succeed: the row lock serializes them and the
// loser's re-evaluated condition matches zero rows.
func (r *accessCodeRepo) ConsumeUse(ctx context.Context, tx repository.Tx, code string, now time.Time) (*model.AccessCode, error) {
	const q = `
UPDATE access_codes
   SET used_count = used_count + 1
 WHERE code = $1
   AND is_active
   AND (expires_at IS NULL OR expires_at > $2)
   AND (max_uses = 0 OR used_count < max_uses)
RETURNING ` + accessCodeColumns + `;`
	row, err := pickRow(ctx, r.pool, tx, q, code, now)
	if err != nil {
		return nil, err
	}
	return scanAccessCode(row)
}

// Retire re-checks exhaustion/expiry inside the store so a sweep racing a
// redemption can never retire a code whose increment kept it valid.
func (r *accessCodeRepo) Retire(ctx context.Context, tx repository.Tx, id string, now time.Time) (bool, error) {
	const q = `
UPDATE access_codes
   SET retired_at = $2
 WHERE id = $1
   AND retired_at IS NULL
   AND NOT is_long_term
   AND ((expires_at IS NOT NULL AND expires_at <= $2)
     OR (max_uses > 0 AND used_count >= max_uses));
`
	tag, err := execSQL(ctx, r.pool, tx, q, id, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *accessCodeRepo) SweepExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `
UPDATE access_codes
   SET retired_at = $1
 WHERE retired_at IS NULL
   AND NOT is_long_term
   AND expires_at IS NOT NULL
   AND expires_at <= $1;
`
	tag, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *accessCodeRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM access_codes WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
