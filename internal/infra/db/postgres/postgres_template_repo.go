package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"template-market/internal/domain"
	"template-market/internal/domain/model"
	"template-market/internal/domain/ports/repository"
)

var _ repository.TemplateRepository = (*templateRepo)(nil)

type templateRepo struct {
	pool *pgxpool.Pool
}

func NewTemplateRepo(pool *pgxpool.Pool) repository.TemplateRepository {
	return &templateRepo{pool: pool}
}

const templateColumns = `id, title, description, image_url, source_code, language, tags, requires_code, usage_count, is_active, created_at, updated_at`

func scanTemplate(row pgx.Row) (*model.Template, error) {
	var t model.Template
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.ImageURL, &t.SourceCode, &t.Language,
		&t.Tags, &t.RequiresCode, &t.UsageCount, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *templateRepo) Save(ctx context.Context, tx repository.Tx, t *model.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.UpdatedAt = time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.UpdatedAt
	}

	const q = `
INSERT INTO templates (id, title, description, image_url, source_code, language, tags, requires_code, usage_count, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  description = EXCLUDED.description,
  image_url = EXCLUDED.image_url,
  source_code = EXCLUDED.source_code,
  language = EXCLUDED.language,
  tags = EXCLUDED.tags,
  requires_code = EXCLUDED.requires_code,
  is_active = EXCLUDED.is_active,
  updated_at = EXCLUDED.updated_at;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		t.ID, t.Title, t.Description, t.ImageURL, t.SourceCode, t.Language,
		t.Tags, t.RequiresCode, t.UsageCount, t.IsActive, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (r *templateRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Template, error) {
	const q = `SELECT ` + templateColumns + ` FROM templates WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanTemplate(row)
}

func (r *templateRepo) List(ctx context.Context, tx repository.Tx, activeOnly bool) ([]*model.Template, error) {
	q := `SELECT ` + templateColumns + ` FROM templates ORDER BY created_at DESC;`
	if activeOnly {
		q = `SELECT ` + templateColumns + ` FROM templates WHERE is_active ORDER BY created_at DESC;`
	}
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *templateRepo) IncrementUsage(ctx context.Context, tx repository.Tx, id string) error {
	_, err := execSQL(ctx, r.pool, tx, `UPDATE templates SET usage_count = usage_count + 1 WHERE id = $1;`, id)
	return err
}

func (r *templateRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM templates WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
