package repository

import (
	"context"

	"template-market/internal/domain/model"
)

// TemplateRepository is the port for marketplace template storage. The
// redemption engine only needs the subject's identity and its RequiresCode
// flag; the rest is plain CRUD for the admin surface.
type TemplateRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Template) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Template, error)
	List(ctx context.Context, tx Tx, activeOnly bool) ([]*model.Template, error)
	// IncrementUsage bumps the popularity counter after a disclosed view.
	IncrementUsage(ctx context.Context, tx Tx, id string) error
	Delete(ctx context.Context, tx Tx, id string) error
}
