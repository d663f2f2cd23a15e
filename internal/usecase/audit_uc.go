// File: internal/usecase/audit_uc.go
package usecase

import (
	"context"

	"template-market/internal/domain/model"
	"template-market/internal/domain/ports/repository"
)

// AuditUseCase fronts the append-only redemption trail for the operator view.
type AuditUseCase struct {
	attempts repository.RedemptionLogRepository
}

func NewAuditUseCase(attempts repository.RedemptionLogRepository) *AuditUseCase {
	return &AuditUseCase{attempts: attempts}
}

// Query returns attempts newest-first, optionally narrowed by code, subject
// or outcome.
func (uc *AuditUseCase) Query(ctx context.Context, f repository.RedemptionLogFilter) ([]*model.RedemptionAttempt, error) {
	return uc.attempts.Query(ctx, nil, f)
}
