// File: internal/usecase/code_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"template-market/internal/domain"
	"template-market/internal/domain/model"
	"template-market/internal/domain/ports/repository"
	"template-market/internal/infra/logging"
	"template-market/internal/infra/metrics"
)

// CodeUseCase implements operator-facing access-code management: issuance,
// listing, edits, deletion, and the expired-code sweep.
type CodeUseCase struct {
	codes repository.AccessCodeRepository
	log   *zerolog.Logger
}

func NewCodeUseCase(codes repository.AccessCodeRepository, logger *zerolog.Logger) *CodeUseCase {
	l := logger.With().Str("component", "CodeUseCase").Logger()
	return &CodeUseCase{codes: codes, log: &l}
}

// Issue mints a new access code with a generated token. Generation retries a
// few times on the (unlikely) collision with an existing code.
func (uc *CodeUseCase) Issue(ctx context.Context, name string, maxUses int, expiresAt *time.Time, isLongTerm bool) (*model.AccessCode, error) {
	defer logging.TraceDuration(uc.log, "CodeUC.Issue")()
	if maxUses < 0 {
		return nil, domain.ErrInvalidArgument
	}

	const maxAttempts = 5
	for i := 0; i < maxAttempts; i++ {
		token, err := generateAccessCode()
		if err != nil {
			return nil, err
		}
		code := &model.AccessCode{
			Code:       token,
			Name:       name,
			MaxUses:    maxUses,
			ExpiresAt:  expiresAt,
			IsActive:   true,
			IsLongTerm: isLongTerm,
			CreatedAt:  time.Now(),
		}
		if err := uc.codes.Save(ctx, nil, code); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				continue
			}
			return nil, err
		}
		metrics.IncCodeIssued()
		uc.log.Info().Str("code_id", code.ID).Int("max_uses", maxUses).Bool("long_term", isLongTerm).Msg("access code issued")
		return code, nil
	}
	return nil, domain.ErrAlreadyExists
}

// List returns codes for the operator view. A lazy sweep runs first so
// expired short-term codes never show up as active even between worker
// passes. Exhausted long-term codes remain listed until an operator acts.
func (uc *CodeUseCase) List(ctx context.Context, includeRetired bool) ([]*model.AccessCode, error) {
	if n, err := uc.SweepExpired(ctx); err != nil {
		uc.log.Warn().Err(err).Msg("lazy sweep before listing failed")
	} else if n > 0 {
		uc.log.Info().Int("count", n).Msg("expired codes retired during listing")
	}
	return uc.codes.List(ctx, nil, includeRetired)
}

func (uc *CodeUseCase) Get(ctx context.Context, id string) (*model.AccessCode, error) {
	return uc.codes.FindByID(ctx, nil, id)
}

// UpdateCodeParams carries operator edits; nil fields are left unchanged.
type UpdateCodeParams struct {
	Name        *string
	MaxUses     *int
	ExpiresAt   *time.Time
	ClearExpiry bool
	IsActive    *bool
}

// Update applies operator edits. used_count is never touched here: only the
// redemption coordinator may move it.
func (uc *CodeUseCase) Update(ctx context.Context, id string, p UpdateCodeParams) (*model.AccessCode, error) {
	code, err := uc.codes.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		code.Name = *p.Name
	}
	if p.MaxUses != nil {
		if *p.MaxUses < 0 {
			return nil, domain.ErrInvalidArgument
		}
		code.MaxUses = *p.MaxUses
	}
	if p.ClearExpiry {
		code.ExpiresAt = nil
	} else if p.ExpiresAt != nil {
		code.ExpiresAt = p.ExpiresAt
	}
	if p.IsActive != nil {
		code.IsActive = *p.IsActive
	}
	if err := uc.codes.Save(ctx, nil, code); err != nil {
		return nil, err
	}
	return code, nil
}

// Delete hard-deletes the code record; audit rows referencing it remain and
// render as unknown/deleted.
func (uc *CodeUseCase) Delete(ctx context.Context, id string) error {
	return uc.codes.Delete(ctx, nil, id)
}

// SweepExpired retires short-term codes whose expiry has passed. Safe to run
// concurrently with redemptions and with itself.
func (uc *CodeUseCase) SweepExpired(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := uc.codes.SweepExpired(ctx, nil, start)
	if err != nil {
		return 0, err
	}
	metrics.ObserveSweepLatency(float64(time.Since(start).Milliseconds()))
	if n > 0 {
		metrics.IncCodesRetired("sweep", n)
	}
	return n, nil
}
