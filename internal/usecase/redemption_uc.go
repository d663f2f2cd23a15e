// File: internal/usecase/redemption_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"template-market/internal/domain"
	"template-market/internal/domain/model"
	"template-market/internal/domain/ports/repository"
	"template-market/internal/infra/logging"
	"template-market/internal/infra/metrics"
)

// RedeemUseCase is the redemption coordinator: the only component that
// consumes quota. Correctness under concurrency lives entirely in the store's
// atomic conditional update, so any number of instances of this use case can
// run against the same database without shared state or locks.
type RedeemUseCase struct {
	codes    repository.AccessCodeRepository
	attempts repository.RedemptionLogRepository
	log      *zerolog.Logger
}

func NewRedeemUseCase(codes repository.AccessCodeRepository, attempts repository.RedemptionLogRepository, logger *zerolog.Logger) *RedeemUseCase {
	l := logger.With().Str("component", "RedeemUseCase").Logger()
	return &RedeemUseCase{codes: codes, attempts: attempts, log: &l}
}

// Redeem validates and consumes one use of the submitted code for the given
// subject. Rejections are normal results; only infrastructure faults come
// back as errors (wrapped in domain.ErrStoreUnavailable, retryable).
//
// Redemption is not idempotent: if the caller's connection drops after the
// store commit but before the response arrives, the quota stays consumed.
func (uc *RedeemUseCase) Redeem(ctx context.Context, codeText, subjectID, requesterIP string) (*model.RedemptionResult, error) {
	defer logging.TraceDuration(uc.log, "RedeemUC.Redeem")()
	now := time.Now()

	normalized, ok := model.NormalizeCode(codeText)
	if !ok {
		// Malformed input never reaches the store, but is still audited.
		res := rejection(model.ReasonMalformedCode)
		uc.audit(ctx, nil, codeText, subjectID, requesterIP, res, now)
		metrics.IncRedemption(string(res.Outcome), string(res.Reason))
		return res, nil
	}

	consumed, err := uc.codes.ConsumeUse(ctx, nil, normalized, now)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return uc.rejectWithReason(ctx, normalized, subjectID, requesterIP, now)
		}
		return nil, fmt.Errorf("%w: consume: %v", domain.ErrStoreUnavailable, err)
	}

	if consumed.MaxUses > 0 && consumed.UsedCount > consumed.MaxUses {
		uc.log.Error().
			Str("code_id", consumed.ID).
			Int("used_count", consumed.UsedCount).
			Int("max_uses", consumed.MaxUses).
			Msg("used_count exceeded max_uses after conditional update")
		return nil, domain.ErrInternalInconsistency
	}

	res := &model.RedemptionResult{Outcome: model.OutcomeAccepted}
	if consumed.MaxUses > 0 {
		left := consumed.MaxUses - consumed.UsedCount
		res.RemainingUses = &left
	}

	// Lifecycle check: a short-term code whose quota or expiry this
	// redemption exhausted drops out of active listings. The condition is
	// re-checked inside the store, so a racing redemption cannot be undone.
	retired, rerr := uc.codes.Retire(ctx, nil, consumed.ID, now)
	if rerr != nil {
		uc.log.Warn().Err(rerr).Str("code_id", consumed.ID).Msg("retirement check failed")
	} else if retired {
		metrics.IncCodesRetired("redemption", 1)
		uc.log.Info().Str("code_id", consumed.ID).Msg("short-term code retired")
	}

	uc.audit(ctx, &consumed.ID, normalized, subjectID, requesterIP, res, now)
	metrics.IncRedemption(string(res.Outcome), "")
	return res, nil
}

// rejectWithReason re-reads the record after a conditional update matched
// zero rows, so the caller still learns the one precise reason. Quota is
// untouched on this path.
func (uc *RedeemUseCase) rejectWithReason(ctx context.Context, normalized, subjectID, requesterIP string, now time.Time) (*model.RedemptionResult, error) {
	rec, err := uc.codes.FindByCode(ctx, nil, normalized)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: reread: %v", domain.ErrStoreUnavailable, err)
	}

	d := model.Evaluate(rec, now) // rec == nil maps to CodeNotFound
	if d.Accepted {
		// The record became redeemable between the update and the re-read.
		// Report exhaustion rather than lying about success; the caller can
		// simply retry.
		d = model.Decision{Reason: model.ReasonQuotaExhausted}
	}

	res := rejection(d.Reason)
	var codeID *string
	if rec != nil {
		codeID = &rec.ID
	}
	uc.audit(ctx, codeID, normalized, subjectID, requesterIP, res, now)
	metrics.IncRedemption(string(res.Outcome), string(res.Reason))
	return res, nil
}

func rejection(reason model.RejectReason) *model.RedemptionResult {
	return &model.RedemptionResult{Outcome: model.OutcomeRejected, Reason: reason}
}

// audit appends one attempt row. Logging is best-effort relative to the
// already-committed quota consumption: a dropped audit row is less harmful
// than double-spending quota, so failures are counted and logged, never
// propagated.
func (uc *RedeemUseCase) audit(ctx context.Context, codeID *string, codeText, subjectID, requesterIP string, res *model.RedemptionResult, now time.Time) {
	attempt := &model.RedemptionAttempt{
		ID:          ulid.Make().String(),
		CodeID:      codeID,
		CodeText:    codeText,
		SubjectID:   subjectID,
		RequesterIP: requesterIP,
		Outcome:     res.Outcome,
		CreatedAt:   now,
	}
	if res.Reason != "" {
		reason := string(res.Reason)
		attempt.FailureReason = &reason
	}

	if err := uc.attempts.Append(ctx, nil, attempt); err != nil {
		metrics.IncAuditLogFailure()
		uc.log.Error().Err(err).
			Str("subject_id", subjectID).
			Str("outcome", string(res.Outcome)).
			Msg("audit append failed; attempt dropped")
	}
}
