// File: internal/usecase/template_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"template-market/internal/domain/model"
	"template-market/internal/domain/ports/repository"
	"template-market/internal/infra/logging"
)

// TemplateUseCase serves the marketplace surface. It owns no gating state:
// each unlock re-proves with a fresh redemption unless the caller presents a
// privileged session.
type TemplateUseCase struct {
	templates repository.TemplateRepository
	redeem    *RedeemUseCase
	log       *zerolog.Logger
}

func NewTemplateUseCase(templates repository.TemplateRepository, redeem *RedeemUseCase, logger *zerolog.Logger) *TemplateUseCase {
	l := logger.With().Str("component", "TemplateUseCase").Logger()
	return &TemplateUseCase{templates: templates, redeem: redeem, log: &l}
}

// List returns templates with the source text stripped from every entry the
// caller is not entitled to see without a code.
func (uc *TemplateUseCase) List(ctx context.Context, privileged bool) ([]*model.Template, error) {
	items, err := uc.templates.List(ctx, nil, !privileged)
	if err != nil {
		return nil, err
	}
	for _, t := range items {
		applyGate(t, model.Disclose(privileged, false, t.RequiresCode))
	}
	return items, nil
}

// Get returns a single template, gated the same way as List.
func (uc *TemplateUseCase) Get(ctx context.Context, id string, privileged bool) (*model.Template, model.DisclosureTier, error) {
	t, err := uc.templates.FindByID(ctx, nil, id)
	if err != nil {
		return nil, "", err
	}
	tier := model.Disclose(privileged, false, t.RequiresCode)
	applyGate(t, tier)
	return t, tier, nil
}

// Unlock redeems a code for the template and maps the outcome to a
// disclosure tier. The source text is returned only when the tier allows it.
// Privileged callers and freely disclosable templates skip redemption, so no
// quota is consumed for them.
func (uc *TemplateUseCase) Unlock(ctx context.Context, id, codeText, requesterIP string, privileged bool) (*model.Template, model.DisclosureTier, *model.RedemptionResult, error) {
	defer logging.TraceDuration(uc.log, "TemplateUC.Unlock")()
	t, err := uc.templates.FindByID(ctx, nil, id)
	if err != nil {
		return nil, "", nil, err
	}

	var res *model.RedemptionResult
	accepted := false
	if t.RequiresCode && !privileged {
		res, err = uc.redeem.Redeem(ctx, codeText, t.ID, requesterIP)
		if err != nil {
			return nil, "", nil, err
		}
		accepted = res.Accepted()
	}

	tier := model.Disclose(privileged, accepted, t.RequiresCode)
	if tier.Disclosable() {
		if err := uc.templates.IncrementUsage(ctx, nil, t.ID); err != nil {
			uc.log.Warn().Err(err).Str("template_id", t.ID).Msg("usage increment failed")
		}
	}
	applyGate(t, tier)
	return t, tier, res, nil
}

func (uc *TemplateUseCase) Create(ctx context.Context, t *model.Template) error {
	return uc.templates.Save(ctx, nil, t)
}

func (uc *TemplateUseCase) Update(ctx context.Context, t *model.Template) error {
	return uc.templates.Save(ctx, nil, t)
}

func (uc *TemplateUseCase) Delete(ctx context.Context, id string) error {
	return uc.templates.Delete(ctx, nil, id)
}

// applyGate removes the payload the tier does not permit. The record itself
// is a copy owned by the caller, never the stored row.
func applyGate(t *model.Template, tier model.DisclosureTier) {
	if !tier.Disclosable() {
		t.SourceCode = ""
	}
}
