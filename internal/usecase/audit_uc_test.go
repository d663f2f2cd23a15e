// File: internal/usecase/audit_uc_test.go
package usecase

import (
	"context"
	"testing"

	"template-market/internal/domain/model"
	"template-market/internal/domain/ports/repository"
)

func TestAuditUseCase_QueryFilters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	codes := newMemCodeRepo()
	attempts := newMemAttemptRepo()
	redeem := NewRedeemUseCase(codes, attempts, testLogger())
	uc := NewAuditUseCase(attempts)

	codes.put(&model.AccessCode{ID: "c1", Code: "ABCD-EF23", MaxUses: 5, IsActive: true})
	seed := []struct {
		code, subject string
	}{
		{"ABCD-EF23", "tpl-1"},
		{"ABCD-EF23", "tpl-2"},
		{"ZZZZ-9999", "tpl-1"}, // rejected: not found
		{"garbage!!", "tpl-1"}, // rejected: malformed
	}
	for _, s := range seed {
		if _, err := redeem.Redeem(ctx, s.code, s.subject, "ip"); err != nil {
			t.Fatalf("Redeem(%q): %v", s.code, err)
		}
	}

	all, err := uc.Query(ctx, repository.RedemptionLogFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("unfiltered query returned %d rows, want 4", len(all))
	}
	// Newest first: the last seeded attempt (malformed) leads, the first
	// seeded (accepted) is last. Timestamps can collide within the batch, so
	// order is asserted structurally.
	if first := all[0]; first.FailureReason == nil || *first.FailureReason != string(model.ReasonMalformedCode) {
		t.Fatalf("expected newest (malformed) row first, got %+v", first)
	}
	if last := all[len(all)-1]; last.Outcome != model.OutcomeAccepted {
		t.Fatalf("expected oldest (accepted) row last, got %+v", last)
	}

	byCode, err := uc.Query(ctx, repository.RedemptionLogFilter{CodeID: "c1"})
	if err != nil {
		t.Fatalf("Query(code): %v", err)
	}
	if len(byCode) != 2 {
		t.Fatalf("code filter returned %d rows, want 2", len(byCode))
	}

	rejected := model.OutcomeRejected
	bad, err := uc.Query(ctx, repository.RedemptionLogFilter{Outcome: &rejected, SubjectID: "tpl-1"})
	if err != nil {
		t.Fatalf("Query(outcome): %v", err)
	}
	if len(bad) != 2 {
		t.Fatalf("rejected filter returned %d rows, want 2", len(bad))
	}

	limited, err := uc.Query(ctx, repository.RedemptionLogFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("Query(paged): %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("paged query returned %d rows, want 1", len(limited))
	}
}
