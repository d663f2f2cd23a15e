package model

import "time"

// RedemptionOutcome is the two-way result reported to callers.
type RedemptionOutcome string

const (
	OutcomeAccepted RedemptionOutcome = "accepted"
	OutcomeRejected RedemptionOutcome = "rejected"
)

// RedemptionAttempt is one append-only audit row, written for every
// redemption call, success or failure. Rows are never mutated or deleted;
// when the referenced code is hard-deleted the CodeID becomes nil and the
// submitted text in CodeText keeps the row readable.
type RedemptionAttempt struct {
	ID            string  // ULID, sorts by time
	CodeID        *string // nil when the submitted code matched nothing
	CodeText      string  // normalized form when possible, raw otherwise
	SubjectID     string  // the template the caller wanted to unlock
	RequesterIP   string
	Outcome       RedemptionOutcome
	FailureReason *string // pointer to allow for NULL
	CreatedAt     time.Time
}

// RedemptionResult is what the coordinator hands back to the transport
// layer. Rejections are normal results, not errors.
type RedemptionResult struct {
	Outcome       RedemptionOutcome
	Reason        RejectReason // empty when accepted
	RemainingUses *int         // post-increment; nil for unlimited codes
}

// Accepted reports whether quota was consumed.
func (r *RedemptionResult) Accepted() bool { return r.Outcome == OutcomeAccepted }
