package model

import (
	"regexp"
	"strings"
	"time"
)

// AccessCode is a redeemable token that gates visibility of a template's
// stored source text. Quota and expiry are both optional: MaxUses of zero
// means unlimited, a nil ExpiresAt never expires.
type AccessCode struct {
	ID         string
	Code       string // canonical form: XXXX-XXXX, uppercase
	Name       string // operator-facing label, no semantic effect
	MaxUses    int
	UsedCount  int
	ExpiresAt  *time.Time // pointer to allow for NULL
	IsActive   bool       // operator kill switch, independent of quota/expiry
	IsLongTerm bool       // long-term codes are exempt from auto-retirement
	RetiredAt  *time.Time // set by the lifecycle sweeper, nil while listed as active
	CreatedAt  time.Time
}

// Expired reports whether the code's expiry has passed. Codes without an
// expiry never expire.
func (c *AccessCode) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// Exhausted reports whether the quota is used up. Unlimited codes are never
// exhausted.
func (c *AccessCode) Exhausted() bool {
	return c.MaxUses > 0 && c.UsedCount >= c.MaxUses
}

// Retired reports whether the sweeper has removed the code from active
// listings.
func (c *AccessCode) Retired() bool { return c.RetiredAt != nil }

// RejectReason enumerates the expected, non-error outcomes of a failed
// redemption. StoreUnavailable is deliberately not one of these: transient
// infrastructure faults propagate as errors, never as rejections.
type RejectReason string

const (
	ReasonMalformedCode  RejectReason = "MalformedCode"
	ReasonCodeNotFound   RejectReason = "CodeNotFound"
	ReasonCodeInactive   RejectReason = "CodeInactive"
	ReasonCodeExpired    RejectReason = "CodeExpired"
	ReasonQuotaExhausted RejectReason = "QuotaExhausted"
)

// Decision is the result of the pure validation pass over a code record.
type Decision struct {
	Accepted      bool
	Reason        RejectReason // set only when rejected
	RemainingUses *int         // nil for unlimited codes; pre-increment value
}

// Evaluate applies the validation checks in a fixed order, short-circuiting
// at the first failure so exactly one deterministic reason is reported:
// existence, then the operator kill switch, then expiry, then quota.
// It never mutates the record; callers may invoke it any number of times
// without consuming quota.
func Evaluate(code *AccessCode, now time.Time) Decision {
	switch {
	case code == nil:
		return Decision{Reason: ReasonCodeNotFound}
	case !code.IsActive:
		return Decision{Reason: ReasonCodeInactive}
	case code.Expired(now):
		return Decision{Reason: ReasonCodeExpired}
	case code.Exhausted():
		return Decision{Reason: ReasonQuotaExhausted}
	}
	d := Decision{Accepted: true}
	if code.MaxUses > 0 {
		left := code.MaxUses - code.UsedCount
		d.RemainingUses = &left
	}
	return d
}

var nonAlphanumeric = regexp.MustCompile(`[^0-9A-Za-z]+`)

// NormalizeCode converts user input to the canonical AAAA-BBBB form: strip
// everything that is not alphanumeric, uppercase, and re-insert the dash.
// Input that does not leave exactly eight characters cannot be a code and is
// rejected before any store lookup.
func NormalizeCode(raw string) (string, bool) {
	s := strings.ToUpper(nonAlphanumeric.ReplaceAllString(raw, ""))
	if len(s) != 8 {
		return "", false
	}
	return s[:4] + "-" + s[4:], true
}
