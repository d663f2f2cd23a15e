package model

import "time"

// Template is the marketplace item whose source text may be gated behind an
// access code.
type Template struct {
	ID           string
	Title        string
	Description  string
	ImageURL     string
	SourceCode   string
	Language     string
	Tags         []string
	RequiresCode bool // false marks the source as freely disclosable
	UsageCount   int
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisclosureTier is the three-way decision on whether a template's source is
// returned to a caller.
type DisclosureTier string

const (
	TierAlwaysVisible DisclosureTier = "always_visible"
	TierUnlocked      DisclosureTier = "unlocked"
	TierLocked        DisclosureTier = "locked"
)

// Disclosable reports whether the source text may be included in a response.
func (t DisclosureTier) Disclosable() bool { return t != TierLocked }

// Disclose maps caller privilege and redemption outcome to a disclosure
// tier. The tier is never persisted: there is no session concept here, so
// every new request for a gated template must re-prove with a fresh
// redemption unless the caller is privileged.
func Disclose(privileged, accepted, requiresCode bool) DisclosureTier {
	switch {
	case !requiresCode:
		return TierAlwaysVisible
	case privileged || accepted:
		return TierUnlocked
	default:
		return TierLocked
	}
}
