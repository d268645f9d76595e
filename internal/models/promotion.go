package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Promotion kinds.
const (
	PromotionAutomatic = "automatic"
	PromotionOneTime   = "one_time"
)

// Promotion statuses.
const (
	PromotionActive   = "active"
	PromotionInactive = "inactive"
)

// Promotion describes a bonus rule applied on top of base purchase points.
// At least one of Rate and BonusPoints is set; both may be.
type Promotion struct {
	ID       int64     `json:"id"`
	Kind     string    `json:"kind"`
	Status   string    `json:"status"`
	StartsAt time.Time `json:"starts_at"`
	// EndsAt nil means open-ended.
	EndsAt        *time.Time `json:"ends_at,omitempty"`
	MinSpendCents *int64     `json:"min_spend_cents,omitempty"`
	// Rate is bonus points per cent spent.
	Rate        *decimal.Decimal `json:"rate,omitempty"`
	BonusPoints *int64           `json:"bonus_points,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// ActiveAt reports whether the promotion can apply at the given instant.
func (p *Promotion) ActiveAt(now time.Time) bool {
	if p.Status != PromotionActive {
		return false
	}
	if p.StartsAt.After(now) {
		return false
	}
	if p.EndsAt != nil && p.EndsAt.Before(now) {
		return false
	}
	return true
}

// PromotionRedemption marks a one-time promotion as consumed by a user.
// The (PromotionID, UserID) pair is unique; a non-nil UsedAt makes the
// promotion permanently unusable by that user.
type PromotionRedemption struct {
	PromotionID int64      `json:"promotion_id"`
	UserID      int64      `json:"user_id"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
}
