package models

import (
	"time"
)

// LoyaltyAccount holds one user's point balance. Exactly one account exists
// per user, created when the user is created. CachedBalance is mutated only
// by the transaction engine and must always equal the sum of the account's
// ledger entry deltas.
type LoyaltyAccount struct {
	ID            int64     `json:"id"`
	OwnerID       int64     `json:"owner_id"`
	CachedBalance int64     `json:"cached_balance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
