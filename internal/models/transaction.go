package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction type enums.
const (
	TxPurchase   = "purchase"
	TxAdjustment = "adjustment"
	TxTransfer   = "transfer"
	TxRedemption = "redemption"
	TxEventAward = "event_award"
)

// Transaction status enums. Only purchases (via the suspicious toggle) and
// redemptions (via processing) ever move between the two; every other type is
// created posted and stays there.
const (
	TxStatusPosted              = "posted"
	TxStatusPendingVerification = "pending_verification"
)

// Ledger entry kinds.
const (
	EntryEarnPurchase     = "earn_purchase"
	EntryEarnEvent        = "earn_event"
	EntryTransferIn       = "transfer_in"
	EntryTransferOut      = "transfer_out"
	EntryRedeem           = "redeem"
	EntryAdjustmentCredit = "adjustment_credit"
	EntryAdjustmentDebit  = "adjustment_debit"
)

// Transaction records one engine operation against one account. Immutable
// once created except for Status, PointsPosted, ProcessedBy and DecidedAt,
// which change only through the suspicious toggle and redemption processing.
type Transaction struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	AccountID int64  `json:"account_id"`
	// PointsCalculated is what the rules say is owed; PointsPosted is what
	// has actually hit the balance. They differ only while a purchase or
	// redemption is pending verification.
	PointsCalculated     int64      `json:"points_calculated"`
	PointsPosted         int64      `json:"points_posted"`
	SpentCents           *int64     `json:"spent_cents,omitempty"`
	RelatedTransactionID *int64     `json:"related_transaction_id,omitempty"`
	CounterAccountID     *int64     `json:"counter_account_id,omitempty"`
	EventID              *int64     `json:"event_id,omitempty"`
	AwardID              *uuid.UUID `json:"award_id,omitempty"`
	CreatedBy            int64      `json:"created_by"`
	ProcessedBy          *int64     `json:"processed_by,omitempty"`
	Notes                string     `json:"notes,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	DecidedAt            *time.Time `json:"decided_at,omitempty"`
}

// TransactionFilter narrows transaction listings. Zero values mean "no filter".
type TransactionFilter struct {
	AccountID int64
	Type      string
	Status    string
	EventID   int64
	CreatedBy int64
}

// LedgerEntry is one append-only balance change for one account, tied to the
// transaction that caused it. Entries are never updated; they are deleted
// only when their transaction is fully reversed (suspicious re-hold, event
// award removal).
type LedgerEntry struct {
	ID            uuid.UUID `json:"id"`
	AccountID     int64     `json:"account_id"`
	TransactionID int64     `json:"transaction_id"`
	Kind          string    `json:"kind"`
	PointsDelta   int64     `json:"points_delta"`
	CreatedAt     time.Time `json:"created_at"`
}
