package engine

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/campuspoints/backend/internal/apperr"
	"github.com/campuspoints/backend/internal/models"
)

// ToggleSuspicious moves a purchase between posted and pending_verification.
// Marking suspicious withdraws the posting: the earn entry is removed and the
// balance debited. Clearing the flag credits the calculated points exactly
// once. Calling with the state already matching the target is a no-op, so a
// repeated verification can never double-credit.
func (e *Engine) ToggleSuspicious(ctx context.Context, transactionID int64, suspicious bool) (*models.Transaction, error) {
	var t *models.Transaction
	err := e.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		t, err = e.transactions.GetByIDForUpdate(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if t.Type != models.TxPurchase {
			return apperr.InvalidState("transaction %d is not a purchase", transactionID)
		}

		now := e.now()
		switch {
		case suspicious && t.Status == models.TxStatusPosted:
			if _, err := e.ledger.Reverse(ctx, tx, t.AccountID, t.ID); err != nil {
				return err
			}
			if err := e.transactions.SetDecisionTx(ctx, tx, t.ID, models.TxStatusPendingVerification, 0, nil, &now); err != nil {
				return err
			}
			t.Status = models.TxStatusPendingVerification
			t.PointsPosted = 0
			t.DecidedAt = &now

		case !suspicious && t.Status == models.TxStatusPendingVerification:
			if _, err := e.ledger.ApplyDelta(ctx, tx, t.AccountID, t.PointsCalculated, models.EntryEarnPurchase, t.ID); err != nil {
				return err
			}
			if err := e.transactions.SetDecisionTx(ctx, tx, t.ID, models.TxStatusPosted, t.PointsCalculated, nil, &now); err != nil {
				return err
			}
			t.Status = models.TxStatusPosted
			t.PointsPosted = t.PointsCalculated
			t.DecidedAt = &now

		default:
			// Already in the requested state.
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("suspicious toggled", "transaction_id", t.ID, "suspicious", suspicious, "status", t.Status)
	return t, nil
}
