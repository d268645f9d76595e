package engine

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/campuspoints/backend/internal/apperr"
	"github.com/campuspoints/backend/internal/models"
)

// CreateRedemptionRequest opens a redemption hold: the request is recorded
// with the points it will debit, but nothing leaves the balance until a
// cashier processes it.
func (e *Engine) CreateRedemptionRequest(ctx context.Context, utorid string, amount int64, remark string, actorID int64) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, apperr.InvalidState("redemption amount must be positive")
	}

	var t *models.Transaction
	err := e.inTx(ctx, func(tx pgx.Tx) error {
		user, err := e.users.GetByUtoridTx(ctx, tx, utorid)
		if err != nil {
			return err
		}
		if !user.Verified {
			return apperr.Forbidden("user is not verified")
		}
		acct, err := e.accounts.GetByOwnerForUpdate(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		if acct.CachedBalance < amount {
			return apperr.InsufficientBalance("balance %d is below redemption amount %d", acct.CachedBalance, amount)
		}

		t = &models.Transaction{
			Type:             models.TxRedemption,
			Status:           models.TxStatusPendingVerification,
			AccountID:        acct.ID,
			PointsCalculated: -amount,
			PointsPosted:     0,
			CreatedBy:        actorID,
			Notes:            remark,
		}
		return e.transactions.CreateTx(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("redemption requested", "transaction_id", t.ID, "utorid", utorid, "amount", amount)
	return t, nil
}

// ProcessRedemption settles a pending redemption: debits the held points,
// appends the redeem ledger entry and marks the transaction posted. Terminal;
// a posted redemption cannot be processed again.
func (e *Engine) ProcessRedemption(ctx context.Context, transactionID int64, cashierID int64) (*models.Transaction, error) {
	var t *models.Transaction
	err := e.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		t, err = e.transactions.GetByIDForUpdate(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if t.Type != models.TxRedemption {
			return apperr.InvalidState("transaction %d is not a redemption", transactionID)
		}
		if t.Status != models.TxStatusPendingVerification {
			return apperr.InvalidState("redemption %d already processed", transactionID)
		}
		if _, err := e.users.GetByIDTx(ctx, tx, cashierID); err != nil {
			return err
		}

		if _, err := e.ledger.ApplyDelta(ctx, tx, t.AccountID, t.PointsCalculated, models.EntryRedeem, t.ID); err != nil {
			return err
		}
		now := e.now()
		if err := e.transactions.SetDecisionTx(ctx, tx, t.ID, models.TxStatusPosted, t.PointsCalculated, &cashierID, &now); err != nil {
			return err
		}
		t.Status = models.TxStatusPosted
		t.PointsPosted = t.PointsCalculated
		t.ProcessedBy = &cashierID
		t.DecidedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("redemption processed", "transaction_id", t.ID, "points", t.PointsPosted, "cashier_id", cashierID)
	return t, nil
}
