package engine

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/campuspoints/backend/internal/apperr"
	"github.com/campuspoints/backend/internal/models"
)

// CreateTransfer moves amount points from the sender (by utorid) to the
// recipient (by user id). It produces one transaction and one ledger entry
// per side; both apply or neither does. The sender-side transaction is
// returned.
func (e *Engine) CreateTransfer(ctx context.Context, fromUtorid string, toUserID int64, amount int64, remark string, actorID int64) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, apperr.InvalidState("transfer amount must be positive")
	}

	var out *models.Transaction
	err := e.inTx(ctx, func(tx pgx.Tx) error {
		sender, err := e.users.GetByUtoridTx(ctx, tx, fromUtorid)
		if err != nil {
			return err
		}
		if !sender.Verified {
			return apperr.Forbidden("sender is not verified")
		}
		recipient, err := e.users.GetByIDTx(ctx, tx, toUserID)
		if err != nil {
			return err
		}

		fromAcct, err := e.accounts.GetByOwnerTx(ctx, tx, sender.ID)
		if err != nil {
			return err
		}
		toAcct, err := e.accounts.GetByOwnerTx(ctx, tx, recipient.ID)
		if err != nil {
			return err
		}
		if fromAcct.CachedBalance < amount {
			return apperr.InsufficientBalance("balance %d is below transfer amount %d", fromAcct.CachedBalance, amount)
		}

		out = &models.Transaction{
			Type:             models.TxTransfer,
			Status:           models.TxStatusPosted,
			AccountID:        fromAcct.ID,
			PointsCalculated: -amount,
			PointsPosted:     -amount,
			CounterAccountID: &toAcct.ID,
			CreatedBy:        actorID,
			Notes:            remark,
		}
		if err := e.transactions.CreateTx(ctx, tx, out); err != nil {
			return err
		}
		in := &models.Transaction{
			Type:                 models.TxTransfer,
			Status:               models.TxStatusPosted,
			AccountID:            toAcct.ID,
			PointsCalculated:     amount,
			PointsPosted:         amount,
			CounterAccountID:     &fromAcct.ID,
			RelatedTransactionID: &out.ID,
			CreatedBy:            actorID,
			Notes:                remark,
		}
		if err := e.transactions.CreateTx(ctx, tx, in); err != nil {
			return err
		}

		// The ledger locks both accounts in ascending id order and
		// re-validates the sender balance as it debits.
		return e.ledger.ApplyTransfer(ctx, tx, fromAcct.ID, toAcct.ID, amount, out.ID, in.ID)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("transfer posted", "transaction_id", out.ID, "from", fromUtorid, "to_user_id", toUserID, "amount", amount)
	return out, nil
}
