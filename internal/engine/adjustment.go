package engine

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/campuspoints/backend/internal/models"
)

// CreateAdjustment posts a manual correction of amount points (either sign)
// to the user identified by utorid. When relatedTransactionID is set it must
// reference an existing transaction, but the adjustment itself is
// independent and always posts immediately.
func (e *Engine) CreateAdjustment(ctx context.Context, utorid string, amount int64, relatedTransactionID *int64, remark string, managerID int64) (*models.Transaction, error) {
	var t *models.Transaction
	err := e.inTx(ctx, func(tx pgx.Tx) error {
		user, err := e.users.GetByUtoridTx(ctx, tx, utorid)
		if err != nil {
			return err
		}
		acct, err := e.accounts.GetByOwnerForUpdate(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		if _, err := e.users.GetByIDTx(ctx, tx, managerID); err != nil {
			return err
		}
		if relatedTransactionID != nil {
			if _, err := e.transactions.GetByIDTx(ctx, tx, *relatedTransactionID); err != nil {
				return err
			}
		}

		t = &models.Transaction{
			Type:                 models.TxAdjustment,
			Status:               models.TxStatusPosted,
			AccountID:            acct.ID,
			PointsCalculated:     amount,
			PointsPosted:         amount,
			RelatedTransactionID: relatedTransactionID,
			CreatedBy:            managerID,
			Notes:                remark,
		}
		if err := e.transactions.CreateTx(ctx, tx, t); err != nil {
			return err
		}

		kind := models.EntryAdjustmentCredit
		if amount < 0 {
			kind = models.EntryAdjustmentDebit
		}
		_, err = e.ledger.ApplyDelta(ctx, tx, acct.ID, amount, kind, t.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("adjustment posted", "transaction_id", t.ID, "utorid", utorid, "amount", amount)
	return t, nil
}
