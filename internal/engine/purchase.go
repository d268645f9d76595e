package engine

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/campuspoints/backend/internal/apperr"
	"github.com/campuspoints/backend/internal/models"
)

// CreatePurchase records a purchase for the user identified by utorid.
// Points are base conversion plus any valid promotion bonuses. When the
// recording cashier is flagged suspicious the transaction is created on
// hold: points calculated but nothing posted until a manager verifies it.
func (e *Engine) CreatePurchase(ctx context.Context, utorid string, spentCents int64, promotionIDs []int64, remark string, cashierID int64) (*models.Transaction, error) {
	if spentCents <= 0 {
		return nil, apperr.InvalidState("spent amount must be positive")
	}

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
		cashier, err := e.users.GetByIDTx(ctx, tx, cashierID)
		if err != nil {
			return err
		}

		now := e.now()
		if err := e.promotions.ValidateAndReserve(ctx, tx, user.ID, promotionIDs, now); err != nil {
			return err
		}
		points, err := e.promotions.CalculatePoints(ctx, tx, spentCents, promotionIDs, now)
		if err != nil {
			return err
		}

		t = &models.Transaction{
			Type:             models.TxPurchase,
			Status:           models.TxStatusPosted,
			AccountID:        acct.ID,
			PointsCalculated: points,
			PointsPosted:     points,
			SpentCents:       &spentCents,
			CreatedBy:        cashierID,
			Notes:            remark,
		}
		if cashier.Suspicious {
			t.Status = models.TxStatusPendingVerification
			t.PointsPosted = 0
		}
		if err := e.transactions.CreateTx(ctx, tx, t); err != nil {
			return err
		}
		if t.Status == models.TxStatusPosted {
			if _, err := e.ledger.ApplyDelta(ctx, tx, acct.ID, points, models.EntryEarnPurchase, t.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("purchase recorded",
		"transaction_id", t.ID,
		"utorid", utorid,
		"spent_cents", spentCents,
		"points", t.PointsCalculated,
		"status", t.Status,
	)
	return t, nil
}
