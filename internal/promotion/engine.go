// Package promotion evaluates purchase bonus rules and enforces the
// one-time-per-user guarantee.
package promotion

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/campuspoints/backend/internal/apperr"
	"github.com/campuspoints/backend/internal/models"
)

// centsPerPoint is the fixed base conversion: 1 point per $0.25 spent.
const centsPerPoint = 25

// Store is the minimal promotion repository interface the engine needs. All
// methods run inside the caller's transaction so a failed purchase rolls
// back any reservation made here.
type Store interface {
	GetByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*models.Promotion, error)
	ReserveRedemptionTx(ctx context.Context, tx pgx.Tx, promotionID, userID int64, usedAt time.Time) (reserved bool, err error)
}

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// BasePoints converts spent cents to base points: round(cents / 25), nearest
// integer with ties away from zero.
func BasePoints(spentCents int64) int64 {
	return decimal.NewFromInt(spentCents).
		Div(decimal.NewFromInt(centsPerPoint)).
		Round(0).
		IntPart()
}

// CalculatePoints returns base points for the spend plus the bonus from each
// listed promotion that is currently active and whose minimum spend is met.
// Ids that do not resolve to an applicable promotion are skipped here;
// ValidateAndReserve is where they are rejected.
func (e *Engine) CalculatePoints(ctx context.Context, tx pgx.Tx, spentCents int64, promotionIDs []int64, now time.Time) (int64, error) {
	total := BasePoints(spentCents)
	spend := decimal.NewFromInt(spentCents)

	for _, id := range dedupe(promotionIDs) {
		p, err := e.store.GetByIDTx(ctx, tx, id)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				continue
			}
			return 0, err
		}
		if !p.ActiveAt(now) {
			continue
		}
		if p.MinSpendCents != nil && spentCents < *p.MinSpendCents {
			continue
		}
		if p.Rate != nil {
			total += spend.Mul(*p.Rate).Round(0).IntPart()
		}
		if p.BonusPoints != nil {
			total += *p.BonusPoints
		}
	}
	return total, nil
}

// ValidateAndReserve rejects any promotion id that cannot be applied by
// userID right now, and reserves each one-time promotion by stamping its
// redemption row. The reservation lives and dies with the caller's
// transaction.
func (e *Engine) ValidateAndReserve(ctx context.Context, tx pgx.Tx, userID int64, promotionIDs []int64, now time.Time) error {
	for _, id := range dedupe(promotionIDs) {
		p, err := e.store.GetByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.Status != models.PromotionActive {
			return apperr.InvalidState("promotion %d is not active", id)
		}
		if p.StartsAt.After(now) {
			return apperr.InvalidState("promotion %d has not started", id)
		}
		if p.EndsAt != nil && p.EndsAt.Before(now) {
			return apperr.InvalidState("promotion %d has expired", id)
		}
		if p.Kind != models.PromotionOneTime {
			continue
		}
		reserved, err := e.store.ReserveRedemptionTx(ctx, tx, id, userID, now)
		if err != nil {
			return err
		}
		if !reserved {
			return apperr.AlreadyUsed("promotion %d already used", id)
		}
	}
	return nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
