package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/campuspoints/backend/internal/apperr"
	"github.com/campuspoints/backend/internal/models"
)

type PromotionRepo struct {
	pool *pgxpool.Pool
}

func NewPromotionRepo(pool *pgxpool.Pool) *PromotionRepo {
	return &PromotionRepo{pool: pool}
}

const promotionColumns = `id, kind, status, starts_at, ends_at, min_spend_cents, rate::text, bonus_points, created_at`

func scanPromotion(row pgx.Row) (*models.Promotion, error) {
	var p models.Promotion
	var rate *string
	err := row.Scan(&p.ID, &p.Kind, &p.Status, &p.StartsAt, &p.EndsAt, &p.MinSpendCents, &rate, &p.BonusPoints, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("promotion not found")
	}
	if err != nil {
		return nil, err
	}
	if rate != nil {
		d, err := decimal.NewFromString(*rate)
		if err != nil {
			return nil, err
		}
		p.Rate = &d
	}
	return &p, nil
}

func (r *PromotionRepo) Create(ctx context.Context, p *models.Promotion) error {
	var rate *string
	if p.Rate != nil {
		s := p.Rate.String()
		rate = &s
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO promotions (kind, status, starts_at, ends_at, min_spend_cents, rate, bonus_points)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)
		RETURNING id, created_at
	`, p.Kind, p.Status, p.StartsAt, p.EndsAt, p.MinSpendCents, rate, p.BonusPoints).Scan(&p.ID, &p.CreatedAt)
}

func (r *PromotionRepo) GetByID(ctx context.Context, id int64) (*models.Promotion, error) {
	return scanPromotion(r.pool.QueryRow(ctx, `SELECT `+promotionColumns+` FROM promotions WHERE id = $1`, id))
}

// GetByIDTx reads a promotion inside the caller's transaction.
func (r *PromotionRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*models.Promotion, error) {
	return scanPromotion(tx.QueryRow(ctx, `SELECT `+promotionColumns+` FROM promotions WHERE id = $1`, id))
}

// GetRedemptionTx returns the redemption row for (promotionID, userID), or
// nil when the user has never touched the promotion.
func (r *PromotionRepo) GetRedemptionTx(ctx context.Context, tx pgx.Tx, promotionID, userID int64) (*models.PromotionRedemption, error) {
	var pr models.PromotionRedemption
	err := tx.QueryRow(ctx, `
		SELECT promotion_id, user_id, used_at FROM promotion_redemptions
		WHERE promotion_id = $1 AND user_id = $2
	`, promotionID, userID).Scan(&pr.PromotionID, &pr.UserID, &pr.UsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

// ReserveRedemptionTx upserts the (promotionID, userID) row with used_at set,
// as long as it is not already consumed. Returns false when a used_at was
// already present, which is the one-time guarantee: at most one consumption
// per user, ever, enforced by the unique pair and the conditional update.
func (r *PromotionRepo) ReserveRedemptionTx(ctx context.Context, tx pgx.Tx, promotionID, userID int64, usedAt time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO promotion_redemptions (promotion_id, user_id, used_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (promotion_id, user_id)
			DO UPDATE SET used_at = EXCLUDED.used_at
			WHERE promotion_redemptions.used_at IS NULL
	`, promotionID, userID, usedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
