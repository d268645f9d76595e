package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campuspoints/backend/internal/apperr"
	"github.com/campuspoints/backend/internal/models"
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const accountColumns = `id, owner_id, cached_balance, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.LoyaltyAccount, error) {
	var a models.LoyaltyAccount
	err := row.Scan(&a.ID, &a.OwnerID, &a.CachedBalance, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("account not found")
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id int64) (*models.LoyaltyAccount, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM loyalty_accounts WHERE id = $1`, id))
}

func (r *AccountRepo) GetByOwner(ctx context.Context, ownerID int64) (*models.LoyaltyAccount, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM loyalty_accounts WHERE owner_id = $1`, ownerID))
}

// GetByOwnerTx reads the owner's account without locking it, inside the
// caller's transaction.
func (r *AccountRepo) GetByOwnerTx(ctx context.Context, tx pgx.Tx, ownerID int64) (*models.LoyaltyAccount, error) {
	return scanAccount(tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM loyalty_accounts WHERE owner_id = $1`, ownerID))
}

// GetByIDForUpdate locks the account row for update. Call within a transaction.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.LoyaltyAccount, error) {
	return scanAccount(tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM loyalty_accounts WHERE id = $1 FOR UPDATE`, id))
}

// GetByOwnerForUpdate locks the owner's account row for update. Call within a transaction.
func (r *AccountRepo) GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, ownerID int64) (*models.LoyaltyAccount, error) {
	return scanAccount(tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM loyalty_accounts WHERE owner_id = $1 FOR UPDATE`, ownerID))
}

// AddToBalanceTx atomically applies delta to cached_balance, refusing any
// update that would leave the balance negative. Returns the new balance, or
// InsufficientBalance when the conditional update matched no row but the
// account exists.
func (r *AccountRepo) AddToBalanceTx(ctx context.Context, tx pgx.Tx, id int64, delta int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `
		UPDATE loyalty_accounts
		SET cached_balance = cached_balance + $1, updated_at = now()
		WHERE id = $2 AND cached_balance + $1 >= 0
		RETURNING cached_balance
	`, delta, id).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a missing account from a refused debit.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM loyalty_accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
			return 0, err
		}
		if !exists {
			return 0, apperr.NotFound("account not found")
		}
		return 0, apperr.InsufficientBalance("balance would go negative")
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}
