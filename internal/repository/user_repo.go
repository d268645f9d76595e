package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campuspoints/backend/internal/apperr"
	"github.com/campuspoints/backend/internal/models"
)

// UserRepo is the user directory: it resolves utorid <-> id and exposes the
// flags the engine reads (verified, suspicious).
type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, utorid, name, role, verified, suspicious, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Utorid, &u.Name, &u.Role, &u.Verified, &u.Suspicious, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepo) GetByUtorid(ctx context.Context, utorid string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE utorid = $1`, utorid))
}

// GetByIDTx reads a user inside the caller's transaction.
func (r *UserRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*models.User, error) {
	return scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByUtoridTx reads a user by utorid inside the caller's transaction.
func (r *UserRepo) GetByUtoridTx(ctx context.Context, tx pgx.Tx, utorid string) (*models.User, error) {
	return scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE utorid = $1`, utorid))
}

// Create inserts a user and their loyalty account in one transaction. One
// account per user, created at user creation and never again.
func (r *UserRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO users (utorid, name, role, verified, suspicious)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, u.Utorid, u.Name, u.Role, u.Verified, u.Suspicious).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO loyalty_accounts (owner_id, cached_balance) VALUES ($1, 0)
	`, u.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return u, nil
}

// SetSuspicious flips the cashier suspicious flag.
func (r *UserRepo) SetSuspicious(ctx context.Context, id int64, suspicious bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET suspicious = $2 WHERE id = $1`, id, suspicious)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

// SetVerified marks a user as verified.
func (r *UserRepo) SetVerified(ctx context.Context, id int64, verified bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET verified = $2 WHERE id = $1`, id, verified)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}
