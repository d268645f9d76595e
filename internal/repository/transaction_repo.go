package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campuspoints/backend/internal/apperr"
	"github.com/campuspoints/backend/internal/models"
)

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, type, status, account_id, points_calculated, points_posted,
	spent_cents, related_transaction_id, counter_account_id, event_id, award_id,
	created_by, processed_by, notes, created_at, decided_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.Type, &t.Status, &t.AccountID, &t.PointsCalculated, &t.PointsPosted,
		&t.SpentCents, &t.RelatedTransactionID, &t.CounterAccountID, &t.EventID, &t.AwardID,
		&t.CreatedBy, &t.ProcessedBy, &t.Notes, &t.CreatedAt, &t.DecidedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("transaction not found")
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTx inserts a transaction inside the given database transaction and
// fills in the generated id and created_at.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO transactions (type, status, account_id, points_calculated, points_posted,
			spent_cents, related_transaction_id, counter_account_id, event_id, award_id,
			created_by, processed_by, notes, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at
	`, t.Type, t.Status, t.AccountID, t.PointsCalculated, t.PointsPosted,
		t.SpentCents, t.RelatedTransactionID, t.CounterAccountID, t.EventID, t.AwardID,
		t.CreatedBy, t.ProcessedBy, t.Notes, t.DecidedAt).Scan(&t.ID, &t.CreatedAt)
}

func (r *TransactionRepo) GetByID(ctx context.Context, id int64) (*models.Transaction, error) {
	return scanTransaction(r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

// GetByIDTx reads a transaction inside the caller's database transaction.
func (r *TransactionRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*models.Transaction, error) {
	return scanTransaction(tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

// GetByIDForUpdate locks the transaction row. Call within a database transaction.
func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Transaction, error) {
	return scanTransaction(tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
}

// SetDecisionTx records the outcome of the two mutable flows (suspicious
// toggle, redemption processing): status, points actually posted, who
// decided and when. Everything else on the row stays immutable.
func (r *TransactionRepo) SetDecisionTx(ctx context.Context, tx pgx.Tx, id int64, status string, pointsPosted int64, processedBy *int64, decidedAt *time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE transactions
		SET status = $2, points_posted = $3, processed_by = COALESCE($4, processed_by), decided_at = $5
		WHERE id = $1
	`, id, status, pointsPosted, processedBy, decidedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("transaction not found")
	}
	return nil
}

// DeleteTx removes a transaction row. Only award reversal does this, after
// the linked ledger entry is gone.
func (r *TransactionRepo) DeleteTx(ctx context.Context, tx pgx.Tx, id int64) error {
	_, err := tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	return err
}

// List returns one page of transactions, newest first, plus the total count
// matching the filter. Page is 1-based; limit <= 0 falls back to 20.
func (r *TransactionRepo) List(ctx context.Context, f models.TransactionFilter, page, limit int) ([]*models.Transaction, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}

	where := []string{"TRUE"}
	args := []any{}
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.AccountID != 0 {
		add("account_id = $%d", f.AccountID)
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.EventID != 0 {
		add("event_id = $%d", f.EventID)
	}
	if f.CreatedBy != 0 {
		add("created_by = $%d", f.CreatedBy)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, (page-1)*limit)
	q := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, cond, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, t)
	}
	return list, total, rows.Err()
}
