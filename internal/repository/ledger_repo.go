package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campuspoints/backend/internal/models"
)

// LedgerRepo persists the append-only ledger_entries table. Entries are
// inserted and, in the two full-reversal cases, deleted; never updated.
type LedgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepo(pool *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// CreateTx appends a ledger entry inside the given transaction.
func (r *LedgerRepo) CreateTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error {
	return tx.QueryRow(ctx, `
		INSERT INTO ledger_entries (id, account_id, transaction_id, kind, points_delta)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, e.ID, e.AccountID, e.TransactionID, e.Kind, e.PointsDelta).Scan(&e.CreatedAt)
}

// DeleteByTransactionTx removes the entries tying transactionID to accountID
// and returns the sum of the deleted deltas, so the caller can undo their
// effect on the cached balance in the same transaction.
func (r *LedgerRepo) DeleteByTransactionTx(ctx context.Context, tx pgx.Tx, transactionID, accountID int64) (int64, error) {
	var sum int64
	err := tx.QueryRow(ctx, `
		WITH removed AS (
			DELETE FROM ledger_entries
			WHERE transaction_id = $1 AND account_id = $2
			RETURNING points_delta
		)
		SELECT COALESCE(SUM(points_delta), 0) FROM removed
	`, transactionID, accountID).Scan(&sum)
	return sum, err
}

func (r *LedgerRepo) ListByAccount(ctx context.Context, accountID int64) ([]*models.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, transaction_id, kind, points_delta, created_at
		FROM ledger_entries WHERE account_id = $1 ORDER BY created_at
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.TransactionID, &e.Kind, &e.PointsDelta, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

// BalanceMismatch is one account whose cached balance has drifted from the
// replayed sum of its ledger entries. The auditor logs these; none should
// ever exist.
type BalanceMismatch struct {
	AccountID     int64
	CachedBalance int64
	ReplayedSum   int64
}

func (r *LedgerRepo) FindBalanceMismatches(ctx context.Context) ([]BalanceMismatch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.cached_balance, COALESCE(SUM(e.points_delta), 0) AS replayed
		FROM loyalty_accounts a
		LEFT JOIN ledger_entries e ON e.account_id = a.id
		GROUP BY a.id, a.cached_balance
		HAVING a.cached_balance <> COALESCE(SUM(e.points_delta), 0)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BalanceMismatch
	for rows.Next() {
		var m BalanceMismatch
		if err := rows.Scan(&m.AccountID, &m.CachedBalance, &m.ReplayedSum); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// PoolMismatch is one event whose remaining pool plus awarded points no
// longer equals its allocated total.
type PoolMismatch struct {
	EventID    int64
	PointsPool int64
	Awarded    int64
	Allocated  int64
}

func (r *LedgerRepo) FindPoolMismatches(ctx context.Context) ([]PoolMismatch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ev.id, ev.points_pool, COALESCE(SUM(aw.points), 0) AS awarded, ev.points_allocated
		FROM events ev
		LEFT JOIN event_awards aw ON aw.event_id = ev.id
		GROUP BY ev.id, ev.points_pool, ev.points_allocated
		HAVING ev.points_pool + COALESCE(SUM(aw.points), 0) <> ev.points_allocated
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PoolMismatch
	for rows.Next() {
		var m PoolMismatch
		if err := rows.Scan(&m.EventID, &m.PointsPool, &m.Awarded, &m.Allocated); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
