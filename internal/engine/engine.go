// Package engine orchestrates all point-balance mutations. Every public
// operation runs as exactly one database transaction; the first error rolls
// the whole operation back, including any promotion reservation made inside
// it.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campuspoints/backend/internal/ledger"
	"github.com/campuspoints/backend/internal/models"
)

// DB begins database transactions. *pgxpool.Pool satisfies it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UserDirectory resolves utorid <-> user id and the engine-relevant flags.
type UserDirectory interface {
	GetByUtoridTx(ctx context.Context, tx pgx.Tx, utorid string) (*models.User, error)
	GetByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*models.User, error)
}

// AccountStore is the account lookup interface the engine needs; balance
// mutation goes through the ledger service, never through here.
type AccountStore interface {
	GetByOwnerTx(ctx context.Context, tx pgx.Tx, ownerID int64) (*models.LoyaltyAccount, error)
	GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, ownerID int64) (*models.LoyaltyAccount, error)
}

// TransactionStore persists transaction records.
type TransactionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
	GetByID(ctx context.Context, id int64) (*models.Transaction, error)
	GetByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*models.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Transaction, error)
	SetDecisionTx(ctx context.Context, tx pgx.Tx, id int64, status string, pointsPosted int64, processedBy *int64, decidedAt *time.Time) error
	List(ctx context.Context, f models.TransactionFilter, page, limit int) ([]*models.Transaction, int64, error)
}

// PromotionEngine is the purchase-time promotion contract.
type PromotionEngine interface {
	CalculatePoints(ctx context.Context, tx pgx.Tx, spentCents int64, promotionIDs []int64, now time.Time) (int64, error)
	ValidateAndReserve(ctx context.Context, tx pgx.Tx, userID int64, promotionIDs []int64, now time.Time) error
}

type Engine struct {
	db           DB
	users        UserDirectory
	accounts     AccountStore
	transactions TransactionStore
	ledger       ledger.Service
	promotions   PromotionEngine
	logger       *slog.Logger

	now func() time.Time
}

func New(db DB, users UserDirectory, accounts AccountStore, transactions TransactionStore, ledgerSvc ledger.Service, promotions PromotionEngine, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		db:           db,
		users:        users,
		accounts:     accounts,
		transactions: transactions,
		ledger:       ledgerSvc,
		promotions:   promotions,
		logger:       logger,
		now:          time.Now,
	}
}

// inTx runs fn inside one database transaction, committing only when fn
// returns nil. The deferred rollback is a no-op after commit.
func (e *Engine) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
