// Package points assembles the accounting engine over a PostgreSQL pool.
// The API service imports this package, calls New once at startup, and
// invokes operations through the returned client; the internal packages
// stay private to this module.
package points

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campuspoints/backend/internal/engine"
	"github.com/campuspoints/backend/internal/events"
	"github.com/campuspoints/backend/internal/ledger"
	"github.com/campuspoints/backend/internal/promotion"
	"github.com/campuspoints/backend/internal/repository"
)

// Client bundles the engine's entry points, fully wired.
type Client struct {
	// Engine holds the transaction operations: purchases, adjustments,
	// transfers, redemptions, the suspicious toggle and reads.
	Engine *engine.Engine
	// Events holds the event points-pool operations.
	Events *events.Service

	Users        *repository.UserRepo
	Accounts     *repository.AccountRepo
	Transactions *repository.TransactionRepo
	Promotions   *repository.PromotionRepo
	EventStore   *repository.EventRepo
	Ledger       *repository.LedgerRepo
}

// New wires repositories, the ledger service and the promotion engine over
// the given pool. A nil logger falls back to slog.Default.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Client {
	users := repository.NewUserRepo(pool)
	accounts := repository.NewAccountRepo(pool)
	transactions := repository.NewTransactionRepo(pool)
	promotions := repository.NewPromotionRepo(pool)
	eventStore := repository.NewEventRepo(pool)
	ledgerRepo := repository.NewLedgerRepo(pool)

	ledgerSvc := ledger.NewService(accounts, ledgerRepo)
	promoEngine := promotion.NewEngine(promotions)

	return &Client{
		Engine:       engine.New(pool, users, accounts, transactions, ledgerSvc, promoEngine, logger),
		Events:       events.NewService(pool, eventStore, users, accounts, transactions, ledgerSvc, logger),
		Users:        users,
		Accounts:     accounts,
		Transactions: transactions,
		Promotions:   promotions,
		EventStore:   eventStore,
		Ledger:       ledgerRepo,
	}
}
