// Package audit runs the periodic ledger audit: it replays the invariants
// the engine maintains (cached balance equals the sum of ledger deltas, and
// event pool plus awards equals the allocated total) against the live store
// and reports any drift. Read-only; it never repairs.
package audit

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/campuspoints/backend/internal/repository"
)

// LedgerAuditArgs is the river job payload. The audit takes no parameters.
type LedgerAuditArgs struct{}

func (LedgerAuditArgs) Kind() string { return "ledger_audit" }

// Store is the read-only contract the auditor needs.
type Store interface {
	FindBalanceMismatches(ctx context.Context) ([]repository.BalanceMismatch, error)
	FindPoolMismatches(ctx context.Context) ([]repository.PoolMismatch, error)
}

type Worker struct {
	river.WorkerDefaults[LedgerAuditArgs]
	store  Store
	logger *slog.Logger
}

func NewWorker(store Store, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, logger: logger}
}

func (w *Worker) Work(ctx context.Context, job *river.Job[LedgerAuditArgs]) error {
	balances, err := w.store.FindBalanceMismatches(ctx)
	if err != nil {
		return err
	}
	for _, m := range balances {
		w.logger.Error("cached balance drifted from ledger replay",
			"account_id", m.AccountID,
			"cached_balance", m.CachedBalance,
			"replayed_sum", m.ReplayedSum,
		)
	}

	pools, err := w.store.FindPoolMismatches(ctx)
	if err != nil {
		return err
	}
	for _, m := range pools {
		w.logger.Error("event pool drifted from awarded total",
			"event_id", m.EventID,
			"points_pool", m.PointsPool,
			"awarded", m.Awarded,
			"allocated", m.Allocated,
		)
	}

	if len(balances) == 0 && len(pools) == 0 {
		w.logger.Info("ledger audit clean")
	}
	return nil
}
