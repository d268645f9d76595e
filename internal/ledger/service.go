// Package ledger is the store for point balances: every balance change goes
// through ApplyDelta or ApplyTransfer, which pair the cached-balance update
// with exactly one appended ledger entry per affected account, inside the
// caller's database transaction.
package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campuspoints/backend/internal/apperr"
	"github.com/campuspoints/backend/internal/models"
)

// AccountStore is the minimal account repository interface the ledger needs.
type AccountStore interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.LoyaltyAccount, error)
	AddToBalanceTx(ctx context.Context, tx pgx.Tx, id int64, delta int64) (newBalance int64, err error)
}

// EntryStore is the minimal ledger-entry repository interface.
type EntryStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error
	DeleteByTransactionTx(ctx context.Context, tx pgx.Tx, transactionID, accountID int64) (deletedSum int64, err error)
}

type Service interface {
	// Account locks and returns the account row. Call within a transaction.
	Account(ctx context.Context, tx pgx.Tx, accountID int64) (*models.LoyaltyAccount, error)
	// ApplyDelta atomically adds delta to the cached balance and appends one
	// entry of the given kind tied to transactionID. Fails with
	// InsufficientBalance when the resulting balance would be negative;
	// callers pre-check, the store re-validates as the last line of defense.
	ApplyDelta(ctx context.Context, tx pgx.Tx, accountID, delta int64, kind string, transactionID int64) (newBalance int64, err error)
	// ApplyTransfer debits from and credits to, appending a transfer_out
	// entry tied to outTransactionID and a transfer_in entry tied to
	// inTransactionID. Both sides apply or neither does.
	ApplyTransfer(ctx context.Context, tx pgx.Tx, fromAccountID, toAccountID, amount, outTransactionID, inTransactionID int64) error
	// Reverse deletes the entries tying transactionID to accountID and
	// subtracts their sum from the cached balance, fully undoing a posting.
	Reverse(ctx context.Context, tx pgx.Tx, accountID, transactionID int64) (reversed int64, err error)
}

type service struct {
	accounts AccountStore
	entries  EntryStore
}

func NewService(accounts AccountStore, entries EntryStore) Service {
	return &service{accounts: accounts, entries: entries}
}

var _ Service = (*service)(nil)

func (s *service) Account(ctx context.Context, tx pgx.Tx, accountID int64) (*models.LoyaltyAccount, error) {
	return s.accounts.GetByIDForUpdate(ctx, tx, accountID)
}

func (s *service) ApplyDelta(ctx context.Context, tx pgx.Tx, accountID, delta int64, kind string, transactionID int64) (int64, error) {
	balance, err := s.accounts.AddToBalanceTx(ctx, tx, accountID, delta)
	if err != nil {
		return 0, err
	}
	entry := &models.LedgerEntry{
		ID:            uuid.New(),
		AccountID:     accountID,
		TransactionID: transactionID,
		Kind:          kind,
		PointsDelta:   delta,
	}
	if err := s.entries.CreateTx(ctx, tx, entry); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *service) ApplyTransfer(ctx context.Context, tx pgx.Tx, fromAccountID, toAccountID, amount, outTransactionID, inTransactionID int64) error {
	if amount <= 0 {
		return apperr.InvalidState("transfer amount must be positive")
	}
	// Lock both rows in ascending account id order, never caller order, so
	// two opposing transfers cannot deadlock.
	first, second := fromAccountID, toAccountID
	if second < first {
		first, second = second, first
	}
	if _, err := s.accounts.GetByIDForUpdate(ctx, tx, first); err != nil {
		return err
	}
	if _, err := s.accounts.GetByIDForUpdate(ctx, tx, second); err != nil {
		return err
	}

	if _, err := s.ApplyDelta(ctx, tx, fromAccountID, -amount, models.EntryTransferOut, outTransactionID); err != nil {
		return err
	}
	if _, err := s.ApplyDelta(ctx, tx, toAccountID, amount, models.EntryTransferIn, inTransactionID); err != nil {
		return err
	}
	return nil
}

func (s *service) Reverse(ctx context.Context, tx pgx.Tx, accountID, transactionID int64) (int64, error) {
	sum, err := s.entries.DeleteByTransactionTx(ctx, tx, transactionID, accountID)
	if err != nil {
		return 0, err
	}
	if sum == 0 {
		return 0, nil
	}
	if _, err := s.accounts.AddToBalanceTx(ctx, tx, accountID, -sum); err != nil {
		return 0, err
	}
	return sum, nil
}
