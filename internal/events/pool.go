// Package events allocates points from per-event budgets to RSVP'd guests.
// Pool mutations and the ledger mutations for the same award share one
// database transaction, keeping points_pool + sum(awards) equal to the
// event's allocated total at all times.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campuspoints/backend/internal/apperr"
	"github.com/campuspoints/backend/internal/ledger"
	"github.com/campuspoints/backend/internal/models"
)

// DB begins database transactions. *pgxpool.Pool satisfies it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// EventStore is the event repository interface the pool service needs.
type EventStore interface {
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Event, error)
	AddToPoolTx(ctx context.Context, tx pgx.Tx, id int64, delta int64) (newPool int64, err error)
	IsGuestTx(ctx context.Context, tx pgx.Tx, eventID, userID int64) (bool, error)
	ListGuestIDsTx(ctx context.Context, tx pgx.Tx, eventID int64) ([]int64, error)
	CreateAwardTx(ctx context.Context, tx pgx.Tx, a *models.EventAward) error
	GetAwardForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.EventAward, error)
	DeleteAwardTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// UserDirectory resolves guests.
type UserDirectory interface {
	GetByUtoridTx(ctx context.Context, tx pgx.Tx, utorid string) (*models.User, error)
	GetByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*models.User, error)
}

// AccountStore resolves guest accounts.
type AccountStore interface {
	GetByOwnerTx(ctx context.Context, tx pgx.Tx, ownerID int64) (*models.LoyaltyAccount, error)
}

// TransactionStore persists and deletes award transactions.
type TransactionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
	DeleteTx(ctx context.Context, tx pgx.Tx, id int64) error
}

type Service struct {
	db           DB
	events       EventStore
	users        UserDirectory
	accounts     AccountStore
	transactions TransactionStore
	ledger       ledger.Service
	logger       *slog.Logger

	now func() time.Time
}

func NewService(db DB, events EventStore, users UserDirectory, accounts AccountStore, transactions TransactionStore, ledgerSvc ledger.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:           db,
		events:       events,
		users:        users,
		accounts:     accounts,
		transactions: transactions,
		ledger:       ledgerSvc,
		logger:       logger,
		now:          time.Now,
	}
}

// AwardPoints grants points from the event's pool to one RSVP'd guest,
// identified by utorid.
func (s *Service) AwardPoints(ctx context.Context, eventID int64, guestUtorid string, points int64, remark string, actorID int64) (*models.Transaction, error) {
	if points <= 0 {
		return nil, apperr.InvalidState("award amount must be positive")
	}

	var t *models.Transaction
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		ev, err := s.events.GetByIDForUpdate(ctx, tx, eventID)
		if err != nil {
			return err
		}
		guest, err := s.users.GetByUtoridTx(ctx, tx, guestUtorid)
		if err != nil {
			return err
		}
		if points > ev.PointsPool {
			return apperr.InsufficientBalance("event pool has %d points, requested %d", ev.PointsPool, points)
		}
		t, err = s.awardOne(ctx, tx, ev, guest.ID, points, remark, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("event points awarded", "transaction_id", t.ID, "event_id", eventID, "guest", guestUtorid, "points", points)
	return t, nil
}

// AwardAll grants pointsEach to every RSVP'd guest of the event. The total
// is checked against the pool before any guest is awarded, and all awards
// share one database transaction: either every guest is credited or none is.
func (s *Service) AwardAll(ctx context.Context, eventID int64, pointsEach int64, remark string, actorID int64) ([]*models.Transaction, error) {
	if pointsEach <= 0 {
		return nil, apperr.InvalidState("award amount must be positive")
	}

	var ts []*models.Transaction
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		ev, err := s.events.GetByIDForUpdate(ctx, tx, eventID)
		if err != nil {
			return err
		}
		guests, err := s.events.ListGuestIDsTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if len(guests) == 0 {
			return apperr.InvalidState("event %d has no guests", eventID)
		}
		if pointsEach*int64(len(guests)) > ev.PointsPool {
			return apperr.InsufficientBalance("event pool has %d points, %d guests need %d",
				ev.PointsPool, len(guests), pointsEach*int64(len(guests)))
		}
		for _, guestID := range guests {
			t, err := s.awardOne(ctx, tx, ev, guestID, pointsEach, remark, actorID)
			if err != nil {
				return err
			}
			ts = append(ts, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("event points awarded to all guests", "event_id", eventID, "guests", len(ts), "points_each", pointsEach)
	return ts, nil
}

// awardOne decrements the pool and credits one guest. Caller holds the event
// row lock and runs inside the transaction.
func (s *Service) awardOne(ctx context.Context, tx pgx.Tx, ev *models.Event, guestID, points int64, remark string, actorID int64) (*models.Transaction, error) {
	ok, err := s.events.IsGuestTx(ctx, tx, ev.ID, guestID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidState("user %d is not a guest of event %d", guestID, ev.ID)
	}
	acct, err := s.accounts.GetByOwnerTx(ctx, tx, guestID)
	if err != nil {
		return nil, err
	}
	if _, err := s.events.AddToPoolTx(ctx, tx, ev.ID, -points); err != nil {
		return nil, err
	}

	awardID := uuid.New()
	t := &models.Transaction{
		Type:             models.TxEventAward,
		Status:           models.TxStatusPosted,
		AccountID:        acct.ID,
		PointsCalculated: points,
		PointsPosted:     points,
		EventID:          &ev.ID,
		AwardID:          &awardID,
		CreatedBy:        actorID,
		Notes:            remark,
	}
	if err := s.transactions.CreateTx(ctx, tx, t); err != nil {
		return nil, err
	}
	award := &models.EventAward{
		ID:            awardID,
		EventID:       ev.ID,
		GuestID:       guestID,
		Points:        points,
		TransactionID: t.ID,
	}
	if err := s.events.CreateAwardTx(ctx, tx, award); err != nil {
		return nil, err
	}
	if _, err := s.ledger.ApplyDelta(ctx, tx, acct.ID, points, models.EntryEarnEvent, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

// ReverseAward undoes one award: the guest's ledger entry is deleted and
// their balance debited, the points return to the event's pool, and the
// award and its transaction are removed. Used when a guest leaves an event.
func (s *Service) ReverseAward(ctx context.Context, awardID uuid.UUID) error {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		award, err := s.events.GetAwardForUpdate(ctx, tx, awardID)
		if err != nil {
			return err
		}
		if _, err := s.events.GetByIDForUpdate(ctx, tx, award.EventID); err != nil {
			return err
		}
		acct, err := s.accounts.GetByOwnerTx(ctx, tx, award.GuestID)
		if err != nil {
			return err
		}

		if err := s.events.DeleteAwardTx(ctx, tx, award.ID); err != nil {
			return err
		}
		if _, err := s.ledger.Reverse(ctx, tx, acct.ID, award.TransactionID); err != nil {
			return err
		}
		if _, err := s.events.AddToPoolTx(ctx, tx, award.EventID, award.Points); err != nil {
			return err
		}
		return s.transactions.DeleteTx(ctx, tx, award.TransactionID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("event award reversed", "award_id", awardID)
	return nil
}

// PointsInfo summarizes an event's budget.
type PointsInfo struct {
	EventID   int64 `json:"event_id"`
	Allocated int64 `json:"allocated"`
	Remaining int64 `json:"remaining"`
	Awarded   int64 `json:"awarded"`
}

// GetPointsInfo returns the event's allocated, remaining and awarded points.
func (s *Service) GetPointsInfo(ctx context.Context, eventID int64) (*PointsInfo, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &PointsInfo{
		EventID:   ev.ID,
		Allocated: ev.PointsAllocated,
		Remaining: ev.PointsPool,
		Awarded:   ev.PointsAllocated - ev.PointsPool,
	}, nil
}

func (s *Service) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
