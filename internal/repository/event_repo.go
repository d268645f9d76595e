package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campuspoints/backend/internal/apperr"
	"github.com/campuspoints/backend/internal/models"
)

type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

const eventColumns = `id, name, capacity, points_allocated, points_pool, starts_at, ends_at, created_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Name, &e.Capacity, &e.PointsAllocated, &e.PointsPool, &e.StartsAt, &e.EndsAt, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("event not found")
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EventRepo) Create(ctx context.Context, e *models.Event) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO events (name, capacity, points_allocated, points_pool, starts_at, ends_at)
		VALUES ($1, $2, $3, $3, $4, $5)
		RETURNING id, points_pool, created_at
	`, e.Name, e.Capacity, e.PointsAllocated, e.StartsAt, e.EndsAt).Scan(&e.ID, &e.PointsPool, &e.CreatedAt)
}

func (r *EventRepo) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// GetByIDForUpdate locks the event row, serializing pool mutations. Call
// within a database transaction.
func (r *EventRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*models.Event, error) {
	return scanEvent(tx.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id))
}

// AddToPoolTx applies delta to points_pool, refusing any update that would
// leave the pool negative.
func (r *EventRepo) AddToPoolTx(ctx context.Context, tx pgx.Tx, id int64, delta int64) (int64, error) {
	var pool int64
	err := tx.QueryRow(ctx, `
		UPDATE events SET points_pool = points_pool + $1
		WHERE id = $2 AND points_pool + $1 >= 0
		RETURNING points_pool
	`, delta, id).Scan(&pool)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists); err != nil {
			return 0, err
		}
		if !exists {
			return 0, apperr.NotFound("event not found")
		}
		return 0, apperr.InsufficientBalance("event points pool exhausted")
	}
	if err != nil {
		return 0, err
	}
	return pool, nil
}

// AddGuest RSVPs a user to an event.
func (r *EventRepo) AddGuest(ctx context.Context, eventID, userID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_guests (event_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, eventID, userID)
	return err
}

// IsGuestTx reports whether userID is an RSVP'd attendee of eventID.
func (r *EventRepo) IsGuestTx(ctx context.Context, tx pgx.Tx, eventID, userID int64) (bool, error) {
	var ok bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM event_guests WHERE event_id = $1 AND user_id = $2)
	`, eventID, userID).Scan(&ok)
	return ok, err
}

// ListGuestIDsTx returns the RSVP'd guest user ids for an event, ascending.
func (r *EventRepo) ListGuestIDsTx(ctx context.Context, tx pgx.Tx, eventID int64) ([]int64, error) {
	rows, err := tx.Query(ctx, `SELECT user_id FROM event_guests WHERE event_id = $1 ORDER BY user_id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateAwardTx inserts an event award inside the given transaction.
func (r *EventRepo) CreateAwardTx(ctx context.Context, tx pgx.Tx, a *models.EventAward) error {
	return tx.QueryRow(ctx, `
		INSERT INTO event_awards (id, event_id, guest_id, points, transaction_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, a.ID, a.EventID, a.GuestID, a.Points, a.TransactionID).Scan(&a.CreatedAt)
}

func (r *EventRepo) GetAward(ctx context.Context, id uuid.UUID) (*models.EventAward, error) {
	return scanAward(r.pool.QueryRow(ctx, `
		SELECT id, event_id, guest_id, points, transaction_id, created_at
		FROM event_awards WHERE id = $1
	`, id))
}

// GetAwardForUpdate locks the award row so a reversal cannot race another.
func (r *EventRepo) GetAwardForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.EventAward, error) {
	return scanAward(tx.QueryRow(ctx, `
		SELECT id, event_id, guest_id, points, transaction_id, created_at
		FROM event_awards WHERE id = $1 FOR UPDATE
	`, id))
}

func scanAward(row pgx.Row) (*models.EventAward, error) {
	var a models.EventAward
	err := row.Scan(&a.ID, &a.EventID, &a.GuestID, &a.Points, &a.TransactionID, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("event award not found")
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteAwardTx removes an award row inside the given transaction.
func (r *EventRepo) DeleteAwardTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM event_awards WHERE id = $1`, id)
	return err
}
