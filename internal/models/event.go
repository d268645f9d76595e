package models

import (
	"time"

	"github.com/google/uuid"
)

// Event carries a point budget distributed to RSVP'd guests. PointsPool
// starts at the total allocated for the event, is decremented by every award
// and credited back when an award is reversed, and never goes negative:
// points_pool + sum(event_awards.points) == allocated total, always.
type Event struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	// Capacity nil means unlimited.
	Capacity *int `json:"capacity,omitempty"`
	// PointsAllocated is the total budget granted to the event; PointsPool
	// is what remains to hand out.
	PointsAllocated int64     `json:"points_allocated"`
	PointsPool      int64     `json:"points_pool"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// EventAward records one grant of points from an event's pool to one guest.
// Deleting an award reverses its linked transaction and ledger entry and
// returns the points to the pool.
type EventAward struct {
	ID            uuid.UUID `json:"id"`
	EventID       int64     `json:"event_id"`
	GuestID       int64     `json:"guest_id"`
	Points        int64     `json:"points"`
	TransactionID int64     `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
}
