package engine

import (
	"context"
	"testing"

	"github.com/campuspoints/backend/internal/apperr"
	"github.com/campuspoints/backend/internal/models"
)

func TestToggleSuspiciousWithdrawsAndRestoresExactlyOnce(t *testing.T) {
	w := newWorld()
	w.addUser(1, "alice1", true, false, 0)
	w.addUser(9, "cash9", true, false, 0)

	purchase, err := w.eng.CreatePurchase(context.Background(), "alice1", 1000, nil, "", 9)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if got := w.accounts.balance(1); got != 40 {
		t.Fatalf("balance = %d, want 40", got)
	}

	held, err := w.eng.ToggleSuspicious(context.Background(), purchase.ID, true)
	if err != nil {
		t.Fatalf("toggle true: %v", err)
	}
	if held.Status != models.TxStatusPendingVerification || held.PointsPosted != 0 {
		t.Fatalf("got status=%s posted=%d, want pending/0", held.Status, held.PointsPosted)
	}
	if got := w.accounts.balance(1); got != 0 {
		t.Fatalf("balance after hold = %d, want 0", got)
	}
	if entries := w.entries.forAccount(1); len(entries) != 0 {
		t.Fatalf("hold must remove the posting entry, found %d", len(entries))
	}
	w.checkConservation(t)

	cleared, err := w.eng.ToggleSuspicious(context.Background(), purchase.ID, false)
	if err != nil {
		t.Fatalf("toggle false: %v", err)
	}
	if cleared.Status != models.TxStatusPosted || cleared.PointsPosted != 40 {
		t.Fatalf("got status=%s posted=%d, want posted/40", cleared.Status, cleared.PointsPosted)
	}
	if got := w.accounts.balance(1); got != 40 {
		t.Fatalf("balance after verify = %d, want 40 (credited exactly once)", got)
	}
	w.checkConservation(t)
}

func TestToggleSuspiciousRepeatedVerifyIsNoOp(t *testing.T) {
	w := newWorld()
	w.addUser(1, "alice1", true, false, 0)
	w.addUser(9, "cash9", true, false, 0)

	purchase, err := w.eng.CreatePurchase(context.Background(), "alice1", 1000, nil, "", 9)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	// Already posted; verifying again must not double-credit.
	again, err := w.eng.ToggleSuspicious(context.Background(), purchase.ID, false)
	if err != nil {
		t.Fatalf("toggle false on posted: %v", err)
	}
	if again.PointsPosted != 40 {
		t.Fatalf("posted = %d, want 40", again.PointsPosted)
	}
	if got := w.accounts.balance(1); got != 40 {
		t.Fatalf("balance = %d, want 40 (no double credit)", got)
	}
	if entries := w.entries.forAccount(1); len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}

	// Same for repeating the hold while already pending.
	if _, err := w.eng.ToggleSuspicious(context.Background(), purchase.ID, true); err != nil {
		t.Fatalf("toggle true: %v", err)
	}
	if _, err := w.eng.ToggleSuspicious(context.Background(), purchase.ID, true); err != nil {
		t.Fatalf("repeat toggle true: %v", err)
	}
	if got := w.accounts.balance(1); got != 0 {
		t.Fatalf("balance = %d, want 0 (no double debit)", got)
	}
	w.checkConservation(t)
}

func TestToggleSuspiciousHeldPurchaseStartsPending(t *testing.T) {
	w := newWorld()
	w.addUser(1, "alice1", true, false, 0)
	w.addUser(9, "cash9", true, true, 0)

	held, err := w.eng.CreatePurchase(context.Background(), "alice1", 1000, nil, "", 9)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	cleared, err := w.eng.ToggleSuspicious(context.Background(), held.ID, false)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if cleared.Status != models.TxStatusPosted || cleared.PointsPosted != cleared.PointsCalculated {
		t.Fatalf("got status=%s posted=%d calculated=%d", cleared.Status, cleared.PointsPosted, cleared.PointsCalculated)
	}
	if got := w.accounts.balance(1); got != cleared.PointsCalculated {
		t.Fatalf("balance = %d, want %d", got, cleared.PointsCalculated)
	}
	w.checkConservation(t)
}

func TestToggleSuspiciousRejectsNonPurchase(t *testing.T) {
	w := newWorld()
	w.addUser(1, "alice1", true, false, 100)

	req, err := w.eng.CreateRedemptionRequest(context.Background(), "alice1", 10, "", 1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	_, err = w.eng.ToggleSuspicious(context.Background(), req.ID, true)
	if !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("err = %v, want InvalidState", err)
	}
}
