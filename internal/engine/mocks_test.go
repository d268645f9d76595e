package engine

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campuspoints/backend/internal/apperr"
	"github.com/campuspoints/backend/internal/ledger"
	"github.com/campuspoints/backend/internal/models"
	"github.com/campuspoints/backend/internal/promotion"
)

// ---------------------------------------------------------------------------
// In-memory stores. These implement the engine's repository interfaces (and
// the ledger's) so the real engine, ledger service and promotion engine run
// against them without a database. The pgx.Tx they receive is a no-op.
// ---------------------------------------------------------------------------

// noopTx satisfies pgx.Tx through the embedded nil interface; only Commit
// and Rollback are ever called because the stores ignore the transaction.
type noopTx struct{ pgx.Tx }

func (noopTx) Commit(context.Context) error   { return nil }
func (noopTx) Rollback(context.Context) error { return nil }

type noopDB struct{}

func (noopDB) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

// ---

type memUsers struct {
	byID map[int64]*models.User
}

func (m *memUsers) get(id int64) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByIDTx(_ context.Context, _ pgx.Tx, id int64) (*models.User, error) {
	return m.get(id)
}

func (m *memUsers) GetByUtoridTx(_ context.Context, _ pgx.Tx, utorid string) (*models.User, error) {
	for _, u := range m.byID {
		if u.Utorid == utorid {
			return m.get(u.ID)
		}
	}
	return nil, apperr.NotFound("user not found")
}

// ---

type memAccounts struct {
	byID map[int64]*models.LoyaltyAccount
	// lockOrder records every GetByIDForUpdate call so tests can assert the
	// transfer lock ordering.
	lockOrder []int64
}

func (m *memAccounts) byOwner(ownerID int64) (*models.LoyaltyAccount, error) {
	for _, a := range m.byID {
		if a.OwnerID == ownerID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("account not found")
}

func (m *memAccounts) GetByOwnerTx(_ context.Context, _ pgx.Tx, ownerID int64) (*models.LoyaltyAccount, error) {
	return m.byOwner(ownerID)
}

func (m *memAccounts) GetByOwnerForUpdate(_ context.Context, _ pgx.Tx, ownerID int64) (*models.LoyaltyAccount, error) {
	return m.byOwner(ownerID)
}

func (m *memAccounts) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id int64) (*models.LoyaltyAccount, error) {
	m.lockOrder = append(m.lockOrder, id)
	a, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("account not found")
	}
	cp := *a
	return &cp, nil
}

func (m *memAccounts) AddToBalanceTx(_ context.Context, _ pgx.Tx, id int64, delta int64) (int64, error) {
	a, ok := m.byID[id]
	if !ok {
		return 0, apperr.NotFound("account not found")
	}
	if a.CachedBalance+delta < 0 {
		return 0, apperr.InsufficientBalance("balance would go negative")
	}
	a.CachedBalance += delta
	return a.CachedBalance, nil
}

func (m *memAccounts) balance(id int64) int64 { return m.byID[id].CachedBalance }

// ---

type memEntries struct {
	entries []*models.LedgerEntry
}

func (m *memEntries) CreateTx(_ context.Context, _ pgx.Tx, e *models.LedgerEntry) error {
	cp := *e
	cp.CreatedAt = time.Now()
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memEntries) DeleteByTransactionTx(_ context.Context, _ pgx.Tx, transactionID, accountID int64) (int64, error) {
	var kept []*models.LedgerEntry
	var sum int64
	for _, e := range m.entries {
		if e.TransactionID == transactionID && e.AccountID == accountID {
			sum += e.PointsDelta
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return sum, nil
}

func (m *memEntries) forAccount(accountID int64) []*models.LedgerEntry {
	var out []*models.LedgerEntry
	for _, e := range m.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out
}

// ---

type memTransactions struct {
	seq  int64
	byID map[int64]*models.Transaction
}

func (m *memTransactions) CreateTx(_ context.Context, _ pgx.Tx, t *models.Transaction) error {
	m.seq++
	t.ID = m.seq
	t.CreatedAt = time.Now()
	cp := *t
	m.byID[t.ID] = &cp
	return nil
}

func (m *memTransactions) get(id int64) (*models.Transaction, error) {
	t, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("transaction not found")
	}
	cp := *t
	return &cp, nil
}

func (m *memTransactions) GetByID(_ context.Context, id int64) (*models.Transaction, error) {
	return m.get(id)
}

func (m *memTransactions) GetByIDTx(_ context.Context, _ pgx.Tx, id int64) (*models.Transaction, error) {
	return m.get(id)
}

func (m *memTransactions) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id int64) (*models.Transaction, error) {
	return m.get(id)
}

func (m *memTransactions) SetDecisionTx(_ context.Context, _ pgx.Tx, id int64, status string, pointsPosted int64, processedBy *int64, decidedAt *time.Time) error {
	t, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("transaction not found")
	}
	t.Status = status
	t.PointsPosted = pointsPosted
	if processedBy != nil {
		t.ProcessedBy = processedBy
	}
	t.DecidedAt = decidedAt
	return nil
}

func (m *memTransactions) DeleteTx(_ context.Context, _ pgx.Tx, id int64) error {
	delete(m.byID, id)
	return nil
}

func (m *memTransactions) List(_ context.Context, f models.TransactionFilter, page, limit int) ([]*models.Transaction, int64, error) {
	var out []*models.Transaction
	for _, t := range m.byID {
		if f.AccountID != 0 && t.AccountID != f.AccountID {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

// ---

type memPromos struct {
	byID map[int64]*models.Promotion
	used map[[2]int64]time.Time
}

func (m *memPromos) GetByIDTx(_ context.Context, _ pgx.Tx, id int64) (*models.Promotion, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("promotion not found")
	}
	cp := *p
	return &cp, nil
}

func (m *memPromos) ReserveRedemptionTx(_ context.Context, _ pgx.Tx, promotionID, userID int64, usedAt time.Time) (bool, error) {
	key := [2]int64{promotionID, userID}
	if _, ok := m.used[key]; ok {
		return false, nil
	}
	m.used[key] = usedAt
	return true, nil
}

// ---------------------------------------------------------------------------
// World: the real engine wired over the in-memory stores.
// ---------------------------------------------------------------------------

type world struct {
	eng      *Engine
	users    *memUsers
	accounts *memAccounts
	entries  *memEntries
	txs      *memTransactions
	promos   *memPromos
	seeds    map[int64]int64
}

func newWorld() *world {
	w := &world{
		seeds:    make(map[int64]int64),
		users:    &memUsers{byID: make(map[int64]*models.User)},
		accounts: &memAccounts{byID: make(map[int64]*models.LoyaltyAccount)},
		entries:  &memEntries{},
		txs:      &memTransactions{byID: make(map[int64]*models.Transaction)},
		promos:   &memPromos{byID: make(map[int64]*models.Promotion), used: make(map[[2]int64]time.Time)},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledgerSvc := ledger.NewService(w.accounts, w.entries)
	promoEng := promotion.NewEngine(w.promos)
	w.eng = New(noopDB{}, w.users, w.accounts, w.txs, ledgerSvc, promoEng, logger)
	return w
}

// addUser seeds a user and an account with the given balance; the account id
// equals the user id for readability.
func (w *world) addUser(id int64, utorid string, verified, suspicious bool, balance int64) {
	w.users.byID[id] = &models.User{ID: id, Utorid: utorid, Role: models.RoleRegular, Verified: verified, Suspicious: suspicious}
	w.accounts.byID[id] = &models.LoyaltyAccount{ID: id, OwnerID: id, CachedBalance: balance}
	w.seeds[id] = balance
}

// checkConservation asserts that every account's cached balance equals the
// replayed sum of its ledger entries.
func (w *world) checkConservation(t testingT) {
	t.Helper()
	for id, a := range w.accounts.byID {
		var sum int64
		for _, e := range w.entries.forAccount(id) {
			sum += e.PointsDelta
		}
		// Seeded balances have no backing entries; compare drift instead.
		if got := a.CachedBalance - w.seedBalance(id); got != sum {
			t.Fatalf("account %d: cached balance drifted %d from seed, ledger says %d", id, got, sum)
		}
	}
}

// seedBalance is what the account held before any engine operation ran.
func (w *world) seedBalance(id int64) int64 {
	if b, ok := w.seeds[id]; ok {
		return b
	}
	return 0
}

type testingT interface {
	Helper()
	Fatalf(format string, args ...any)
}
