package engine

import (
	"context"

	"github.com/campuspoints/backend/internal/models"
)

// GetTransaction returns one transaction by id.
func (e *Engine) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	return e.transactions.GetByID(ctx, id)
}

// ListTransactions returns one page of transactions matching the filter,
// newest first, plus the total match count.
func (e *Engine) ListTransactions(ctx context.Context, f models.TransactionFilter, page, limit int) ([]*models.Transaction, int64, error) {
	return e.transactions.List(ctx, f, page, limit)
}
