package repository

import (
	"context"
	"errors"

	"github.com/Mexidense/ppd/internal/model"
)

// ErrDuplicateTransaction is returned by Create when the transaction id is already in the ledger.
var ErrDuplicateTransaction = errors.New("transaction already recorded")

// PurchaseRepository is the append-only purchase ledger.
// Uniqueness of transaction_id is enforced by the database, not by the caller.
type PurchaseRepository interface {
	// Create inserts a purchase row. A unique violation on transaction_id yields ErrDuplicateTransaction.
	Create(ctx context.Context, p *model.Purchase) (*model.Purchase, error)

	// FindByTransactionID returns the row recorded for txid, or sql.ErrNoRows.
	FindByTransactionID(ctx context.Context, txid string) (*model.Purchase, error)

	// Exists reports whether buyer has at least one purchase of documentID.
	Exists(ctx context.Context, buyer, documentID string) (bool, error)

	// ListByBuyer returns the buyer's purchases joined with their documents, newest first.
	ListByBuyer(ctx context.Context, buyer string) ([]model.Purchase, error)
}
