package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Mexidense/ppd/internal/model"
	"github.com/Mexidense/ppd/internal/repository"
)

// uniqueViolation is the SQLSTATE raised for a UNIQUE constraint failure.
const uniqueViolation = "23505"

// PurchasePostgres is a PostgreSQL implementation of repository.PurchaseRepository.
type PurchasePostgres struct {
	db *sql.DB
}

// NewPurchasePostgres creates a new PurchasePostgres repository.
func NewPurchasePostgres(db *sql.DB) *PurchasePostgres {
	return &PurchasePostgres{db: db}
}

var _ repository.PurchaseRepository = (*PurchasePostgres)(nil)

// Create inserts a purchase row. The purchases.transaction_id UNIQUE constraint decides
// which of several concurrent inserts for the same payment wins.
func (r *PurchasePostgres) Create(ctx context.Context, p *model.Purchase) (*model.Purchase, error) {
	const q = `
		INSERT INTO purchases (id, address_buyer, doc_id, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, address_buyer, doc_id, transaction_id, created_at
	`
	var out model.Purchase
	err := r.db.QueryRowContext(ctx, q, p.ID, p.BuyerAddress, p.DocumentID, p.TransactionID, p.CreatedAt).
		Scan(&out.ID, &out.BuyerAddress, &out.DocumentID, &out.TransactionID, &out.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicateTransaction
		}
		return nil, err
	}
	return &out, nil
}

// FindByTransactionID fetches the purchase recorded for a transaction id.
func (r *PurchasePostgres) FindByTransactionID(ctx context.Context, txid string) (*model.Purchase, error) {
	const q = `
		SELECT id, address_buyer, doc_id, transaction_id, created_at
		FROM purchases
		WHERE transaction_id = $1
	`
	var p model.Purchase
	if err := r.db.QueryRowContext(ctx, q, txid).
		Scan(&p.ID, &p.BuyerAddress, &p.DocumentID, &p.TransactionID, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Exists reports whether any purchase row links buyer to documentID.
func (r *PurchasePostgres) Exists(ctx context.Context, buyer, documentID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM purchases WHERE address_buyer = $1 AND doc_id = $2)`
	var ok bool
	if err := r.db.QueryRowContext(ctx, q, buyer, documentID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// ListByBuyer returns purchases with their documents. Ledger rows outlive deleted
// documents, so the join is LEFT and Document stays nil for those.
func (r *PurchasePostgres) ListByBuyer(ctx context.Context, buyer string) ([]model.Purchase, error) {
	const q = `
		SELECT p.id, p.address_buyer, p.doc_id, p.transaction_id, p.created_at,
		       d.id, d.title, d.cost, d.address_owner, d.content_hash, d.mime_type, d.size, d.storage_path, d.created_at, d.updated_at
		FROM purchases p
		LEFT JOIN documents d ON d.id = p.doc_id
		WHERE p.address_buyer = $1
		ORDER BY p.created_at DESC, p.id DESC
	`
	rows, err := r.db.QueryContext(ctx, q, buyer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Purchase, 0)
	for rows.Next() {
		var (
			p       model.Purchase
			docID   sql.NullString
			title   sql.NullString
			cost    sql.NullInt64
			owner   sql.NullString
			hash    sql.NullString
			mime    sql.NullString
			size    sql.NullInt64
			path    sql.NullString
			created sql.NullTime
			updated sql.NullTime
		)
		if err := rows.Scan(
			&p.ID, &p.BuyerAddress, &p.DocumentID, &p.TransactionID, &p.CreatedAt,
			&docID, &title, &cost, &owner, &hash, &mime, &size, &path, &created, &updated,
		); err != nil {
			return nil, err
		}
		if docID.Valid {
			p.Document = &model.Document{
				ID:           docID.String,
				Title:        title.String,
				Cost:         cost.Int64,
				OwnerAddress: owner.String,
				ContentHash:  hash.String,
				MimeType:     mime.String,
				Size:         size.Int64,
				StoragePath:  path.String,
				CreatedAt:    created.Time,
				UpdatedAt:    updated.Time,
			}
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
