package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/Mexidense/ppd/internal/model"
	"github.com/Mexidense/ppd/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, title, cost, address_owner, content_hash, mime_type, size, storage_path, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var d model.Document
	if err := row.Scan(
		&d.ID,
		&d.Title,
		&d.Cost,
		&d.OwnerAddress,
		&d.ContentHash,
		&d.MimeType,
		&d.Size,
		&d.StoragePath,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, title, cost, address_owner, content_hash, mime_type, size, storage_path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Title,
		doc.Cost,
		doc.OwnerAddress,
		doc.ContentHash,
		doc.MimeType,
		doc.Size,
		doc.StoragePath,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// FindByContentHash fetches the first document published with the given content hash.
func (r *DocumentPostgres) FindByContentHash(ctx context.Context, hash string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE content_hash = $1 ORDER BY created_at ASC, id ASC LIMIT 1`
	return scanDocument(r.db.QueryRowContext(ctx, q, strings.ToLower(hash)))
}

// List returns documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	where := ""
	args := []any{}
	if pq.Owner != "" {
		where = " WHERE address_owner = $1"
		args = append(args, pq.Owner)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	qList := `SELECT ` + documentColumns + ` FROM documents` + where + ` ORDER BY created_at DESC, id DESC`
	if pq.Owner != "" {
		qList += ` LIMIT $2 OFFSET $3`
	} else {
		qList += ` LIMIT $1 OFFSET $2`
	}
	rows, err := r.db.QueryContext(ctx, qList, append(args, pq.Limit, pq.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// UpdateCost changes the price of a document and returns the updated row.
func (r *DocumentPostgres) UpdateCost(ctx context.Context, id string, cost int64) (*model.Document, error) {
	const q = `
		UPDATE documents SET cost = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + documentColumns
	return scanDocument(r.db.QueryRowContext(ctx, q, id, cost))
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
