package repository

import (
	"context"

	"github.com/Mexidense/ppd/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic here, strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID, or sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// FindByContentHash returns the earliest published document with the given content hash, or sql.ErrNoRows.
	FindByContentHash(ctx context.Context, hash string) (*model.Document, error)

	// List returns a paginated list of documents and total rows count for the given filter.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)

	// UpdateCost sets a new price. Returns sql.ErrNoRows if the document does not exist.
	UpdateCost(ctx context.Context, id string, cost int64) (*model.Document, error)

	// Delete removes a document by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}

// PageQuery holds limit/offset pagination parameters and an optional owner filter.
type PageQuery struct {
	Limit  int
	Offset int
	Owner  string
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
