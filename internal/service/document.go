package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Mexidense/ppd/internal/logging"
	"github.com/Mexidense/ppd/internal/model"
	"github.com/Mexidense/ppd/internal/payment"
	"github.com/Mexidense/ppd/internal/repository"
	"github.com/Mexidense/ppd/internal/storage"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// UploadInput is a document being published.
type UploadInput struct {
	Reader       io.Reader
	Filename     string
	ContentType  string
	Size         int64
	Title        string
	Cost         int64
	OwnerAddress string
}

// ListQuery filters and paginates documents.
type ListQuery struct {
	Limit  int
	Offset int
	Owner  string
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items  []model.Document `json:"data"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// DocumentService defines the use cases of the document store.
type DocumentService interface {
	// Upload streams the content to object storage while hashing it, then saves the
	// metadata. The stored object is removed again when the metadata insert fails.
	Upload(ctx context.Context, in UploadInput) (*model.Document, error)

	// List returns documents using limit/offset, optionally for one owner.
	List(ctx context.Context, q ListQuery) (*DocumentListResult, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// GetByHash returns the document published with the given content hash.
	GetByHash(ctx context.Context, hash string) (*model.Document, error)

	// UpdateCost changes the price. Purchases verified afterwards use the new price.
	UpdateCost(ctx context.Context, id string, cost int64) (*model.Document, error)

	// Delete removes the metadata row, then makes a best-effort attempt at the blob.
	Delete(ctx context.Context, id string) error
}

type documentService struct {
	store  storage.Storage
	repo   repository.DocumentRepository
	logger *slog.Logger
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, logger *slog.Logger) DocumentService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &documentService{store: store, repo: repo, logger: logger.With("component", "document_service")}
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*model.Document, error) {
	if in.Reader == nil {
		return nil, ErrReaderNil
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "is required"}
	}
	if in.Cost < 0 {
		return nil, &ValidationError{Field: "cost", Message: "must be a non-negative number of satoshis"}
	}
	owner := payment.CanonicalAddress(in.OwnerAddress)
	if owner == "" {
		return nil, &ValidationError{Field: "address_owner", Message: "is required"}
	}

	ext := strings.ToLower(filepath.Ext(in.Filename))
	id := uuid.NewString()
	key := path.Join("documents", id+ext)

	hash, body, err := contentHash(in.Reader)
	if err != nil {
		return nil, fmt.Errorf("hash content: %w", err)
	}
	objInfo, err := s.store.Put(ctx, key, body, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: in.ContentType,
		Metadata: map[string]string{
			"original-filename": in.Filename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	size := objInfo.Size
	if size <= 0 {
		size = in.Size
	}
	now := time.Now().UTC()
	doc := &model.Document{
		ID:           id,
		Title:        title,
		Cost:         in.Cost,
		OwnerAddress: owner,
		ContentHash:  hash(),
		MimeType:     in.ContentType,
		Size:         size,
		StoragePath:  objInfo.Key,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	s.logger.Info("document_uploaded",
		"document_id", stored.ID,
		"size", stored.Size,
		"cost", stored.Cost,
		"hash", stored.ContentHash,
	)
	return stored, nil
}

func (s *documentService) List(ctx context.Context, q ListQuery) (*DocumentListResult, error) {
	if q.Limit <= 0 {
		q.Limit = defaultPageLimit
	}
	if q.Limit > maxPageLimit {
		q.Limit = maxPageLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{
		Limit:  q.Limit,
		Offset: q.Offset,
		Owner:  payment.CanonicalAddress(q.Owner),
	})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total, Limit: q.Limit, Offset: q.Offset}, nil
}

func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	return notFound(s.repo.FindByID(ctx, id))
}

func (s *documentService) GetByHash(ctx context.Context, hash string) (*model.Document, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, ErrIDRequired
	}
	return notFound(s.repo.FindByContentHash(ctx, hash))
}

func (s *documentService) UpdateCost(ctx context.Context, id string, cost int64) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if cost < 0 {
		return nil, &ValidationError{Field: "cost", Message: "must be a non-negative number of satoshis"}
	}
	doc, err := notFound(s.repo.UpdateCost(ctx, id, cost))
	if err != nil {
		return nil, err
	}
	s.logger.Info("document_cost_updated", "document_id", id, "cost", cost)
	return doc, nil
}

// Delete drops the row first so the document stops being sellable even if the blob
// store is unavailable. A failed blob delete is logged and leaves an orphaned object.
func (s *documentService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	doc, err := notFound(s.repo.FindByID(ctx, id))
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document row: %w", err)
	}
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
		s.logger.Warn("blob_delete_failed",
			"document_id", id,
			"storage_path", doc.StoragePath,
			"error", err.Error(),
		)
	}
	return nil
}

// contentHash returns a sha256 getter and the reader to upload. Seekable readers are
// hashed up front and rewound so backends can still seek the body; others are hashed
// while streaming and the getter is valid once the upload has consumed them.
func contentHash(r io.Reader) (func() string, io.Reader, error) {
	h := sha256.New()
	if rs, ok := r.(io.ReadSeeker); ok {
		if _, err := io.Copy(h, rs); err != nil {
			return nil, nil, err
		}
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, nil, err
		}
		sum := hex.EncodeToString(h.Sum(nil))
		return func() string { return sum }, rs, nil
	}
	return func() string { return hex.EncodeToString(h.Sum(nil)) }, io.TeeReader(r, h), nil
}

func notFound(doc *model.Document, err error) (*model.Document, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}
