package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Mexidense/ppd/internal/model"
	"github.com/Mexidense/ppd/internal/repository"
	repoMocks "github.com/Mexidense/ppd/internal/repository/mocks"
	"github.com/Mexidense/ppd/internal/storage"
	storeMocks "github.com/Mexidense/ppd/internal/storage/mocks"
)

// sha256("hello world")
const helloHash = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		in         UploadInput
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
		wantErrMsg string
	}{
		{
			name: "happy path",
			in:   UploadInput{Filename: "Paper.PDF", ContentType: "application/pdf", Size: 11, Title: " Paper ", Cost: 500, OwnerAddress: "owner"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "documents/") && strings.HasSuffix(key, ".pdf")
				}), mock.Anything, storage.PutObjectOptions{
					Size:        11,
					ContentType: "application/pdf",
					Metadata:    map[string]string{"original-filename": "Paper.PDF"},
				}).Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
					n, _ := io.Copy(io.Discard, r)
					return storage.ObjectInfo{Key: key, Size: n, ContentType: opt.ContentType}
				}, nil)

				mRepo.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
					return doc.Title == "Paper" &&
						doc.Cost == 500 &&
						doc.OwnerAddress == "owner" &&
						doc.ContentHash == helloHash &&
						doc.Size == 11 &&
						strings.HasPrefix(doc.StoragePath, "documents/"+doc.ID)
				})).Return(&model.Document{ID: "gen-id", ContentHash: helloHash}, nil)
			},
		},
		{
			name:    "validation error - nil reader",
			in:      UploadInput{Filename: "test.txt"},
			wantErr: ErrReaderNil,
		},
		{
			name:       "validation error - title",
			in:         UploadInput{Filename: "test.txt", OwnerAddress: "owner"},
			wantErrMsg: "title: is required",
		},
		{
			name:       "validation error - negative cost",
			in:         UploadInput{Filename: "test.txt", Title: "t", Cost: -1, OwnerAddress: "owner"},
			wantErrMsg: "cost:",
		},
		{
			name:       "validation error - owner",
			in:         UploadInput{Filename: "test.txt", Title: "t"},
			wantErrMsg: "address_owner: is required",
		},
		{
			name: "storage error",
			in:   UploadInput{Filename: "test.txt", Size: 5, Title: "t", OwnerAddress: "owner"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
			},
			wantErrMsg: "upload to storage: storage fail",
		},
		{
			name: "repository error with successful rollback",
			in:   UploadInput{Filename: "test.txt", Size: 5, Title: "t", OwnerAddress: "owner"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				mRepo.On("Create", ctx, mock.Anything).
					Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, mock.Anything).Return(nil)
			},
			wantErrMsg: "db save failed: db fail",
		},
		{
			name: "repository error with failed rollback",
			in:   UploadInput{Filename: "test.txt", Size: 5, Title: "t", OwnerAddress: "owner"},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				mRepo.On("Create", ctx, mock.Anything).
					Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, mock.Anything).Return(errors.New("delete fail"))
			},
			wantErrMsg: "rollback delete failed: delete fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewDocumentService(mStore, mRepo, nil)

			if tt.setupMocks != nil {
				tt.setupMocks(mStore, mRepo)
			}
			if tt.wantErr != ErrReaderNil {
				tt.in.Reader = strings.NewReader("hello world")
			}

			doc, err := svc.Upload(ctx, tt.in)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, doc)
			case tt.wantErrMsg != "":
				assert.ErrorContains(t, err, tt.wantErrMsg)
				assert.Nil(t, doc)
			default:
				assert.NoError(t, err)
				assert.Equal(t, "gen-id", doc.ID)
			}
			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Upload_StreamingReaderHashedInFlight(t *testing.T) {
	ctx := context.Background()
	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockDocumentRepository)
	svc := NewDocumentService(mStore, mRepo, nil)

	mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
			n, _ := io.Copy(io.Discard, r)
			return storage.ObjectInfo{Key: key, Size: n}
		}, nil)
	mRepo.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
		return doc.ContentHash == helloHash
	})).Return(&model.Document{ID: "ok"}, nil)

	// io.MultiReader hides the Seeker.
	_, err := svc.Upload(ctx, UploadInput{
		Reader:       io.MultiReader(strings.NewReader("hello "), strings.NewReader("world")),
		Filename:     "a.txt",
		Title:        "a",
		OwnerAddress: "owner",
		Size:         -1,
	})

	require.NoError(t, err)
	mRepo.AssertExpectations(t)
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockDocumentRepository)
	svc := NewDocumentService(nil, mRepo, nil)

	t.Run("defaults and clamps", func(t *testing.T) {
		mRepo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
			Return(&repository.PageResult[model.Document]{Items: []model.Document{{ID: "1"}}, Total: 1}, nil).Once()

		res, err := svc.List(ctx, ListQuery{Limit: 0, Offset: -5})

		assert.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		assert.Equal(t, 10, res.Limit)
	})

	t.Run("owner filter and max limit", func(t *testing.T) {
		mRepo.On("List", ctx, repository.PageQuery{Limit: 100, Offset: 3, Owner: "alice"}).
			Return(&repository.PageResult[model.Document]{Items: []model.Document{}}, nil).Once()

		res, err := svc.List(ctx, ListQuery{Limit: 1000, Offset: 3, Owner: " alice "})

		assert.NoError(t, err)
		assert.Equal(t, 100, res.Limit)
	})

	t.Run("repository error", func(t *testing.T) {
		mRepo.On("List", ctx, mock.Anything).Return(nil, errors.New("db error")).Once()

		res, err := svc.List(ctx, ListQuery{})

		assert.Error(t, err)
		assert.Nil(t, res)
	})
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockDocumentRepository)
	svc := NewDocumentService(nil, mRepo, nil)

	mRepo.On("FindByID", ctx, "exists").Return(&model.Document{ID: "exists"}, nil)
	mRepo.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)
	mRepo.On("FindByID", ctx, "broken").Return(nil, errors.New("db error"))

	doc, err := svc.Get(ctx, "exists")
	assert.NoError(t, err)
	assert.Equal(t, "exists", doc.ID)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, "broken")
	assert.EqualError(t, err, "db error")

	_, err = svc.Get(ctx, "")
	assert.ErrorIs(t, err, ErrIDRequired)
}

func TestDocumentService_GetByHash(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockDocumentRepository)
	svc := NewDocumentService(nil, mRepo, nil)

	mRepo.On("FindByContentHash", ctx, helloHash).Return(&model.Document{ID: "1"}, nil)
	mRepo.On("FindByContentHash", ctx, "nope").Return(nil, sql.ErrNoRows)

	doc, err := svc.GetByHash(ctx, " "+helloHash+" ")
	assert.NoError(t, err)
	assert.Equal(t, "1", doc.ID)

	_, err = svc.GetByHash(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetByHash(ctx, "")
	assert.ErrorIs(t, err, ErrIDRequired)
}

func TestDocumentService_UpdateCost(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockDocumentRepository)
	svc := NewDocumentService(nil, mRepo, nil)

	mRepo.On("UpdateCost", ctx, "1", int64(800)).Return(&model.Document{ID: "1", Cost: 800}, nil)
	mRepo.On("UpdateCost", ctx, "missing", int64(1)).Return(nil, sql.ErrNoRows)

	doc, err := svc.UpdateCost(ctx, "1", 800)
	assert.NoError(t, err)
	assert.Equal(t, int64(800), doc.Cost)

	_, err = svc.UpdateCost(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.UpdateCost(ctx, "1", -1)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Equal(t, "cost", vErr.Field)
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("row first, then blob", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo, nil)

		var order []string
		mRepo.On("FindByID", ctx, "1").Return(&model.Document{ID: "1", StoragePath: "documents/1.pdf"}, nil)
		mRepo.On("Delete", ctx, "1").Run(func(mock.Arguments) { order = append(order, "row") }).Return(nil)
		mStore.On("Delete", ctx, "documents/1.pdf").Run(func(mock.Arguments) { order = append(order, "blob") }).Return(nil)

		assert.NoError(t, svc.Delete(ctx, "1"))
		assert.Equal(t, []string{"row", "blob"}, order)
	})

	t.Run("blob failure is logged, not returned", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		var logs bytes.Buffer
		svc := NewDocumentService(mStore, mRepo, slog.New(slog.NewJSONHandler(&logs, nil)))

		mRepo.On("FindByID", ctx, "1").Return(&model.Document{ID: "1", StoragePath: "documents/1.pdf"}, nil)
		mRepo.On("Delete", ctx, "1").Return(nil)
		mStore.On("Delete", ctx, "documents/1.pdf").Return(errors.New("s3 down"))

		assert.NoError(t, svc.Delete(ctx, "1"))
		assert.Contains(t, logs.String(), "blob_delete_failed")
		assert.Contains(t, logs.String(), "s3 down")
	})

	t.Run("row failure keeps blob", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(mStore, mRepo, nil)

		mRepo.On("FindByID", ctx, "1").Return(&model.Document{ID: "1", StoragePath: "p"}, nil)
		mRepo.On("Delete", ctx, "1").Return(errors.New("db down"))

		assert.ErrorContains(t, svc.Delete(ctx, "1"), "db down")
		mStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := NewDocumentService(nil, mRepo, nil)
		mRepo.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)

		assert.ErrorIs(t, svc.Delete(ctx, "missing"), ErrNotFound)
		assert.ErrorIs(t, svc.Delete(ctx, ""), ErrIDRequired)
	})
}
