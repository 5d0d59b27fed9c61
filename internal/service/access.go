package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/Mexidense/ppd/internal/logging"
	"github.com/Mexidense/ppd/internal/model"
	"github.com/Mexidense/ppd/internal/payment"
	"github.com/Mexidense/ppd/internal/repository"
	"github.com/Mexidense/ppd/internal/storage"
)

// Reasons an access decision was reached.
const (
	ReasonOwner    = "owner"
	ReasonPurchase = "purchase"
	ReasonNone     = "none"
)

// AccessDecision is the verdict of the access gate.
type AccessDecision struct {
	Granted bool   `json:"granted"`
	Reason  string `json:"reason"`
}

// Content is an open document body. The caller closes Body.
type Content struct {
	Document *model.Document
	Body     io.ReadCloser
	Info     storage.ObjectInfo
}

// ContentURL is a presigned, time-limited download link.
type ContentURL struct {
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expires_in"`
}

// PaymentLink is the shareable entry point to the purchase flow of a document.
type PaymentLink struct {
	Hash    string `json:"hash"`
	FullURL string `json:"full_url"`
}

// PayLinkResolution is a pay link resolved for one requester.
type PayLinkResolution struct {
	Document *model.Document `json:"document"`
	Decision AccessDecision  `json:"decision"`
}

// AccessService mediates every release of document content.
type AccessService interface {
	// Check grants iff requester owns doc or has purchased it. An empty requester is denied.
	Check(ctx context.Context, doc *model.Document, requester string) (AccessDecision, error)

	// OpenContent streams the document body to a granted requester.
	OpenContent(ctx context.Context, documentID, requester string) (*Content, error)

	// ContentURL presigns a download URL for a granted requester.
	ContentURL(ctx context.Context, documentID, requester string) (*ContentURL, error)

	// PaymentLink builds the deterministic pay link of a document under baseURL.
	PaymentLink(ctx context.Context, documentID, baseURL string) (*PaymentLink, error)

	// ResolvePayLink finds the document behind a pay link hash and checks requester.
	ResolvePayLink(ctx context.Context, hash, requester string) (*PayLinkResolution, error)
}

type accessService struct {
	docs      DocumentService
	purchases repository.PurchaseRepository
	store     storage.Storage
	urlTTL    time.Duration
	logger    *slog.Logger
}

// NewAccessService constructs the access gate. urlTTL bounds presigned URLs.
func NewAccessService(docs DocumentService, purchases repository.PurchaseRepository, store storage.Storage, urlTTL time.Duration, logger *slog.Logger) AccessService {
	if logger == nil {
		logger = logging.Discard()
	}
	if urlTTL <= 0 {
		urlTTL = time.Hour
	}
	return &accessService{
		docs:      docs,
		purchases: purchases,
		store:     store,
		urlTTL:    urlTTL,
		logger:    logger.With("component", "access_gate"),
	}
}

func (s *accessService) Check(ctx context.Context, doc *model.Document, requester string) (AccessDecision, error) {
	requester = payment.CanonicalAddress(requester)
	if requester == "" {
		return AccessDecision{Reason: ReasonNone}, nil
	}
	if requester == doc.OwnerAddress {
		return AccessDecision{Granted: true, Reason: ReasonOwner}, nil
	}
	ok, err := s.purchases.Exists(ctx, requester, doc.ID)
	if err != nil {
		return AccessDecision{}, err
	}
	if ok {
		return AccessDecision{Granted: true, Reason: ReasonPurchase}, nil
	}
	return AccessDecision{Reason: ReasonNone}, nil
}

// authorize loads the document and requires a granted decision.
func (s *accessService) authorize(ctx context.Context, documentID, requester string) (*model.Document, error) {
	if payment.CanonicalAddress(requester) == "" {
		return nil, ErrBuyerRequired
	}
	doc, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	d, err := s.Check(ctx, doc, requester)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("access_checked", "document_id", doc.ID, "granted", d.Granted, "reason", d.Reason)
	if !d.Granted {
		return nil, ErrAccessDenied
	}
	return doc, nil
}

func (s *accessService) OpenContent(ctx context.Context, documentID, requester string) (*Content, error) {
	doc, err := s.authorize(ctx, documentID, requester)
	if err != nil {
		return nil, err
	}
	body, info, err := s.store.Get(ctx, doc.StoragePath)
	if err != nil {
		return nil, err
	}
	return &Content{Document: doc, Body: body, Info: info}, nil
}

func (s *accessService) ContentURL(ctx context.Context, documentID, requester string) (*ContentURL, error) {
	doc, err := s.authorize(ctx, documentID, requester)
	if err != nil {
		return nil, err
	}
	u, err := s.store.PresignGet(ctx, doc.StoragePath, s.urlTTL)
	if err != nil {
		return nil, err
	}
	return &ContentURL{URL: u, ExpiresIn: int64(s.urlTTL / time.Second)}, nil
}

func (s *accessService) PaymentLink(ctx context.Context, documentID, baseURL string) (*PaymentLink, error) {
	doc, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return &PaymentLink{Hash: doc.ContentHash, FullURL: baseURL + "/pay/" + doc.ContentHash}, nil
}

func (s *accessService) ResolvePayLink(ctx context.Context, hash, requester string) (*PayLinkResolution, error) {
	doc, err := s.docs.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	d, err := s.Check(ctx, doc, requester)
	if err != nil {
		return nil, err
	}
	return &PayLinkResolution{Document: doc, Decision: d}, nil
}
