package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mexidense/ppd/internal/logging"
	"github.com/Mexidense/ppd/internal/model"
	"github.com/Mexidense/ppd/internal/payment"
	"github.com/Mexidense/ppd/internal/repository"
)

var tracer = otel.Tracer("github.com/Mexidense/ppd/internal/service")

// Challenger issues derivation-prefix challenges.
type Challenger interface {
	Challenge(satoshis int64) (payment.Challenge, error)
}

// PaymentVerifier checks a payment header against a price.
type PaymentVerifier interface {
	Verify(h *payment.Header, price int64) payment.Verification
}

// PurchaseReceipt is returned for an accepted and recorded payment.
type PurchaseReceipt struct {
	Purchase      *model.Purchase `json:"purchase"`
	TransactionID string          `json:"transactionId"`
	AmountPaid    int64           `json:"amountPaid"`
}

// PurchaseService runs one step of the purchase protocol per call.
type PurchaseService interface {
	// Purchase returns *PaymentRequiredError when req carries no payment, verifies and
	// records it otherwise. The price is read from the document store on every call.
	Purchase(ctx context.Context, documentID string, req payment.Request) (*PurchaseReceipt, error)

	// ListByBuyer returns a buyer's purchases, newest first.
	ListByBuyer(ctx context.Context, buyer string) ([]model.Purchase, error)
}

type purchaseService struct {
	docs      repository.DocumentRepository
	purchases repository.PurchaseRepository
	challenge Challenger
	verifier  PaymentVerifier
	metrics   *payment.Metrics
	logger    *slog.Logger
}

// NewPurchaseService wires the protocol components. metrics and logger may be nil.
func NewPurchaseService(
	docs repository.DocumentRepository,
	purchases repository.PurchaseRepository,
	challenge Challenger,
	verifier PaymentVerifier,
	metrics *payment.Metrics,
	logger *slog.Logger,
) PurchaseService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &purchaseService{
		docs:      docs,
		purchases: purchases,
		challenge: challenge,
		verifier:  verifier,
		metrics:   metrics,
		logger:    logger.With("component", "purchase_service"),
	}
}

func (s *purchaseService) Purchase(ctx context.Context, documentID string, req payment.Request) (*PurchaseReceipt, error) {
	if documentID == "" {
		return nil, ErrIDRequired
	}
	doc, err := notFound(s.docs.FindByID(ctx, documentID))
	if err != nil {
		return nil, err
	}

	header, err := payment.ReadHeader(req)
	if err != nil {
		return nil, err
	}
	if header == nil {
		ch, err := s.challenge.Challenge(doc.Cost)
		if err != nil {
			return nil, fmt.Errorf("issue challenge: %w", err)
		}
		s.metrics.ChallengeIssued()
		return nil, &PaymentRequiredError{Challenge: ch}
	}

	v := s.verify(ctx, header, doc)
	if !v.Accepted {
		return nil, &PaymentRejectedError{Verification: v}
	}

	return s.record(ctx, header.BuyerAddress(), doc, v)
}

func (s *purchaseService) verify(ctx context.Context, h *payment.Header, doc *model.Document) payment.Verification {
	_, span := tracer.Start(ctx, "purchase.verify", trace.WithAttributes(
		attribute.String("document.id", doc.ID),
		attribute.Int64("payment.satoshis_required", doc.Cost),
	))
	defer span.End()

	v := s.verifier.Verify(h, doc.Cost)
	span.SetAttributes(
		attribute.Int64("payment.satoshis_paid", v.SatoshisPaid),
		attribute.String("payment.decoder", v.Decoder),
		attribute.Bool("payment.accepted", v.Accepted),
	)
	if !v.Accepted {
		span.SetStatus(codes.Error, v.Reason)
	}
	return v
}

func (s *purchaseService) record(ctx context.Context, buyer string, doc *model.Document, v payment.Verification) (*PurchaseReceipt, error) {
	ctx, span := tracer.Start(ctx, "purchase.record")
	defer span.End()
	span.SetAttributes(attribute.String("payment.txid", v.TransactionID))

	p, err := s.purchases.Create(ctx, &model.Purchase{
		ID:            uuid.NewString(),
		BuyerAddress:  buyer,
		DocumentID:    doc.ID,
		TransactionID: v.TransactionID,
		CreatedAt:     time.Now().UTC(),
	})
	if errors.Is(err, repository.ErrDuplicateTransaction) {
		s.metrics.Recorded("duplicate")
		span.SetAttributes(attribute.String("purchase.outcome", "duplicate"))

		dup := &DuplicatePurchaseError{TransactionID: v.TransactionID}
		if existing, lookupErr := s.purchases.FindByTransactionID(ctx, v.TransactionID); lookupErr == nil {
			dup.Existing = existing
		}
		s.logger.Info("purchase_duplicate", "txid", v.TransactionID, "document_id", doc.ID)
		return nil, dup
	}
	if err != nil {
		s.metrics.Recorded("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger insert failed")
		return nil, fmt.Errorf("record purchase: %w", err)
	}

	s.metrics.Recorded("recorded")
	s.logger.Info("purchase_recorded",
		"purchase_id", p.ID,
		"txid", p.TransactionID,
		"document_id", doc.ID,
		"buyer", buyer,
		"satoshis_paid", v.SatoshisPaid,
	)
	return &PurchaseReceipt{Purchase: p, TransactionID: v.TransactionID, AmountPaid: v.SatoshisPaid}, nil
}

func (s *purchaseService) ListByBuyer(ctx context.Context, buyer string) ([]model.Purchase, error) {
	buyer = payment.CanonicalAddress(buyer)
	if buyer == "" {
		return nil, ErrBuyerRequired
	}
	return s.purchases.ListByBuyer(ctx, buyer)
}
