package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Mexidense/ppd/internal/model"
	"github.com/Mexidense/ppd/internal/payment"
	"github.com/Mexidense/ppd/internal/service"
)

type MockPurchaseService struct {
	mock.Mock
}

func (m *MockPurchaseService) Purchase(ctx context.Context, documentID string, req payment.Request) (*service.PurchaseReceipt, error) {
	args := m.Called(ctx, documentID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PurchaseReceipt), args.Error(1)
}

func (m *MockPurchaseService) ListByBuyer(ctx context.Context, buyer string) ([]model.Purchase, error) {
	args := m.Called(ctx, buyer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Purchase), args.Error(1)
}
