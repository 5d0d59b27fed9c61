package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Mexidense/ppd/internal/model"
)

type MockPurchaseRepository struct {
	mock.Mock
}

func (m *MockPurchaseRepository) Create(ctx context.Context, p *model.Purchase) (*model.Purchase, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Purchase), args.Error(1)
}

func (m *MockPurchaseRepository) FindByTransactionID(ctx context.Context, txid string) (*model.Purchase, error) {
	args := m.Called(ctx, txid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Purchase), args.Error(1)
}

func (m *MockPurchaseRepository) Exists(ctx context.Context, buyer, documentID string) (bool, error) {
	args := m.Called(ctx, buyer, documentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPurchaseRepository) ListByBuyer(ctx context.Context, buyer string) ([]model.Purchase, error) {
	args := m.Called(ctx, buyer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Purchase), args.Error(1)
}
