package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Mexidense/ppd/internal/model"
	"github.com/Mexidense/ppd/internal/service"
)

type MockAccessService struct {
	mock.Mock
}

func (m *MockAccessService) Check(ctx context.Context, doc *model.Document, requester string) (service.AccessDecision, error) {
	args := m.Called(ctx, doc, requester)
	return args.Get(0).(service.AccessDecision), args.Error(1)
}

func (m *MockAccessService) OpenContent(ctx context.Context, documentID, requester string) (*service.Content, error) {
	args := m.Called(ctx, documentID, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Content), args.Error(1)
}

func (m *MockAccessService) ContentURL(ctx context.Context, documentID, requester string) (*service.ContentURL, error) {
	args := m.Called(ctx, documentID, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ContentURL), args.Error(1)
}

func (m *MockAccessService) PaymentLink(ctx context.Context, documentID, baseURL string) (*service.PaymentLink, error) {
	args := m.Called(ctx, documentID, baseURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PaymentLink), args.Error(1)
}

func (m *MockAccessService) ResolvePayLink(ctx context.Context, hash, requester string) (*service.PayLinkResolution, error) {
	args := m.Called(ctx, hash, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PayLinkResolution), args.Error(1)
}
