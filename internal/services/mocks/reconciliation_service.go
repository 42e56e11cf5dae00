package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ninjapay/payments-reconciler/internal/services"
)

type MockReconciliationService struct {
	mock.Mock
}

var _ services.ReconciliationServiceInterface = new(MockReconciliationService)

func (s *MockReconciliationService) Reconcile(ctx context.Context) (services.ReconcileStats, error) {
	args := s.Called(ctx)
	return args.Get(0).(services.ReconcileStats), args.Error(1)
}

func (s *MockReconciliationService) SweepAbandoned(ctx context.Context) (int, error) {
	args := s.Called(ctx)
	return args.Int(0), args.Error(1)
}
