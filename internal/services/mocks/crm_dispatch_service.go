package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ninjapay/payments-reconciler/internal/services"
)

type MockCRMDispatchService struct {
	mock.Mock
}

var _ services.CRMDispatchServiceInterface = new(MockCRMDispatchService)

func (s *MockCRMDispatchService) Dispatch(ctx context.Context) (services.DispatchStats, error) {
	args := s.Called(ctx)
	return args.Get(0).(services.DispatchStats), args.Error(1)
}
