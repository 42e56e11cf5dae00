package provider

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ninjapay/payments-reconciler/internal/data"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Name() string {
	return m.Called().String(0)
}

func (m *MockClient) Status(ctx context.Context, token string, paymentContext data.JSONMap) (StatusResult, CallRecord) {
	args := m.Called(ctx, token, paymentContext)
	return args.Get(0).(StatusResult), args.Get(1).(CallRecord)
}

// Ensuring that MockClient is implementing Client interface
var _ Client = (*MockClient)(nil)
