package crm

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ninjapay/payments-reconciler/internal/data"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Endpoint() string {
	return m.Called().String(0)
}

func (m *MockClient) Send(ctx context.Context, payload data.JSONMap) SendResult {
	args := m.Called(ctx, payload)
	return args.Get(0).(SendResult)
}

// Ensuring that MockClient is implementing ClientInterface interface
var _ ClientInterface = (*MockClient)(nil)
