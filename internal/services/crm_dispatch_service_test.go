package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ninjapay/payments-reconciler/internal/crm"
	"github.com/ninjapay/payments-reconciler/internal/data"
	"github.com/ninjapay/payments-reconciler/internal/utils"
)

func newTestCRMDispatchService(t *testing.T, models *data.Models, client crm.ClientInterface, retryBackoff []int64) *CRMDispatchService {
	t.Helper()

	svc, err := NewCRMDispatchService(CRMDispatchServiceOptions{
		Models:         models,
		Client:         client,
		MonitorService: newTestMonitorService(t),
		RetryBackoff:   retryBackoff,
		BatchSize:      10,
	})
	require.NoError(t, err)
	return svc
}

func Test_NewCRMDispatchService(t *testing.T) {
	validOptions := func(t *testing.T) CRMDispatchServiceOptions {
		return CRMDispatchServiceOptions{
			Models:         &data.Models{},
			Client:         &crm.MockClient{},
			MonitorService: newTestMonitorService(t),
			RetryBackoff:   []int64{60, 300, 1800},
			BatchSize:      100,
		}
	}

	testCases := []struct {
		name            string
		mutateOptions   func(opts *CRMDispatchServiceOptions)
		wantErrContains string
	}{
		{
			name:            "returns an error when models is nil",
			mutateOptions:   func(opts *CRMDispatchServiceOptions) { opts.Models = nil },
			wantErrContains: "models cannot be nil",
		},
		{
			name:            "returns an error when the client is nil",
			mutateOptions:   func(opts *CRMDispatchServiceOptions) { opts.Client = nil },
			wantErrContains: "CRM client cannot be nil",
		},
		{
			name:            "returns an error when the monitor service is nil",
			mutateOptions:   func(opts *CRMDispatchServiceOptions) { opts.MonitorService = nil },
			wantErrContains: "monitor service cannot be nil",
		},
		{
			name:            "returns an error when the retry backoff is empty",
			mutateOptions:   func(opts *CRMDispatchServiceOptions) { opts.RetryBackoff = nil },
			wantErrContains: "retry backoff cannot be empty",
		},
		{
			name:            "returns an error when the batch size is not positive",
			mutateOptions:   func(opts *CRMDispatchServiceOptions) { opts.BatchSize = 0 },
			wantErrContains: "batch size must be greater than 0",
		},
		{
			name:          "🎉 succeeds with valid options",
			mutateOptions: func(opts *CRMDispatchServiceOptions) {},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := validOptions(t)
			tc.mutateOptions(&opts)

			svc, err := NewCRMDispatchService(opts)
			if tc.wantErrContains != "" {
				require.Error(t, err)
				assert.ErrorContains(t, err, tc.wantErrContains)
				assert.Nil(t, svc)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func Test_CRMDispatchService_Dispatch_sendsPendingItems(t *testing.T) {
	models := data.SetupModels(t)
	pool := models.DBConnectionPool
	ctx := context.Background()

	payment := data.CreatePaymentFixture(t, ctx, pool, models.Payments, &data.Payment{
		Status: data.AuthorizedPaymentStatus,
	})
	payload := data.JSONMap{"monto": "149900", "transactionId": "884075"}
	err := models.CRMQueue.Enqueue(ctx, pool, payment.ID, data.CRMOperationPagar, payload)
	require.NoError(t, err)

	mClient := &crm.MockClient{}
	mClient.On("Endpoint").Return("https://crm.example.com/api/pagar")
	mClient.
		On("Send", mock.Anything, payload).
		Return(crm.SendResult{
			StatusCode:      200,
			CRMID:           utils.StringPtr("9102"),
			LatencyMS:       120,
			RequestHeaders:  map[string]string{"Authorization": "Bearer crm-secret", "Content-Type": "application/json"},
			RequestBody:     payload,
			ResponseHeaders: map[string]string{"Content-Type": "application/json"},
			ResponseBody:    data.JSONMap{"id": "9102"},
		}).
		Once()
	defer mClient.AssertExpectations(t)

	svc := newTestCRMDispatchService(t, models, mClient, []int64{60})

	stats, err := svc.Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{Sent: 1}, stats)

	item, err := models.CRMQueue.GetByPaymentOperation(ctx, pool, payment.ID, data.CRMOperationPagar)
	require.NoError(t, err)
	assert.Equal(t, data.SentCRMPushStatus, item.Status)
	assert.Equal(t, 1, item.Attempts)
	assert.Nil(t, item.NextAttemptAt)
	assert.NotNil(t, item.LastAttemptAt)
	require.NotNil(t, item.ResponseCode)
	assert.Equal(t, 200, *item.ResponseCode)
	require.NotNil(t, item.CRMID)
	assert.Equal(t, "9102", *item.CRMID)
	assert.Nil(t, item.LastError)

	events, err := models.CRMEvents.GetAllForPayment(ctx, pool, payment.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, data.CRMOperationPagar, events[0].Operation)
	assert.Equal(t, "https://crm.example.com/api/pagar", events[0].RequestURL)
	assert.Equal(t, data.JSONMap{"Authorization": "***", "Content-Type": "application/json"}, events[0].RequestHeaders)
	assert.Equal(t, payload, events[0].RequestBody)
	require.NotNil(t, events[0].ResponseStatus)
	assert.Equal(t, 200, *events[0].ResponseStatus)
	assert.Equal(t, data.JSONMap{"id": "9102"}, events[0].ResponseBody)

	// SENT is terminal: the next cycle has nothing to claim.
	stats, err = svc.Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{}, stats)
	mClient.AssertNumberOfCalls(t, "Send", 1)
}

func Test_CRMDispatchService_Dispatch_schedulesRetriesUntilTheBudgetRunsOut(t *testing.T) {
	models := data.SetupModels(t)
	pool := models.DBConnectionPool
	ctx := context.Background()

	payment := data.CreatePaymentFixture(t, ctx, pool, models.Payments, &data.Payment{
		Status: data.AuthorizedPaymentStatus,
	})
	payload := data.JSONMap{"monto": "5000"}
	err := models.CRMQueue.Enqueue(ctx, pool, payment.ID, data.CRMOperationPagar, payload)
	require.NoError(t, err)

	mClient := &crm.MockClient{}
	mClient.On("Endpoint").Return("https://crm.example.com/api/pagar")
	mClient.
		On("Send", mock.Anything, payload).
		Return(crm.SendResult{
			StatusCode:   500,
			LatencyMS:    30,
			ResponseBody: data.JSONMap{"error": "internal"},
		}).
		Times(3)
	defer mClient.AssertExpectations(t)

	svc := newTestCRMDispatchService(t, models, mClient, []int64{600, 3600})

	forceDue := func(t *testing.T, itemID int64) {
		t.Helper()
		_, execErr := pool.ExecContext(ctx, "UPDATE payments.crm_push_queue SET next_attempt_at = NOW() - INTERVAL '1 minute' WHERE id = $1", itemID)
		require.NoError(t, execErr)
	}

	// First failure schedules the first backoff offset.
	stats, err := svc.Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{Failed: 1}, stats)

	item, err := models.CRMQueue.GetByPaymentOperation(ctx, pool, payment.ID, data.CRMOperationPagar)
	require.NoError(t, err)
	assert.Equal(t, data.FailedCRMPushStatus, item.Status)
	assert.Equal(t, 1, item.Attempts)
	require.NotNil(t, item.NextAttemptAt)
	assert.WithinDuration(t, time.Now().Add(600*time.Second), *item.NextAttemptAt, 10*time.Second)
	require.NotNil(t, item.ResponseCode)
	assert.Equal(t, 500, *item.ResponseCode)
	require.NotNil(t, item.LastError)
	assert.Equal(t, "CRM send failed", *item.LastError)

	// Second failure climbs to the next offset.
	forceDue(t, item.ID)
	stats, err = svc.Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{Failed: 1, Retried: 1}, stats)

	item, err = models.CRMQueue.Get(ctx, pool, item.ID)
	require.NoError(t, err)
	assert.Equal(t, data.FailedCRMPushStatus, item.Status)
	assert.Equal(t, 2, item.Attempts)
	require.NotNil(t, item.NextAttemptAt)
	assert.WithinDuration(t, time.Now().Add(3600*time.Second), *item.NextAttemptAt, 10*time.Second)

	// Third failure exhausts the budget: no next attempt, ever.
	forceDue(t, item.ID)
	stats, err = svc.Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{Failed: 1, Retried: 1}, stats)

	item, err = models.CRMQueue.Get(ctx, pool, item.ID)
	require.NoError(t, err)
	assert.Equal(t, data.FailedCRMPushStatus, item.Status)
	assert.Equal(t, 3, item.Attempts)
	assert.Nil(t, item.NextAttemptAt)

	// A permanently failed item is invisible to reactivation and claiming.
	stats, err = svc.Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{}, stats)
	mClient.AssertNumberOfCalls(t, "Send", 3)

	events, err := models.CRMEvents.GetAllForPayment(ctx, pool, payment.ID)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func Test_CRMDispatchService_Dispatch_recordsTransportErrors(t *testing.T) {
	models := data.SetupModels(t)
	pool := models.DBConnectionPool
	ctx := context.Background()

	payment := data.CreatePaymentFixture(t, ctx, pool, models.Payments, &data.Payment{
		Status: data.AuthorizedPaymentStatus,
	})
	payload := data.JSONMap{"monto": "5000"}
	err := models.CRMQueue.Enqueue(ctx, pool, payment.ID, data.CRMOperationPagar, payload)
	require.NoError(t, err)

	errMsg := `Post "https://crm.example.com/api/pagar": context deadline exceeded`
	mClient := &crm.MockClient{}
	mClient.On("Endpoint").Return("https://crm.example.com/api/pagar")
	mClient.
		On("Send", mock.Anything, payload).
		Return(crm.SendResult{
			ErrorMessage: &errMsg,
			LatencyMS:    5000,
			ResponseBody: data.JSONMap{"error": errMsg},
		}).
		Once()
	defer mClient.AssertExpectations(t)

	svc := newTestCRMDispatchService(t, models, mClient, []int64{60})

	stats, err := svc.Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{Failed: 1}, stats)

	item, err := models.CRMQueue.GetByPaymentOperation(ctx, pool, payment.ID, data.CRMOperationPagar)
	require.NoError(t, err)
	assert.Equal(t, data.FailedCRMPushStatus, item.Status)
	assert.Equal(t, 1, item.Attempts)
	assert.Nil(t, item.ResponseCode)
	require.NotNil(t, item.LastError)
	assert.Equal(t, errMsg, *item.LastError)

	// The request never completed, so the event keeps a NULL response status.
	events, err := models.CRMEvents.GetAllForPayment(ctx, pool, payment.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].ResponseStatus)
	require.NotNil(t, events[0].ErrorMessage)
	assert.Equal(t, errMsg, *events[0].ErrorMessage)
}

func Test_CRMDispatchService_Dispatch_claimsOnlyRunnableItems(t *testing.T) {
	models := data.SetupModels(t)
	pool := models.DBConnectionPool
	ctx := context.Background()

	sentPayment := data.CreatePaymentFixture(t, ctx, pool, models.Payments, &data.Payment{
		Status: data.AuthorizedPaymentStatus,
	})
	data.CreateCRMQueueItemFixture(t, ctx, pool, &data.CRMQueueItem{
		PaymentID: sentPayment.ID,
		Status:    data.SentCRMPushStatus,
		Attempts:  1,
		Payload:   data.JSONMap{"monto": "1"},
	})

	permanentPayment := data.CreatePaymentFixture(t, ctx, pool, models.Payments, &data.Payment{
		Status: data.AuthorizedPaymentStatus,
	})
	data.CreateCRMQueueItemFixture(t, ctx, pool, &data.CRMQueueItem{
		PaymentID: permanentPayment.ID,
		Status:    data.FailedCRMPushStatus,
		Attempts:  3,
		Payload:   data.JSONMap{"monto": "2"},
	})

	futurePayment := data.CreatePaymentFixture(t, ctx, pool, models.Payments, &data.Payment{
		Status: data.AuthorizedPaymentStatus,
	})
	data.CreateCRMQueueItemFixture(t, ctx, pool, &data.CRMQueueItem{
		PaymentID:     futurePayment.ID,
		NextAttemptAt: utils.TimePtr(time.Now().Add(time.Hour)),
		Payload:       data.JSONMap{"monto": "3"},
	})

	mClient := &crm.MockClient{}
	defer mClient.AssertExpectations(t)

	svc := newTestCRMDispatchService(t, models, mClient, []int64{60})

	stats, err := svc.Dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, DispatchStats{}, stats)
	mClient.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}
