package data

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ninjapay/payments-reconciler/db"
	"github.com/ninjapay/payments-reconciler/internal/utils"
)

const (
	FixtureProviderStripe = "stripe"
	FixtureProviderPaypal = "paypal"
	FixtureProviderWebpay = "webpay"
)

// CreatePaymentOrderFixture creates a checkout order row and returns its ID.
func CreatePaymentOrderFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, customerRut, customerName string) int64 {
	t.Helper()

	const query = `
		INSERT INTO payments.payment_order
			(customer_rut, customer_name)
		VALUES
			($1, $2)
		RETURNING
			id
	`

	var orderID int64
	err := sqlExec.GetContext(ctx, &orderID, query, utils.SQLNullString(customerRut), utils.SQLNullString(customerName))
	require.NoError(t, err)

	return orderID
}

// CreatePaymentFixture inserts a payment, filling in defaults for everything
// the caller leaves zero, and returns the row as the model reads it. When the
// requested status is terminal the matching transition timestamp is stamped
// too, so fixture rows honor the same invariants real rows do.
func CreatePaymentFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, model *PaymentModel, p *Payment) *Payment {
	t.Helper()

	if p == nil {
		p = &Payment{}
	}
	if p.Provider == "" {
		p.Provider = FixtureProviderStripe
	}
	if p.Token == nil {
		token, err := utils.RandomString(27)
		require.NoError(t, err)
		token = "tok_" + token
		p.Token = &token
	}
	if p.Status == "" {
		p.Status = PendingPaymentStatus
	}
	if p.AmountMinor == 0 {
		p.AmountMinor = 149900
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	const query = `
		INSERT INTO payments.payment
			(payment_order_id, provider, token, status, amount_minor, context, provider_metadata,
			product_id, authorization_code, status_reason, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING
			id
	`

	var newID int64
	err := sqlExec.GetContext(ctx, &newID, query,
		p.PaymentOrderID,
		p.Provider,
		p.Token,
		p.Status,
		p.AmountMinor,
		p.Context,
		p.ProviderMetadata,
		p.ProductID,
		p.AuthorizationCode,
		p.StatusReason,
		p.CreatedAt,
	)
	require.NoError(t, err)

	if tsColumn := p.Status.TimestampColumn(); tsColumn != "" {
		q := fmt.Sprintf("UPDATE payments.payment SET %s = NOW() WHERE id = $1", tsColumn)
		_, err = sqlExec.ExecContext(ctx, q, newID)
		require.NoError(t, err)
	}

	payment, err := model.Get(ctx, sqlExec, newID)
	require.NoError(t, err)
	return payment
}

// CreateStatusCheckFixture appends one status check row with full control
// over every column, including requested_at.
func CreateStatusCheckFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, sc *StatusCheck) *StatusCheck {
	t.Helper()

	require.NotNil(t, sc)
	require.NotZero(t, sc.PaymentID)
	if sc.Provider == "" {
		sc.Provider = FixtureProviderStripe
	}
	if sc.RequestedAt.IsZero() {
		sc.RequestedAt = time.Now()
	}

	const query = `
		INSERT INTO payments.status_check
			(payment_id, provider, success, provider_status, mapped_status, response_code,
			raw_payload, error_message, requested_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING
			id
	`

	err := sqlExec.GetContext(ctx, &sc.ID, query,
		sc.PaymentID,
		sc.Provider,
		sc.Success,
		sc.ProviderStatus,
		sc.MappedStatus,
		sc.ResponseCode,
		sc.RawPayload,
		sc.ErrorMessage,
		sc.RequestedAt,
	)
	require.NoError(t, err)

	return sc
}

// CreateStatusCheckFixtures appends count inconclusive checks for a payment,
// advancing its retry schedule index by count.
func CreateStatusCheckFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, paymentID int64, provider string, count int) {
	t.Helper()

	providerStatus := "processing"
	for i := 0; i < count; i++ {
		CreateStatusCheckFixture(t, ctx, sqlExec, &StatusCheck{
			PaymentID:      paymentID,
			Provider:       provider,
			Success:        true,
			ProviderStatus: &providerStatus,
		})
	}
}

// CreateCRMQueueItemFixture inserts a queue row with full control over its
// scheduling columns, bypassing the Enqueue defaults.
func CreateCRMQueueItemFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, item *CRMQueueItem) *CRMQueueItem {
	t.Helper()

	require.NotNil(t, item)
	require.NotZero(t, item.PaymentID)
	if item.Operation == "" {
		item.Operation = CRMOperationPagar
	}
	if item.Status == "" {
		item.Status = PendingCRMPushStatus
	}

	const query = `
		INSERT INTO payments.crm_push_queue
			(payment_id, operation, status, attempts, next_attempt_at, last_attempt_at,
			response_code, crm_id, last_error, payload)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING
			id, created_at, updated_at
	`

	err := sqlExec.QueryRowxContext(ctx, query,
		item.PaymentID,
		item.Operation,
		item.Status,
		item.Attempts,
		item.NextAttemptAt,
		item.LastAttemptAt,
		item.ResponseCode,
		item.CRMID,
		item.LastError,
		item.Payload,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	require.NoError(t, err)

	return item
}

func DeleteAllStatusChecksFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	t.Helper()
	_, err := sqlExec.ExecContext(ctx, "DELETE FROM payments.status_check")
	require.NoError(t, err)
}

func DeleteAllProviderEventsFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	t.Helper()
	_, err := sqlExec.ExecContext(ctx, "DELETE FROM payments.provider_event_log")
	require.NoError(t, err)
}

func DeleteAllCRMEventsFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	t.Helper()
	_, err := sqlExec.ExecContext(ctx, "DELETE FROM payments.crm_event_log")
	require.NoError(t, err)
}

func DeleteAllCRMQueueFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	t.Helper()
	_, err := sqlExec.ExecContext(ctx, "DELETE FROM payments.crm_push_queue")
	require.NoError(t, err)
}

func DeleteAllPaymentsFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	t.Helper()

	DeleteAllStatusChecksFixtures(t, ctx, sqlExec)
	DeleteAllProviderEventsFixtures(t, ctx, sqlExec)
	DeleteAllCRMEventsFixtures(t, ctx, sqlExec)
	DeleteAllCRMQueueFixtures(t, ctx, sqlExec)

	_, err := sqlExec.ExecContext(ctx, "DELETE FROM payments.payment")
	require.NoError(t, err)

	_, err = sqlExec.ExecContext(ctx, "DELETE FROM payments.payment_order")
	require.NoError(t, err)
}

func DeleteAllRuntimeEventsFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	t.Helper()
	_, err := sqlExec.ExecContext(ctx, "DELETE FROM payments.service_runtime_log")
	require.NoError(t, err)
}

func DeleteAllFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	t.Helper()
	DeleteAllPaymentsFixtures(t, ctx, sqlExec)
	DeleteAllRuntimeEventsFixtures(t, ctx, sqlExec)
}
