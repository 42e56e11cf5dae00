package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ninjapay/payments-reconciler/db"
)

type CRMPushStatus string

const (
	PendingCRMPushStatus CRMPushStatus = "PENDING"
	SentCRMPushStatus    CRMPushStatus = "SENT"
	FailedCRMPushStatus  CRMPushStatus = "FAILED"
)

const (
	CRMOperationPagar         = "PAGAR"
	CRMOperationAbandonedCart = "ABANDONED_CART"
)

// CRMQueueItem is one scheduled push to the CRM. At most one item exists per
// (payment, operation) pair.
type CRMQueueItem struct {
	ID            int64         `json:"id" db:"id"`
	PaymentID     int64         `json:"payment_id" db:"payment_id"`
	Operation     string        `json:"operation" db:"operation"`
	Status        CRMPushStatus `json:"status" db:"status"`
	Attempts      int           `json:"attempts" db:"attempts"`
	NextAttemptAt *time.Time    `json:"next_attempt_at,omitempty" db:"next_attempt_at"`
	LastAttemptAt *time.Time    `json:"last_attempt_at,omitempty" db:"last_attempt_at"`
	ResponseCode  *int          `json:"response_code,omitempty" db:"response_code"`
	CRMID         *string       `json:"crm_id,omitempty" db:"crm_id"`
	LastError     *string       `json:"last_error,omitempty" db:"last_error"`
	Payload       JSONMap       `json:"payload,omitempty" db:"payload"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

type CRMQueueModel struct {
	dbConnectionPool db.DBConnectionPool
}

const selectCRMQueueColumns = `
	id,
	payment_id,
	operation,
	status,
	attempts,
	next_attempt_at,
	last_attempt_at,
	response_code,
	crm_id,
	last_error,
	payload,
	created_at,
	updated_at
`

// Enqueue creates a PENDING push for (paymentID, operation). Enqueueing an
// already-queued pair is a no-op: the first payload wins.
func (q *CRMQueueModel) Enqueue(ctx context.Context, sqlExec db.SQLExecuter, paymentID int64, operation string, payload JSONMap) error {
	query := `
		INSERT INTO payments.crm_push_queue (
			payment_id,
			operation,
			status,
			attempts,
			payload
		) VALUES ($1, $2, 'PENDING', 0, $3)
		ON CONFLICT (payment_id, operation) DO NOTHING
		`

	_, err := sqlExec.ExecContext(ctx, query, paymentID, operation, payload)
	if err != nil {
		return fmt.Errorf("enqueueing CRM %s push for payment %d: %w", operation, paymentID, err)
	}

	return nil
}

func (q *CRMQueueModel) Get(ctx context.Context, sqlExec db.SQLExecuter, id int64) (*CRMQueueItem, error) {
	item := CRMQueueItem{}

	query := `
		SELECT
			` + selectCRMQueueColumns + `
		FROM payments.crm_push_queue
		WHERE id = $1
		`

	err := sqlExec.GetContext(ctx, &item, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying CRM queue item %d: %w", id, err)
	}

	return &item, nil
}

// GetByPaymentOperation returns the queue item for a (payment, operation)
// pair, which is unique by construction.
func (q *CRMQueueModel) GetByPaymentOperation(ctx context.Context, sqlExec db.SQLExecuter, paymentID int64, operation string) (*CRMQueueItem, error) {
	item := CRMQueueItem{}

	query := `
		SELECT
			` + selectCRMQueueColumns + `
		FROM payments.crm_push_queue
		WHERE payment_id = $1
		AND operation = $2
		`

	err := sqlExec.GetContext(ctx, &item, query, paymentID, operation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying CRM queue item for payment %d operation %s: %w", paymentID, operation, err)
	}

	return &item, nil
}

// ReactivateDueFailed moves FAILED items whose next_attempt_at has passed
// back to PENDING and reports how many moved. Items with a NULL
// next_attempt_at are permanently failed and stay put.
func (q *CRMQueueModel) ReactivateDueFailed(ctx context.Context, sqlExec db.SQLExecuter, limit int) (int64, error) {
	if limit <= 0 {
		return 0, fmt.Errorf("limit must be greater than 0")
	}

	query := `
		WITH moved AS (
			SELECT id
			FROM payments.crm_push_queue
			WHERE status = 'FAILED'
			AND next_attempt_at IS NOT NULL
			AND next_attempt_at <= NOW()
			ORDER BY next_attempt_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE payments.crm_push_queue q
		SET status = 'PENDING',
			updated_at = NOW()
		FROM moved
		WHERE q.id = moved.id
		`

	result, err := sqlExec.ExecContext(ctx, query, limit)
	if err != nil {
		return 0, fmt.Errorf("reactivating due FAILED CRM items: %w", err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting number of rows affected: %w", err)
	}

	return numRowsAffected, nil
}

// ClaimPending claims up to batchSize runnable PENDING items, oldest first.
// Claimed rows stay locked for the lifetime of dbTx; rows locked by
// concurrent workers are skipped, never waited on.
func (q *CRMQueueModel) ClaimPending(ctx context.Context, dbTx db.DBTransaction, batchSize int) ([]*CRMQueueItem, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than 0")
	}

	query := `
		SELECT
			` + selectCRMQueueColumns + `
		FROM payments.crm_push_queue
		WHERE status = 'PENDING'
		AND (next_attempt_at IS NULL OR next_attempt_at <= NOW())
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
		`

	var items []*CRMQueueItem
	err := dbTx.SelectContext(ctx, &items, query, batchSize)
	if err != nil {
		return nil, fmt.Errorf("claiming pending CRM items: %w", err)
	}
	return items, nil
}

// MarkSent finalizes an item after the CRM accepted it. SENT is terminal, so
// next_attempt_at is cleared and the attempt that succeeded is counted.
func (q *CRMQueueModel) MarkSent(ctx context.Context, sqlExec db.SQLExecuter, itemID int64, responseCode int, crmID *string) error {
	query := `
		UPDATE payments.crm_push_queue
		SET status = 'SENT',
			attempts = attempts + 1,
			next_attempt_at = NULL,
			last_attempt_at = NOW(),
			response_code = $1,
			crm_id = $2,
			last_error = NULL,
			updated_at = NOW()
		WHERE id = $3
		`

	result, err := sqlExec.ExecContext(ctx, query, responseCode, crmID, itemID)
	if err != nil {
		return fmt.Errorf("marking CRM item %d as SENT: %w", itemID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return fmt.Errorf("CRM item %d: %w", itemID, ErrRecordNotFound)
	}

	return nil
}

// MarkFailed records a failed delivery attempt. A nil nextAttemptAt means the
// retry budget is exhausted and the item will never be reactivated.
func (q *CRMQueueModel) MarkFailed(ctx context.Context, sqlExec db.SQLExecuter, itemID int64, attempts int, nextAttemptAt *time.Time, responseCode *int, errorMessage string) error {
	query := `
		UPDATE payments.crm_push_queue
		SET status = 'FAILED',
			attempts = $1,
			next_attempt_at = $2,
			last_attempt_at = NOW(),
			response_code = $3,
			last_error = $4,
			updated_at = NOW()
		WHERE id = $5
		`

	result, err := sqlExec.ExecContext(ctx, query, attempts, nextAttemptAt, responseCode, errorMessage, itemID)
	if err != nil {
		return fmt.Errorf("marking CRM item %d as FAILED: %w", itemID, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return fmt.Errorf("CRM item %d: %w", itemID, ErrRecordNotFound)
	}

	return nil
}
