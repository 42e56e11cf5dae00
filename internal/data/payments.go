package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ninjapay/payments-reconciler/db"
)

type Payment struct {
	ID                int64         `json:"id" db:"id"`
	PaymentOrderID    *int64        `json:"payment_order_id,omitempty" db:"payment_order_id"`
	Provider          string        `json:"provider" db:"provider"`
	Token             *string       `json:"token,omitempty" db:"token"`
	Status            PaymentStatus `json:"status" db:"status"`
	AmountMinor       int64         `json:"amount_minor" db:"amount_minor"`
	Context           JSONMap       `json:"context,omitempty" db:"context"`
	ProviderMetadata  JSONMap       `json:"provider_metadata,omitempty" db:"provider_metadata"`
	ProductID         *int64        `json:"product_id,omitempty" db:"product_id"`
	AuthorizationCode *string       `json:"authorization_code,omitempty" db:"authorization_code"`
	StatusReason      *string       `json:"status_reason,omitempty" db:"status_reason"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
	FirstAuthorizedAt *time.Time    `json:"first_authorized_at,omitempty" db:"first_authorized_at"`
	FailedAt          *time.Time    `json:"failed_at,omitempty" db:"failed_at"`
	CanceledAt        *time.Time    `json:"canceled_at,omitempty" db:"canceled_at"`
	RefundedAt        *time.Time    `json:"refunded_at,omitempty" db:"refunded_at"`
	AbandonedAt       *time.Time    `json:"abandoned_at,omitempty" db:"abandoned_at"`

	// Populated by the claiming queries only: prior status_check count and the
	// customer rut carried over from the payment order.
	Attempts         int     `json:"-" db:"attempts"`
	OrderCustomerRut *string `json:"-" db:"order_customer_rut"`
}

// PaymentStats is the aggregate view served by the ops endpoint.
// TotalAmountCurrency is nil when no payment carries a currency and "MIXED"
// when more than one distinct currency is present.
type PaymentStats struct {
	TotalPayments       int64           `json:"total_payments" db:"total_payments"`
	AuthorizedPayments  int64           `json:"authorized_payments" db:"authorized_payments"`
	TotalAmountMinor    decimal.Decimal `json:"total_amount_minor" db:"total_amount_minor"`
	TotalAmountCurrency *string         `json:"total_amount_currency" db:"-"`
	LastPaymentAt       *time.Time      `json:"last_payment_at" db:"last_payment_at"`
}

type PaymentModel struct {
	dbConnectionPool db.DBConnectionPool
}

const selectPaymentColumns = `
	p.id,
	p.payment_order_id,
	p.provider,
	p.token,
	p.status,
	p.amount_minor,
	p.context,
	p.provider_metadata,
	p.product_id,
	p.authorization_code,
	p.status_reason,
	p.created_at,
	p.updated_at,
	p.first_authorized_at,
	p.failed_at,
	p.canceled_at,
	p.refunded_at,
	p.abandoned_at
`

func (p *PaymentModel) Get(ctx context.Context, sqlExec db.SQLExecuter, id int64) (*Payment, error) {
	payment := Payment{}

	query := `
		SELECT
			` + selectPaymentColumns + `
		FROM
			payments.payment p
		WHERE p.id = $1
		`

	err := sqlExec.GetContext(ctx, &payment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying payment %d: %w", id, err)
	}

	return &payment, nil
}

// SelectForReconciliation claims up to batchSize payments that are due for a
// provider status check. A payment is due when it is non-terminal, has a
// token, belongs to one of the given providers, still has retry offsets left,
// and its next offset (indexed by the number of status checks already
// recorded) has elapsed since creation. Claimed rows stay locked for the
// lifetime of dbTx; rows locked by concurrent workers are skipped, never
// waited on.
func (p *PaymentModel) SelectForReconciliation(ctx context.Context, dbTx db.DBTransaction, batchSize int, providers []string, retryOffsetSeconds []int64) ([]*Payment, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than 0")
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("providers cannot be empty")
	}
	if len(retryOffsetSeconds) == 0 {
		return nil, fmt.Errorf("retry offsets cannot be empty")
	}

	query := `
		WITH payment_attempts AS (
			SELECT payment_id, COUNT(*) AS attempts
			FROM payments.status_check
			GROUP BY payment_id
		)
		SELECT
			` + selectPaymentColumns + `,
			COALESCE(pa.attempts, 0) AS attempts,
			po.customer_rut AS order_customer_rut
		FROM
			payments.payment p
			LEFT JOIN payment_attempts pa ON pa.payment_id = p.id
			LEFT JOIN payments.payment_order po ON po.id = p.payment_order_id
		WHERE
			p.status = ANY($1) -- ARRAY['PENDING','TO_CONFIRM']::payment_status[]
			AND p.token IS NOT NULL
			AND p.provider = ANY($2)
			AND COALESCE(pa.attempts, 0) < cardinality($3::bigint[])
			AND NOW() >= p.created_at + make_interval(secs => ($3::bigint[])[COALESCE(pa.attempts, 0) + 1])
		ORDER BY p.created_at ASC
		LIMIT $4
		FOR UPDATE OF p SKIP LOCKED
		`

	var payments []*Payment
	err := dbTx.SelectContext(ctx, &payments, query, pq.Array(PaymentNonTerminalStatuses()), pq.Array(providers), pq.Array(retryOffsetSeconds), batchSize)
	if err != nil {
		return nil, fmt.Errorf("selecting payments for reconciliation: %w", err)
	}
	return payments, nil
}

// FindAbandonable claims PENDING payments created at or before the cutoff, so
// the caller can sweep them to ABANDONED. Rows locked elsewhere are skipped.
func (p *PaymentModel) FindAbandonable(ctx context.Context, dbTx db.DBTransaction, cutoff time.Time, limit int) ([]*Payment, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}

	query := `
		SELECT
			` + selectPaymentColumns + `,
			0 AS attempts,
			po.customer_rut AS order_customer_rut
		FROM
			payments.payment p
			LEFT JOIN payments.payment_order po ON po.id = p.payment_order_id
		WHERE
			p.status = $1 -- 'PENDING'::payment_status
			AND p.created_at <= $2
		ORDER BY p.created_at ASC
		LIMIT $3
		FOR UPDATE OF p SKIP LOCKED
		`

	var payments []*Payment
	err := dbTx.SelectContext(ctx, &payments, query, PendingPaymentStatus, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("finding abandonable payments: %w", err)
	}
	return payments, nil
}

// UpdateStatus transitions a payment to targetStatus, stamping the matching
// transition timestamp the first time the status is reached. statusReason and
// authorizationCode only overwrite when non-nil. The update is guarded by the
// status state machine: it only applies while the row still holds one of the
// valid source statuses, otherwise ErrRecordNotFound is returned.
func (p *PaymentModel) UpdateStatus(ctx context.Context, sqlExec db.SQLExecuter, paymentID int64, targetStatus PaymentStatus, statusReason *string, authorizationCode *string) error {
	sourceStatuses := targetStatus.SourceStatuses()
	if len(sourceStatuses) == 0 {
		return fmt.Errorf("no statuses can transition to %s", targetStatus)
	}

	setClauses := []string{
		"status = $1",
		"updated_at = NOW()",
		"status_reason = COALESCE($2, status_reason)",
		"authorization_code = COALESCE($3, authorization_code)",
	}
	if tsColumn := targetStatus.TimestampColumn(); tsColumn != "" {
		setClauses = append(setClauses, fmt.Sprintf("%s = COALESCE(%s, NOW())", tsColumn, tsColumn))
	}

	query := fmt.Sprintf(`
		UPDATE payments.payment
		SET %s
		WHERE id = $4
		AND status = ANY($5)
		`, strings.Join(setClauses, ",\n\t\t\t"))

	result, err := sqlExec.ExecContext(ctx, query, targetStatus, statusReason, authorizationCode, paymentID, pq.Array(sourceStatuses))
	if err != nil {
		return fmt.Errorf("updating payment %d to status %s: %w", paymentID, targetStatus, err)
	}
	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		return fmt.Errorf("payment %d not in a status that can transition to %s: %w", paymentID, targetStatus, ErrRecordNotFound)
	}

	return nil
}

// MarkAbandoned transitions a payment to ABANDONED with the given reason.
func (p *PaymentModel) MarkAbandoned(ctx context.Context, sqlExec db.SQLExecuter, paymentID int64, reason string) error {
	return p.UpdateStatus(ctx, sqlExec, paymentID, AbandonedPaymentStatus, &reason, nil)
}

// Stats aggregates the whole ledger for the ops endpoint.
func (p *PaymentModel) Stats(ctx context.Context, sqlExec db.SQLExecuter) (*PaymentStats, error) {
	stats := PaymentStats{}

	query := `
		SELECT
			COUNT(*) AS total_payments,
			COUNT(*) FILTER (WHERE status = 'AUTHORIZED') AS authorized_payments,
			COALESCE(SUM(amount_minor), 0) AS total_amount_minor,
			MAX(created_at) AS last_payment_at
		FROM payments.payment
		`
	err := sqlExec.GetContext(ctx, &stats, query)
	if err != nil {
		return nil, fmt.Errorf("aggregating payment stats: %w", err)
	}

	currenciesQuery := `
		SELECT DISTINCT context ->> 'currency' AS currency
		FROM payments.payment
		WHERE context IS NOT NULL
		AND context ->> 'currency' IS NOT NULL
		`
	var currencies []string
	err = sqlExec.SelectContext(ctx, &currencies, currenciesQuery)
	if err != nil {
		return nil, fmt.Errorf("aggregating payment currencies: %w", err)
	}

	if len(currencies) == 1 {
		stats.TotalAmountCurrency = &currencies[0]
	} else if len(currencies) > 1 {
		mixed := "MIXED"
		stats.TotalAmountCurrency = &mixed
	}

	return &stats, nil
}
