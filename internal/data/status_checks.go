package data

import (
	"context"
	"fmt"
	"time"

	"github.com/ninjapay/payments-reconciler/db"
)

// StatusCheck is one append-only record per provider poll attempt.
type StatusCheck struct {
	ID             int64          `json:"id" db:"id"`
	PaymentID      int64          `json:"payment_id" db:"payment_id"`
	Provider       string         `json:"provider" db:"provider"`
	Success        bool           `json:"success" db:"success"`
	ProviderStatus *string        `json:"provider_status,omitempty" db:"provider_status"`
	MappedStatus   *PaymentStatus `json:"mapped_status,omitempty" db:"mapped_status"`
	ResponseCode   *int           `json:"response_code,omitempty" db:"response_code"`
	RawPayload     JSONMap        `json:"raw_payload,omitempty" db:"raw_payload"`
	ErrorMessage   *string        `json:"error_message,omitempty" db:"error_message"`
	RequestedAt    time.Time      `json:"requested_at" db:"requested_at"`
}

type StatusCheckInsert struct {
	PaymentID      int64
	Provider       string
	Success        bool
	ProviderStatus *string
	MappedStatus   *PaymentStatus
	ResponseCode   *int
	RawPayload     JSONMap
	ErrorMessage   *string
}

func (sci *StatusCheckInsert) Validate() error {
	if sci.PaymentID == 0 {
		return fmt.Errorf("payment ID is required")
	}
	if sci.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if sci.MappedStatus != nil {
		if err := sci.MappedStatus.Validate(); err != nil {
			return fmt.Errorf("mapped status is invalid: %w", err)
		}
	}
	return nil
}

type StatusCheckModel struct {
	dbConnectionPool db.DBConnectionPool
}

func (s *StatusCheckModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, insert StatusCheckInsert) error {
	if err := insert.Validate(); err != nil {
		return fmt.Errorf("validating status check: %w", err)
	}

	query := `
		INSERT INTO payments.status_check (
			payment_id,
			provider,
			success,
			provider_status,
			mapped_status,
			response_code,
			raw_payload,
			error_message,
			requested_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		`

	_, err := sqlExec.ExecContext(ctx, query,
		insert.PaymentID,
		insert.Provider,
		insert.Success,
		insert.ProviderStatus,
		insert.MappedStatus,
		insert.ResponseCode,
		insert.RawPayload,
		insert.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("inserting status check for payment %d: %w", insert.PaymentID, err)
	}

	return nil
}

// CountForPayment returns how many status checks have been recorded for a
// payment. This count indexes into the retry schedule.
func (s *StatusCheckModel) CountForPayment(ctx context.Context, sqlExec db.SQLExecuter, paymentID int64) (int, error) {
	var count int

	query := `
		SELECT COUNT(*)
		FROM payments.status_check
		WHERE payment_id = $1
		`

	err := sqlExec.GetContext(ctx, &count, query, paymentID)
	if err != nil {
		return 0, fmt.Errorf("counting status checks for payment %d: %w", paymentID, err)
	}

	return count, nil
}

// GetAllForPayment returns the status checks for a payment in request order.
func (s *StatusCheckModel) GetAllForPayment(ctx context.Context, sqlExec db.SQLExecuter, paymentID int64) ([]StatusCheck, error) {
	checks := make([]StatusCheck, 0)

	query := `
		SELECT
			id,
			payment_id,
			provider,
			success,
			provider_status,
			mapped_status,
			response_code,
			raw_payload,
			error_message,
			requested_at
		FROM payments.status_check
		WHERE payment_id = $1
		ORDER BY requested_at ASC, id ASC
		`

	err := sqlExec.SelectContext(ctx, &checks, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("getting status checks for payment %d: %w", paymentID, err)
	}

	return checks, nil
}
