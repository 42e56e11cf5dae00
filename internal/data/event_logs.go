package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ninjapay/payments-reconciler/db"
)

type EventDirection string

const (
	OutboundEventDirection EventDirection = "OUTBOUND"
	InboundEventDirection  EventDirection = "INBOUND"
)

type ProviderOperation string

const (
	StatusProviderOperation  ProviderOperation = "STATUS"
	CaptureProviderOperation ProviderOperation = "CAPTURE"
	RefundProviderOperation  ProviderOperation = "REFUND"
)

// sensitiveHeaders are the credential-bearing header names that must never
// reach an event log, compared case-insensitively.
var sensitiveHeaders = map[string]struct{}{
	"authorization":      {},
	"x-api-key":          {},
	"api-key":            {},
	"tbk-api-key-secret": {},
}

// MaskHeaders returns a copy of headers with credential values replaced by
// "***". Every event-log write goes through this, so callers never need to
// mask on their own.
func MaskHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}

	masked := make(map[string]string, len(headers))
	for name, value := range headers {
		if _, ok := sensitiveHeaders[strings.ToLower(name)]; ok {
			masked[name] = "***"
		} else {
			masked[name] = value
		}
	}
	return masked
}

// headersJSON converts a header map into a JSONB-storable map. A nil input
// yields an empty, non-NULL object so the NOT NULL column is satisfied.
func headersJSON(headers map[string]string) JSONMap {
	m := make(JSONMap, len(headers))
	for name, value := range headers {
		m[name] = value
	}
	return m
}

// nullableHeadersJSON is headersJSON for nullable columns: nil stays NULL.
func nullableHeadersJSON(headers map[string]string) JSONMap {
	if headers == nil {
		return nil
	}
	return headersJSON(headers)
}

// ProviderEvent is the forensic record of one HTTP exchange with a PSP.
type ProviderEvent struct {
	ID              int64             `json:"id" db:"id"`
	PaymentID       int64             `json:"payment_id" db:"payment_id"`
	Provider        string            `json:"provider" db:"provider"`
	Direction       EventDirection    `json:"direction" db:"direction"`
	Operation       ProviderOperation `json:"operation" db:"operation"`
	RequestURL      string            `json:"request_url" db:"request_url"`
	RequestHeaders  JSONMap           `json:"request_headers" db:"request_headers"`
	RequestBody     JSONMap           `json:"request_body,omitempty" db:"request_body"`
	ResponseStatus  *int              `json:"response_status,omitempty" db:"response_status"`
	ResponseHeaders JSONMap           `json:"response_headers,omitempty" db:"response_headers"`
	ResponseBody    JSONMap           `json:"response_body,omitempty" db:"response_body"`
	ErrorMessage    *string           `json:"error_message,omitempty" db:"error_message"`
	LatencyMS       *int64            `json:"latency_ms,omitempty" db:"latency_ms"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
}

type ProviderEventInsert struct {
	PaymentID       int64
	Provider        string
	Direction       EventDirection
	Operation       ProviderOperation
	RequestURL      string
	RequestHeaders  map[string]string
	RequestBody     JSONMap
	ResponseStatus  *int
	ResponseHeaders map[string]string
	ResponseBody    JSONMap
	ErrorMessage    *string
	LatencyMS       *int64
}

type ProviderEventModel struct {
	dbConnectionPool db.DBConnectionPool
}

func (m *ProviderEventModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, insert ProviderEventInsert) error {
	if insert.Direction == "" {
		insert.Direction = OutboundEventDirection
	}
	if insert.Operation == "" {
		insert.Operation = StatusProviderOperation
	}

	query := `
		INSERT INTO payments.provider_event_log (
			payment_id,
			provider,
			direction,
			operation,
			request_url,
			request_headers,
			request_body,
			response_status,
			response_headers,
			response_body,
			error_message,
			latency_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`

	_, err := sqlExec.ExecContext(ctx, query,
		insert.PaymentID,
		insert.Provider,
		insert.Direction,
		insert.Operation,
		insert.RequestURL,
		headersJSON(MaskHeaders(insert.RequestHeaders)),
		insert.RequestBody,
		insert.ResponseStatus,
		nullableHeadersJSON(MaskHeaders(insert.ResponseHeaders)),
		insert.ResponseBody,
		insert.ErrorMessage,
		insert.LatencyMS,
	)
	if err != nil {
		return fmt.Errorf("inserting provider event for payment %d: %w", insert.PaymentID, err)
	}

	return nil
}

// GetAllForPayment returns the provider events for a payment, oldest first.
func (m *ProviderEventModel) GetAllForPayment(ctx context.Context, sqlExec db.SQLExecuter, paymentID int64) ([]ProviderEvent, error) {
	events := make([]ProviderEvent, 0)

	query := `
		SELECT
			id,
			payment_id,
			provider,
			direction,
			operation,
			request_url,
			request_headers,
			request_body,
			response_status,
			response_headers,
			response_body,
			error_message,
			latency_ms,
			created_at
		FROM payments.provider_event_log
		WHERE payment_id = $1
		ORDER BY created_at ASC, id ASC
		`

	err := sqlExec.SelectContext(ctx, &events, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("getting provider events for payment %d: %w", paymentID, err)
	}

	return events, nil
}

// CRMEvent mirrors ProviderEvent for calls to the CRM.
type CRMEvent struct {
	ID              int64     `json:"id" db:"id"`
	PaymentID       int64     `json:"payment_id" db:"payment_id"`
	Operation       string    `json:"operation" db:"operation"`
	RequestURL      string    `json:"request_url" db:"request_url"`
	RequestHeaders  JSONMap   `json:"request_headers" db:"request_headers"`
	RequestBody     JSONMap   `json:"request_body,omitempty" db:"request_body"`
	ResponseStatus  *int      `json:"response_status,omitempty" db:"response_status"`
	ResponseHeaders JSONMap   `json:"response_headers,omitempty" db:"response_headers"`
	ResponseBody    JSONMap   `json:"response_body,omitempty" db:"response_body"`
	ErrorMessage    *string   `json:"error_message,omitempty" db:"error_message"`
	LatencyMS       *int64    `json:"latency_ms,omitempty" db:"latency_ms"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

type CRMEventInsert struct {
	PaymentID       int64
	Operation       string
	RequestURL      string
	RequestHeaders  map[string]string
	RequestBody     JSONMap
	ResponseStatus  *int
	ResponseHeaders map[string]string
	ResponseBody    JSONMap
	ErrorMessage    *string
	LatencyMS       *int64
}

type CRMEventModel struct {
	dbConnectionPool db.DBConnectionPool
}

func (m *CRMEventModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, insert CRMEventInsert) error {
	query := `
		INSERT INTO payments.crm_event_log (
			payment_id,
			operation,
			request_url,
			request_headers,
			request_body,
			response_status,
			response_headers,
			response_body,
			error_message,
			latency_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`

	_, err := sqlExec.ExecContext(ctx, query,
		insert.PaymentID,
		insert.Operation,
		insert.RequestURL,
		headersJSON(MaskHeaders(insert.RequestHeaders)),
		insert.RequestBody,
		insert.ResponseStatus,
		nullableHeadersJSON(MaskHeaders(insert.ResponseHeaders)),
		insert.ResponseBody,
		insert.ErrorMessage,
		insert.LatencyMS,
	)
	if err != nil {
		return fmt.Errorf("inserting CRM event for payment %d: %w", insert.PaymentID, err)
	}

	return nil
}

// GetAllForPayment returns the CRM events for a payment, oldest first.
func (m *CRMEventModel) GetAllForPayment(ctx context.Context, sqlExec db.SQLExecuter, paymentID int64) ([]CRMEvent, error) {
	events := make([]CRMEvent, 0)

	query := `
		SELECT
			id,
			payment_id,
			operation,
			request_url,
			request_headers,
			request_body,
			response_status,
			response_headers,
			response_body,
			error_message,
			latency_ms,
			created_at
		FROM payments.crm_event_log
		WHERE payment_id = $1
		ORDER BY created_at ASC, id ASC
		`

	err := sqlExec.SelectContext(ctx, &events, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("getting CRM events for payment %d: %w", paymentID, err)
	}

	return events, nil
}
