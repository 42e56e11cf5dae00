package services

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ninjapay/payments-reconciler/db"
	"github.com/ninjapay/payments-reconciler/internal/crm"
	"github.com/ninjapay/payments-reconciler/internal/data"
	"github.com/ninjapay/payments-reconciler/internal/monitor"
)

const defaultCRMSendError = "CRM send failed"

// DispatchStats summarizes one sender cycle. Retried counts FAILED items
// whose backoff elapsed and were moved back to PENDING at the start of the
// cycle; they may also count in Sent or Failed when claimed right after.
type DispatchStats struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Retried int `json:"retried"`
}

type CRMDispatchServiceInterface interface {
	Dispatch(ctx context.Context) (DispatchStats, error)
}

// CRMDispatchService drives the outbound side of reconciliation: it claims
// runnable queue items, POSTs their frozen payloads to the CRM and schedules
// retries with the configured backoff until the budget runs out.
type CRMDispatchService struct {
	models         *data.Models
	client         crm.ClientInterface
	monitorService monitor.MonitorServiceInterface
	retryBackoff   []int64
	batchSize      int
}

var _ CRMDispatchServiceInterface = new(CRMDispatchService)

type CRMDispatchServiceOptions struct {
	Models         *data.Models
	Client         crm.ClientInterface
	MonitorService monitor.MonitorServiceInterface

	// RetryBackoff holds the delays in seconds before retry k+1, indexed by
	// the number of attempts already made. An item failing with no offsets
	// left becomes permanently FAILED.
	RetryBackoff []int64
	BatchSize    int
}

func (opts CRMDispatchServiceOptions) Validate() error {
	if opts.Models == nil {
		return fmt.Errorf("models cannot be nil")
	}
	if opts.Client == nil {
		return fmt.Errorf("CRM client cannot be nil")
	}
	if opts.MonitorService == nil {
		return fmt.Errorf("monitor service cannot be nil")
	}
	if len(opts.RetryBackoff) == 0 {
		return fmt.Errorf("retry backoff cannot be empty")
	}
	if opts.BatchSize <= 0 {
		return fmt.Errorf("batch size must be greater than 0")
	}
	return nil
}

func NewCRMDispatchService(opts CRMDispatchServiceOptions) (*CRMDispatchService, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("validating CRM dispatch service options: %w", err)
	}

	return &CRMDispatchService{
		models:         opts.Models,
		client:         opts.Client,
		monitorService: opts.MonitorService,
		retryBackoff:   opts.RetryBackoff,
		batchSize:      opts.BatchSize,
	}, nil
}

// Dispatch runs one sender cycle: reactivate FAILED items whose backoff has
// elapsed, claim a batch of runnable PENDING items and push each to the CRM.
// Delivery failures are recorded and rescheduled without stopping the batch;
// a database error rolls the whole batch back so the items are claimed again
// next cycle.
func (s *CRMDispatchService) Dispatch(ctx context.Context) (DispatchStats, error) {
	stats := DispatchStats{}

	reactivated, err := s.models.CRMQueue.ReactivateDueFailed(ctx, s.models.DBConnectionPool, s.batchSize)
	if err != nil {
		return stats, fmt.Errorf("reactivating due FAILED CRM items: %w", err)
	}
	stats.Retried = int(reactivated)
	if reactivated > 0 {
		log.WithContext(ctx).Infof("reactivated %d CRM items due for retry", reactivated)
	}

	err = db.RunInTransaction(ctx, s.models.DBConnectionPool, nil, func(dbTx db.DBTransaction) error {
		items, err := s.models.CRMQueue.ClaimPending(ctx, dbTx, s.batchSize)
		if err != nil {
			return fmt.Errorf("claiming pending CRM items: %w", err)
		}

		for _, item := range items {
			if err = s.dispatchItem(ctx, dbTx, item, &stats); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return DispatchStats{Retried: stats.Retried}, fmt.Errorf("dispatching CRM queue: %w", err)
	}

	if stats.Sent > 0 || stats.Failed > 0 {
		log.WithContext(ctx).Infof("dispatched CRM queue: %d sent, %d failed, %d retried", stats.Sent, stats.Failed, stats.Retried)
	}

	return stats, nil
}

func (s *CRMDispatchService) dispatchItem(ctx context.Context, dbTx db.DBTransaction, item *data.CRMQueueItem, stats *DispatchStats) error {
	result := s.client.Send(ctx, item.Payload)
	s.monitorPush(ctx, item.Operation, result)

	// A zero status code means the request never completed, which the event
	// log records as a NULL response status.
	var responseStatus *int
	if result.StatusCode != 0 {
		responseStatus = &result.StatusCode
	}

	latencyMS := result.LatencyMS
	err := s.models.CRMEvents.Insert(ctx, dbTx, data.CRMEventInsert{
		PaymentID:       item.PaymentID,
		Operation:       item.Operation,
		RequestURL:      s.client.Endpoint(),
		RequestHeaders:  result.RequestHeaders,
		RequestBody:     result.RequestBody,
		ResponseStatus:  responseStatus,
		ResponseHeaders: result.ResponseHeaders,
		ResponseBody:    result.ResponseBody,
		ErrorMessage:    result.ErrorMessage,
		LatencyMS:       &latencyMS,
	})
	if err != nil {
		return fmt.Errorf("recording CRM event for payment %d: %w", item.PaymentID, err)
	}

	if result.Succeeded() {
		if err = s.models.CRMQueue.MarkSent(ctx, dbTx, item.ID, result.StatusCode, result.CRMID); err != nil {
			return fmt.Errorf("marking CRM item %d sent: %w", item.ID, err)
		}
		stats.Sent++
		log.WithContext(ctx).Infof("CRM %s push for payment %d accepted with status %d", item.Operation, item.PaymentID, result.StatusCode)
		return nil
	}

	attempts := item.Attempts + 1
	var nextAttemptAt *time.Time
	if item.Attempts < len(s.retryBackoff) {
		next := time.Now().Add(time.Duration(s.retryBackoff[item.Attempts]) * time.Second)
		nextAttemptAt = &next
	}

	errorMessage := defaultCRMSendError
	if result.ErrorMessage != nil {
		errorMessage = *result.ErrorMessage
	}

	if err = s.models.CRMQueue.MarkFailed(ctx, dbTx, item.ID, attempts, nextAttemptAt, responseStatus, errorMessage); err != nil {
		return fmt.Errorf("marking CRM item %d failed: %w", item.ID, err)
	}
	stats.Failed++

	if nextAttemptAt == nil {
		log.WithContext(ctx).Warnf("CRM %s push for payment %d failed permanently after %d attempts: %s", item.Operation, item.PaymentID, attempts, errorMessage)
	} else {
		log.WithContext(ctx).Warnf("CRM %s push for payment %d failed (attempt %d), next try at %s: %s", item.Operation, item.PaymentID, attempts, nextAttemptAt.Format(time.RFC3339), errorMessage)
	}

	return nil
}

func (s *CRMDispatchService) monitorPush(ctx context.Context, operation string, result crm.SendResult) {
	status, statusCode := monitor.ParseRequestStatus(result.Succeeded(), result.StatusCode)
	labels := monitor.CRMPushLabels{
		Operation:  operation,
		Status:     status,
		StatusCode: statusCode,
	}

	err := s.monitorService.MonitorHistogram(float64(result.LatencyMS)/1000, monitor.CRMPushRequestDurationTag, labels.ToMap())
	if err != nil {
		log.WithContext(ctx).Errorf("Error trying to monitor CRM push duration: %s", err)
	}
	err = s.monitorService.MonitorCounters(monitor.CRMPushRequestsTotalTag, labels.ToMap())
	if err != nil {
		log.WithContext(ctx).Errorf("Error trying to monitor CRM push counter: %s", err)
	}
}
