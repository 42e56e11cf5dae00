package services

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ninjapay/payments-reconciler/db"
	"github.com/ninjapay/payments-reconciler/internal/data"
	"github.com/ninjapay/payments-reconciler/internal/monitor"
	"github.com/ninjapay/payments-reconciler/internal/provider"
	"github.com/ninjapay/payments-reconciler/internal/utils"
)

// Status reasons stamped onto payment rows by the reconciler.
const (
	reconciliationUpdateReason = "provider reconciliation update"
	exhaustedAbandonReason     = "reconcile attempts exhausted"
	timeoutAbandonReason       = "abandoned timeout"
)

// ReconcileStats summarizes one poller cycle. A payment counts in exactly one
// of Updated, Failed or Skipped; Abandoned additionally counts exhaustion
// transitions made during the same cycle.
type ReconcileStats struct {
	Payments  int `json:"payments"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Abandoned int `json:"abandoned"`
}

type ReconciliationServiceInterface interface {
	Reconcile(ctx context.Context) (ReconcileStats, error)
	SweepAbandoned(ctx context.Context) (int, error)
}

// ReconciliationService drives the PSP polling side of reconciliation: it
// claims payments due for a status check, asks the provider adapter, persists
// the evidence, advances the payment state machine and enqueues CRM pushes
// for authorized payments.
type ReconciliationService struct {
	models          *data.Models
	registry        provider.Registry
	monitorService  monitor.MonitorServiceInterface
	attemptOffsets  []int64
	batchSize       int
	abandonedAfter  time.Duration
	notifyAbandoned bool
}

var _ ReconciliationServiceInterface = new(ReconciliationService)

type ReconciliationServiceOptions struct {
	Models         *data.Models
	Registry       provider.Registry
	MonitorService monitor.MonitorServiceInterface

	// AttemptOffsets is the retry schedule in seconds since the payment was
	// created, indexed by the number of status checks already recorded.
	AttemptOffsets []int64
	BatchSize      int

	// AbandonedAfter is how long a PENDING payment may linger before the sweep
	// abandons it regardless of its retry schedule.
	AbandonedAfter time.Duration

	// NotifyAbandoned enqueues an ABANDONED_CART push whenever a payment is
	// abandoned. Off by default: abandonment is recorded locally only.
	NotifyAbandoned bool
}

func (opts ReconciliationServiceOptions) Validate() error {
	if opts.Models == nil {
		return fmt.Errorf("models cannot be nil")
	}
	if len(opts.Registry) == 0 {
		return fmt.Errorf("provider registry cannot be empty")
	}
	if opts.MonitorService == nil {
		return fmt.Errorf("monitor service cannot be nil")
	}
	if len(opts.AttemptOffsets) == 0 {
		return fmt.Errorf("attempt offsets cannot be empty")
	}
	if opts.BatchSize <= 0 {
		return fmt.Errorf("batch size must be greater than 0")
	}
	if opts.AbandonedAfter <= 0 {
		return fmt.Errorf("abandoned timeout must be greater than 0")
	}
	return nil
}

func NewReconciliationService(opts ReconciliationServiceOptions) (*ReconciliationService, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("validating reconciliation service options: %w", err)
	}

	return &ReconciliationService{
		models:          opts.Models,
		registry:        opts.Registry,
		monitorService:  opts.MonitorService,
		attemptOffsets:  opts.AttemptOffsets,
		batchSize:       opts.BatchSize,
		abandonedAfter:  opts.AbandonedAfter,
		notifyAbandoned: opts.NotifyAbandoned,
	}, nil
}

// Reconcile runs one poller cycle: it claims a batch of payments due for a
// status check and processes each within the same transaction. Recorded
// provider failures do not stop the batch; a database error rolls the whole
// batch back, leaving every claimed payment eligible for the next cycle.
func (s *ReconciliationService) Reconcile(ctx context.Context) (ReconcileStats, error) {
	stats := ReconcileStats{}

	err := db.RunInTransaction(ctx, s.models.DBConnectionPool, nil, func(dbTx db.DBTransaction) error {
		payments, err := s.models.Payments.SelectForReconciliation(ctx, dbTx, s.batchSize, s.registry.Names(), s.attemptOffsets)
		if err != nil {
			return fmt.Errorf("claiming payments due for reconciliation: %w", err)
		}
		stats.Payments = len(payments)

		for _, payment := range payments {
			if err = s.reconcilePayment(ctx, dbTx, payment, &stats); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ReconcileStats{}, fmt.Errorf("reconciling payments batch: %w", err)
	}

	if stats.Payments > 0 {
		log.WithContext(ctx).Infof("reconciled %d payments: %d updated, %d failed, %d skipped, %d abandoned",
			stats.Payments, stats.Updated, stats.Failed, stats.Skipped, stats.Abandoned)
	}

	return stats, nil
}

func (s *ReconciliationService) reconcilePayment(ctx context.Context, dbTx db.DBTransaction, payment *data.Payment, stats *ReconcileStats) error {
	client, ok := s.registry.Get(payment.Provider)
	if !ok {
		// The claim query filters by registered providers, so this only fires
		// when the registry changed mid-cycle.
		log.WithContext(ctx).Warnf("no adapter registered for provider %q, skipping payment %d", payment.Provider, payment.ID)
		stats.Skipped++
		return nil
	}

	result, record := client.Status(ctx, *payment.Token, payment.Context)

	latencyMS := record.LatencyMS
	err := s.models.ProviderEvents.Insert(ctx, dbTx, data.ProviderEventInsert{
		PaymentID:       payment.ID,
		Provider:        payment.Provider,
		Direction:       data.OutboundEventDirection,
		Operation:       data.StatusProviderOperation,
		RequestURL:      record.RequestURL,
		RequestHeaders:  record.RequestHeaders,
		RequestBody:     record.RequestBody,
		ResponseStatus:  record.ResponseStatus,
		ResponseHeaders: record.ResponseHeaders,
		ResponseBody:    record.ResponseBody,
		ErrorMessage:    record.ErrorMessage,
		LatencyMS:       &latencyMS,
	})
	if err != nil {
		return fmt.Errorf("recording provider event for payment %d: %w", payment.ID, err)
	}

	err = s.models.StatusChecks.Insert(ctx, dbTx, data.StatusCheckInsert{
		PaymentID:      payment.ID,
		Provider:       payment.Provider,
		Success:        result.Success,
		ProviderStatus: result.ProviderStatus,
		MappedStatus:   result.MappedStatus,
		ResponseCode:   result.ResponseCode,
		RawPayload:     result.RawPayload,
		ErrorMessage:   result.ErrorMessage,
	})
	if err != nil {
		return fmt.Errorf("recording status check for payment %d: %w", payment.ID, err)
	}

	s.monitorProviderCall(ctx, payment.Provider, result, record)

	if result.ErrorMessage != nil {
		log.WithContext(ctx).Errorf("status check failed for payment %d on %s: %s", payment.ID, payment.Provider, *result.ErrorMessage)
	}

	mapped := result.MappedStatus
	if result.Success && mapped != nil && *mapped != payment.Status {
		if transitionErr := payment.Status.TransitionTo(*mapped); transitionErr != nil {
			// Providers can momentarily report an earlier state, e.g. PayPal
			// answering CREATED for an order already seen APPROVED. The check
			// stays recorded, the row stays put.
			log.WithContext(ctx).Warnf("ignoring provider status %s for payment %d in %s: %s", *mapped, payment.ID, payment.Status, transitionErr)
			stats.Skipped++
			return nil
		}
		return s.applyTransition(ctx, dbTx, payment, result, stats)
	}

	if !result.Success {
		stats.Failed++
	} else {
		stats.Skipped++
	}

	if !result.Success || mapped == nil {
		abandoned, abandonErr := s.abandonIfExhausted(ctx, dbTx, payment)
		if abandonErr != nil {
			return abandonErr
		}
		if abandoned {
			stats.Abandoned++
		}
	}

	return nil
}

// applyTransition moves the payment to the status the provider reported and
// enqueues the CRM push when the payment became AUTHORIZED.
func (s *ReconciliationService) applyTransition(ctx context.Context, dbTx db.DBTransaction, payment *data.Payment, result provider.StatusResult, stats *ReconcileStats) error {
	newStatus := *result.MappedStatus

	// The adapter's reason wins when it gave one (e.g. an acquirer result
	// code); otherwise terminal transitions get a fixed marker and
	// non-terminal ones keep whatever reason the row already had.
	statusReason := result.StatusReason
	if statusReason == nil && newStatus.IsTerminal() {
		statusReason = utils.StringPtr(reconciliationUpdateReason)
	}

	err := s.models.Payments.UpdateStatus(ctx, dbTx, payment.ID, newStatus, statusReason, result.AuthorizationCode)
	if err != nil {
		return fmt.Errorf("transitioning payment %d to %s: %w", payment.ID, newStatus, err)
	}
	stats.Updated++
	s.monitorReconciled(ctx, payment.Provider, newStatus)

	previousStatus := payment.Status
	payment.Status = newStatus
	if result.AuthorizationCode != nil && *result.AuthorizationCode != "" {
		payment.AuthorizationCode = result.AuthorizationCode
	}

	log.WithContext(ctx).Infof("payment %d reconciled on %s: %s -> %s", payment.ID, payment.Provider, previousStatus, newStatus)

	if newStatus == data.AuthorizedPaymentStatus {
		err = s.models.CRMQueue.Enqueue(ctx, dbTx, payment.ID, data.CRMOperationPagar, BuildCRMPayload(payment))
		if err != nil {
			return fmt.Errorf("enqueueing CRM %s push for payment %d: %w", data.CRMOperationPagar, payment.ID, err)
		}
		log.WithContext(ctx).Infof("enqueued CRM %s push for payment %d", data.CRMOperationPagar, payment.ID)
	}

	return nil
}

// abandonIfExhausted abandons the payment once every configured retry offset
// has been spent on a check that could not resolve a status.
func (s *ReconciliationService) abandonIfExhausted(ctx context.Context, dbTx db.DBTransaction, payment *data.Payment) (bool, error) {
	attempts, err := s.models.StatusChecks.CountForPayment(ctx, dbTx, payment.ID)
	if err != nil {
		return false, fmt.Errorf("counting status checks for payment %d: %w", payment.ID, err)
	}
	if attempts < len(s.attemptOffsets) {
		return false, nil
	}

	if err = s.abandon(ctx, dbTx, payment, exhaustedAbandonReason); err != nil {
		return false, err
	}
	log.WithContext(ctx).Warnf("payment %d abandoned after %d unresolved status checks", payment.ID, attempts)
	return true, nil
}

func (s *ReconciliationService) abandon(ctx context.Context, sqlExec db.SQLExecuter, payment *data.Payment, reason string) error {
	if err := s.models.Payments.MarkAbandoned(ctx, sqlExec, payment.ID, reason); err != nil {
		return fmt.Errorf("marking payment %d abandoned: %w", payment.ID, err)
	}
	s.monitorReconciled(ctx, payment.Provider, data.AbandonedPaymentStatus)

	if !s.notifyAbandoned {
		return nil
	}
	err := s.models.CRMQueue.Enqueue(ctx, sqlExec, payment.ID, data.CRMOperationAbandonedCart, BuildCRMPayload(payment))
	if err != nil {
		return fmt.Errorf("enqueueing CRM %s push for payment %d: %w", data.CRMOperationAbandonedCart, payment.ID, err)
	}
	return nil
}

// SweepAbandoned abandons PENDING payments older than the configured timeout.
// It runs in its own transaction, after the reconciliation batch, and returns
// how many payments it abandoned.
func (s *ReconciliationService) SweepAbandoned(ctx context.Context) (int, error) {
	abandoned := 0

	err := db.RunInTransaction(ctx, s.models.DBConnectionPool, nil, func(dbTx db.DBTransaction) error {
		cutoff := time.Now().Add(-s.abandonedAfter)
		payments, err := s.models.Payments.FindAbandonable(ctx, dbTx, cutoff, s.batchSize)
		if err != nil {
			return fmt.Errorf("finding abandonable payments: %w", err)
		}

		for _, payment := range payments {
			if err = s.abandon(ctx, dbTx, payment, timeoutAbandonReason); err != nil {
				return err
			}
			abandoned++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("sweeping abandoned payments: %w", err)
	}

	if abandoned > 0 {
		log.WithContext(ctx).Infof("abandoned %d payments older than %s", abandoned, s.abandonedAfter)
	}

	return abandoned, nil
}

func (s *ReconciliationService) monitorProviderCall(ctx context.Context, providerName string, result provider.StatusResult, record provider.CallRecord) {
	httpStatus := 0
	if record.ResponseStatus != nil {
		httpStatus = *record.ResponseStatus
	}
	status, statusCode := monitor.ParseRequestStatus(result.Success, httpStatus)
	labels := monitor.ProviderLabels{
		Provider:   providerName,
		Operation:  string(data.StatusProviderOperation),
		Status:     status,
		StatusCode: statusCode,
	}

	err := s.monitorService.MonitorHistogram(float64(record.LatencyMS)/1000, monitor.ProviderAPIRequestDurationTag, labels.ToMap())
	if err != nil {
		log.WithContext(ctx).Errorf("Error trying to monitor provider request duration: %s", err)
	}
	err = s.monitorService.MonitorCounters(monitor.ProviderAPIRequestsTotalTag, labels.ToMap())
	if err != nil {
		log.WithContext(ctx).Errorf("Error trying to monitor provider requests counter: %s", err)
	}
}

func (s *ReconciliationService) monitorReconciled(ctx context.Context, providerName string, newStatus data.PaymentStatus) {
	labels := monitor.PaymentLabels{Provider: providerName, Status: string(newStatus)}
	err := s.monitorService.MonitorCounters(monitor.PaymentsReconciledCounterTag, labels.ToMap())
	if err != nil {
		log.WithContext(ctx).Errorf("Error trying to monitor payments reconciled counter: %s", err)
	}
}
