package jobs

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ninjapay/payments-reconciler/internal/data"
	"github.com/ninjapay/payments-reconciler/internal/monitor"
	"github.com/ninjapay/payments-reconciler/internal/provider"
	"github.com/ninjapay/payments-reconciler/internal/services"
	"github.com/ninjapay/payments-reconciler/internal/utils"
)

type ReconciliationJobOptions struct {
	JobIntervalSeconds int
	Models             *data.Models
	Registry           provider.Registry
	MonitorService     monitor.MonitorServiceInterface
	AttemptOffsets     []int64
	BatchSize          int
	AbandonedAfter     time.Duration
	NotifyAbandoned    bool
}

// NewReconciliationJob wires the provider polling service into a scheduler
// job. Construction happens at boot, so configuration errors are fatal.
func NewReconciliationJob(opts ReconciliationJobOptions) Job {
	reconciliationService, err := services.NewReconciliationService(services.ReconciliationServiceOptions{
		Models:          opts.Models,
		Registry:        opts.Registry,
		MonitorService:  opts.MonitorService,
		AttemptOffsets:  opts.AttemptOffsets,
		BatchSize:       opts.BatchSize,
		AbandonedAfter:  opts.AbandonedAfter,
		NotifyAbandoned: opts.NotifyAbandoned,
	})
	if err != nil {
		log.Fatalf("instantiating reconciliation job: %s", err)
	}

	return &reconciliationJob{
		jobIntervalSeconds:    opts.JobIntervalSeconds,
		reconciliationService: reconciliationService,
	}
}

type reconciliationJob struct {
	jobIntervalSeconds    int
	reconciliationService services.ReconciliationServiceInterface
}

func (j reconciliationJob) GetInterval() time.Duration {
	jobIntervalSeconds := j.jobIntervalSeconds
	if j.jobIntervalSeconds == 0 {
		log.Warnf("job interval is not set for %s. Using default interval: %d seconds", j.GetName(), DefaultMinimumJobIntervalSeconds)
		jobIntervalSeconds = DefaultMinimumJobIntervalSeconds
	}
	return time.Duration(jobIntervalSeconds) * time.Second
}

func (j reconciliationJob) GetName() string {
	return utils.GetTypeName(j)
}

// Execute runs one polling cycle, then sweeps payments that have lingered in
// PENDING beyond the configured timeout.
func (j reconciliationJob) Execute(ctx context.Context) error {
	if _, err := j.reconciliationService.Reconcile(ctx); err != nil {
		return fmt.Errorf("executing Job %s: %w", j.GetName(), err)
	}
	if _, err := j.reconciliationService.SweepAbandoned(ctx); err != nil {
		return fmt.Errorf("executing Job %s: %w", j.GetName(), err)
	}
	return nil
}

var _ Job = (*reconciliationJob)(nil)
