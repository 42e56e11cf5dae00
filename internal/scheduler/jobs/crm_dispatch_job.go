package jobs

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ninjapay/payments-reconciler/internal/crm"
	"github.com/ninjapay/payments-reconciler/internal/data"
	"github.com/ninjapay/payments-reconciler/internal/monitor"
	"github.com/ninjapay/payments-reconciler/internal/services"
	"github.com/ninjapay/payments-reconciler/internal/utils"
)

type CRMDispatchJobOptions struct {
	JobIntervalSeconds int
	Models             *data.Models
	Client             crm.ClientInterface
	MonitorService     monitor.MonitorServiceInterface
	RetryBackoff       []int64
	BatchSize          int
}

// NewCRMDispatchJob wires the CRM sending service into a scheduler job.
// Construction happens at boot, so configuration errors are fatal.
func NewCRMDispatchJob(opts CRMDispatchJobOptions) Job {
	dispatchService, err := services.NewCRMDispatchService(services.CRMDispatchServiceOptions{
		Models:         opts.Models,
		Client:         opts.Client,
		MonitorService: opts.MonitorService,
		RetryBackoff:   opts.RetryBackoff,
		BatchSize:      opts.BatchSize,
	})
	if err != nil {
		log.Fatalf("instantiating CRM dispatch job: %s", err)
	}

	return &crmDispatchJob{
		jobIntervalSeconds: opts.JobIntervalSeconds,
		dispatchService:    dispatchService,
	}
}

type crmDispatchJob struct {
	jobIntervalSeconds int
	dispatchService    services.CRMDispatchServiceInterface
}

func (j crmDispatchJob) GetInterval() time.Duration {
	jobIntervalSeconds := j.jobIntervalSeconds
	if j.jobIntervalSeconds == 0 {
		log.Warnf("job interval is not set for %s. Using default interval: %d seconds", j.GetName(), DefaultMinimumJobIntervalSeconds)
		jobIntervalSeconds = DefaultMinimumJobIntervalSeconds
	}
	return time.Duration(jobIntervalSeconds) * time.Second
}

func (j crmDispatchJob) GetName() string {
	return utils.GetTypeName(j)
}

func (j crmDispatchJob) Execute(ctx context.Context) error {
	if _, err := j.dispatchService.Dispatch(ctx); err != nil {
		return fmt.Errorf("executing Job %s: %w", j.GetName(), err)
	}
	return nil
}

var _ Job = (*crmDispatchJob)(nil)
