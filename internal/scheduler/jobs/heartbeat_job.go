package jobs

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ninjapay/payments-reconciler/internal/data"
	"github.com/ninjapay/payments-reconciler/internal/utils"
)

type HeartbeatJobOptions struct {
	JobIntervalSeconds int
	AppName            string
	InstanceID         string
	Models             *data.Models
}

// NewHeartbeatJob wires the periodic liveness row. The heartbeat cadence
// tells operators a dead poller apart from a merely idle one.
func NewHeartbeatJob(opts HeartbeatJobOptions) Job {
	if opts.Models == nil {
		log.Fatalf("instantiating heartbeat job: models cannot be nil")
	}
	if opts.InstanceID == "" {
		log.Fatalf("instantiating heartbeat job: instance ID cannot be empty")
	}

	return &heartbeatJob{
		jobIntervalSeconds: opts.JobIntervalSeconds,
		appName:            opts.AppName,
		instanceID:         opts.InstanceID,
		models:             opts.Models,
	}
}

type heartbeatJob struct {
	jobIntervalSeconds int
	appName            string
	instanceID         string
	models             *data.Models
}

func (j heartbeatJob) GetInterval() time.Duration {
	jobIntervalSeconds := j.jobIntervalSeconds
	if j.jobIntervalSeconds == 0 {
		log.Warnf("job interval is not set for %s. Using default interval: %d seconds", j.GetName(), DefaultMinimumJobIntervalSeconds)
		jobIntervalSeconds = DefaultMinimumJobIntervalSeconds
	}
	return time.Duration(jobIntervalSeconds) * time.Second
}

func (j heartbeatJob) GetName() string {
	return utils.GetTypeName(j)
}

func (j heartbeatJob) Execute(ctx context.Context) error {
	err := j.models.RuntimeLog.Insert(ctx, j.models.DBConnectionPool, j.instanceID, data.HeartbeatRuntimeEventType, data.JSONMap{
		"app": j.appName,
	})
	if err != nil {
		return fmt.Errorf("executing Job %s: %w", j.GetName(), err)
	}
	return nil
}

var _ Job = (*heartbeatJob)(nil)
