package scheduler

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ninjapay/payments-reconciler/internal/crashtracker"
	"github.com/ninjapay/payments-reconciler/internal/data"
	"github.com/ninjapay/payments-reconciler/internal/scheduler/jobs"
)

// Scheduler manages a list of jobs and executes them at their specified intervals.
// It uses a job queue to distribute jobs to workers.
type Scheduler struct {
	appName            string
	instanceID         string
	models             *data.Models
	jobs               map[string]jobs.Job
	cancel             context.CancelFunc
	crashTrackerClient crashtracker.CrashTrackerClient
	jobQueue           chan jobs.Job
	// enqueuedJobs is used to keep track of enqueued jobs to avoid enqueuing
	// the same job multiple times in case it takes longer to execute than its
	// interval.
	enqueuedJobs sync.Map
	// stopping stops the tickers from enqueuing new work while in-flight jobs
	// drain during shutdown.
	stopping atomic.Bool
	// inFlight counts jobs currently being executed by a worker.
	inFlight atomic.Int32
}

// SchedulerOptions identifies the running instance and carries the shared
// dependencies every job execution reports through.
type SchedulerOptions struct {
	AppName            string
	InstanceID         string
	Models             *data.Models
	CrashTrackerClient crashtracker.CrashTrackerClient
}

type SchedulerJobRegisterOption func(*Scheduler)

// SchedulerWorkerCount is the number of workers that will be started to process jobs
const SchedulerWorkerCount = 5

// shutdownGracePeriod bounds how long the scheduler waits for in-flight jobs
// to finish once a shutdown signal arrives.
const shutdownGracePeriod = 30 * time.Second

// StartScheduler initializes and starts the scheduler. This method blocks until the scheduler is stopped.
func StartScheduler(opts SchedulerOptions, schedulerJobRegisters ...SchedulerJobRegisterOption) {
	// Call crash tracker FlushEvents to flush buffered events before the scheduler terminates
	defer opts.CrashTrackerClient.FlushEvents(2 * time.Second)
	// Call crash tracker Recover for recover from unhandled panics
	defer opts.CrashTrackerClient.Recover()

	ctx, cancel := context.WithCancel(context.Background())

	// create a channel to listen for a shutdown signal
	signalChan := make(chan os.Signal, 1)

	// register signal listeners for graceful shutdown
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	scheduler := newScheduler(cancel)
	scheduler.appName = opts.AppName
	scheduler.instanceID = opts.InstanceID
	scheduler.models = opts.Models
	scheduler.crashTrackerClient = opts.CrashTrackerClient

	// Registering jobs
	for _, schedulerJobRegister := range schedulerJobRegisters {
		schedulerJobRegister(scheduler)
	}

	scheduler.logRuntimeEvent(ctx, data.StartupRuntimeEventType, data.JSONMap{
		"app":  scheduler.appName,
		"jobs": scheduler.jobNames(),
	})

	scheduler.start(ctx)

	// wait for the shutdown signal here.
	<-signalChan

	// Let in-flight cycles finish before anything is torn down, bounded by
	// the grace period.
	scheduler.drain(shutdownGracePeriod)

	// The scheduler context is about to be canceled, so the shutdown row gets
	// its own.
	scheduler.logRuntimeEvent(context.Background(), data.ShutdownRuntimeEventType, data.JSONMap{
		"app": scheduler.appName,
	})

	scheduler.stop()
}

// newScheduler creates a new scheduler.
func newScheduler(cancel context.CancelFunc) *Scheduler {
	return &Scheduler{
		jobs:     make(map[string]jobs.Job),
		cancel:   cancel,
		jobQueue: make(chan jobs.Job),
	}
}

// addJob adds a job to the scheduler. This method does not start the job. To start the job, call start().
func (s *Scheduler) addJob(job jobs.Job) {
	log.Infof("registering job to scheduler [name: %s], [interval: %s]", job.GetName(), job.GetInterval())
	s.jobs[job.GetName()] = job
}

func (s *Scheduler) jobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// logRuntimeEvent appends one lifecycle row for this instance. Lifecycle
// bookkeeping never takes the scheduler down: failures are logged and dropped.
func (s *Scheduler) logRuntimeEvent(ctx context.Context, eventType data.RuntimeEventType, payload data.JSONMap) {
	if s.models == nil {
		return
	}
	err := s.models.RuntimeLog.Insert(ctx, s.models.DBConnectionPool, s.instanceID, eventType, payload)
	if err != nil {
		log.WithContext(ctx).Errorf("Error writing %s runtime event: %s", eventType, err)
	}
}

// start starts the scheduler and all jobs. This method blocks until the scheduler is stopped.
func (s *Scheduler) start(ctx context.Context) {
	if len(s.jobs) == 0 {
		log.WithContext(ctx).Info("No jobs to start")
		s.stop()
		return
	}
	log.WithContext(ctx).Infof("Starting scheduler with %d workers...", SchedulerWorkerCount)

	// 1. We start all the workers that will process jobs from the job queue.
	for i := 1; i <= SchedulerWorkerCount; i++ {
		// start a new worker passing a CrashTrackerClient clone to report errors when the job is executed
		go worker(ctx, i, s.crashTrackerClient.Clone(), s)
	}

	// 2. Enqueue jobs to jobQueue.
	// We start one goroutine per job but these are lightweight because they only wait for the ticker to tick then enqueue the job.
	for _, job := range s.jobs {
		go func(job jobs.Job) {
			ticker := time.NewTicker(job.GetInterval())
			for {
				select {
				case <-ticker.C:
					if s.stopping.Load() {
						continue
					}
					jobName := job.GetName()
					if _, alreadyEnqueued := s.enqueuedJobs.LoadOrStore(jobName, true); !alreadyEnqueued {
						log.WithContext(ctx).Debugf("Enqueuing job: %s", jobName)
						s.jobQueue <- job
					} else {
						log.WithContext(ctx).Debugf("Skipping job %s, already in queue", jobName)
					}
				case <-ctx.Done():
					ticker.Stop()
					return
				}
			}
		}(job)
	}
}

// stop uses the context to stop the scheduler and all jobs.
func (s *Scheduler) stop() {
	log.Info("Stopping scheduler...")
	s.cancel()
}

// drain stops the tickers from enqueuing new work and waits for in-flight
// jobs to finish, giving up once the grace period elapses.
func (s *Scheduler) drain(grace time.Duration) {
	s.stopping.Store(true)

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if s.inFlight.Load() == 0 {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	log.Warnf("shutdown grace period of %s elapsed with %d jobs still running", grace, s.inFlight.Load())
}

// worker is a goroutine that processes jobs from the job queue.
func worker(ctx context.Context, workerID int, crashTrackerClient crashtracker.CrashTrackerClient, scheduler *Scheduler) {
	defer func() {
		if r := recover(); r != nil {
			log.WithContext(ctx).Errorf("Worker %d encountered a panic while processing a job: %v", workerID, r)
		}
	}()
	for {
		select {
		case job := <-scheduler.jobQueue:
			executeJob(ctx, job, workerID, crashTrackerClient, scheduler)
			scheduler.enqueuedJobs.Delete(job.GetName()) // Remove job from tracking after execution
		case <-ctx.Done():
			log.WithContext(ctx).Infof("Worker %d stopping...", workerID)
			return
		}
	}
}

// executeJob executes a job, reporting any error to the crash tracker and to
// the runtime log so operators can audit failing cycles from the database.
func executeJob(ctx context.Context, job jobs.Job, workerID int, crashTrackerClient crashtracker.CrashTrackerClient, scheduler *Scheduler) {
	scheduler.inFlight.Add(1)
	defer scheduler.inFlight.Add(-1)

	log.WithContext(ctx).Debugf("Processing job %s on worker %d", job.GetName(), workerID)
	if err := job.Execute(ctx); err != nil {
		msg := fmt.Sprintf("error processing job %s on worker %d", job.GetName(), workerID)
		crashTrackerClient.LogAndReportErrors(ctx, err, msg)
		scheduler.logRuntimeEvent(ctx, data.LoopErrorRuntimeEventType, data.JSONMap{
			"app":   scheduler.appName,
			"job":   job.GetName(),
			"error": err.Error(),
		})
	}
}

// WithReconciliationJobOption registers the provider polling job.
func WithReconciliationJobOption(options jobs.ReconciliationJobOptions) SchedulerJobRegisterOption {
	return func(s *Scheduler) {
		j := jobs.NewReconciliationJob(options)
		s.addJob(j)
	}
}

// WithCRMDispatchJobOption registers the CRM queue dispatch job.
func WithCRMDispatchJobOption(options jobs.CRMDispatchJobOptions) SchedulerJobRegisterOption {
	return func(s *Scheduler) {
		j := jobs.NewCRMDispatchJob(options)
		s.addJob(j)
	}
}

// WithHeartbeatJobOption registers the liveness heartbeat job.
func WithHeartbeatJobOption(options jobs.HeartbeatJobOptions) SchedulerJobRegisterOption {
	return func(s *Scheduler) {
		j := jobs.NewHeartbeatJob(options)
		s.addJob(j)
	}
}
