package cmd

import (
	"context"
	"fmt"
	"go/types"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cmdUtils "github.com/ninjapay/payments-reconciler/cmd/utils"
	"github.com/ninjapay/payments-reconciler/db"
	"github.com/ninjapay/payments-reconciler/internal/crashtracker"
	"github.com/ninjapay/payments-reconciler/internal/crm"
	"github.com/ninjapay/payments-reconciler/internal/data"
	"github.com/ninjapay/payments-reconciler/internal/monitor"
	"github.com/ninjapay/payments-reconciler/internal/provider"
	"github.com/ninjapay/payments-reconciler/internal/scheduler"
	"github.com/ninjapay/payments-reconciler/internal/scheduler/jobs"
	"github.com/ninjapay/payments-reconciler/internal/serve"
	"github.com/ninjapay/payments-reconciler/internal/utils"
)

// appName identifies this service in runtime log rows and heartbeats.
const appName = "payments-reconciler"

type ServeCommand struct{}

// SchedulerJobOptions carries everything the background jobs need that is not
// already part of serve.ServeOptions.
type SchedulerJobOptions struct {
	Models                   *data.Models
	InstanceID               string
	HeartbeatIntervalSeconds int
	Reconcile                cmdUtils.ReconcileOptions
	CRM                      cmdUtils.CRMOptions
	Providers                cmdUtils.ProviderOptions
}

type ServerServiceInterface interface {
	StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface)
	GetSchedulerJobRegistrars(ctx context.Context, serveOpts serve.ServeOptions, jobOpts SchedulerJobOptions) ([]scheduler.SchedulerJobRegisterOption, error)
}

type ServerService struct{}

// Making sure that ServerService implements ServerServiceInterface
var _ ServerServiceInterface = (*ServerService)(nil)

func (s *ServerService) StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface) {
	err := serve.Serve(opts, httpServer)
	if err != nil {
		log.Fatalf("Error starting server: %s", err.Error())
	}
}

func (s *ServerService) GetSchedulerJobRegistrars(ctx context.Context, serveOpts serve.ServeOptions, jobOpts SchedulerJobOptions) ([]scheduler.SchedulerJobRegisterOption, error) {
	if jobOpts.Models == nil {
		return nil, fmt.Errorf("job options Models cannot be nil")
	}

	// The heartbeat always runs. It is what tells a dead instance apart from
	// one that merely has both loops disabled.
	registrars := []scheduler.SchedulerJobRegisterOption{
		scheduler.WithHeartbeatJobOption(jobs.HeartbeatJobOptions{
			JobIntervalSeconds: jobOpts.HeartbeatIntervalSeconds,
			AppName:            appName,
			InstanceID:         jobOpts.InstanceID,
			Models:             jobOpts.Models,
		}),
	}

	if jobOpts.Reconcile.Enabled {
		registry := buildProviderRegistry(jobOpts.Providers).Filter(jobOpts.Reconcile.PollingProviders)
		registrars = append(registrars, scheduler.WithReconciliationJobOption(jobs.ReconciliationJobOptions{
			JobIntervalSeconds: jobOpts.Reconcile.IntervalSeconds,
			Models:             jobOpts.Models,
			Registry:           registry,
			MonitorService:     serveOpts.MonitorService,
			AttemptOffsets:     jobOpts.Reconcile.AttemptOffsets,
			BatchSize:          jobOpts.Reconcile.BatchSize,
			AbandonedAfter:     time.Duration(jobOpts.Reconcile.AbandonedTimeoutMinutes) * time.Minute,
			NotifyAbandoned:    jobOpts.CRM.NotifyAbandoned,
		}))
	} else {
		log.WithContext(ctx).Warn("The provider polling loop is disabled.")
	}

	if jobOpts.CRM.Enabled {
		crmClient := crm.NewClient(jobOpts.CRM.BaseURL, jobOpts.CRM.PagarPath, jobOpts.CRM.AuthBearer, jobOpts.CRM.TimeoutSeconds)
		registrars = append(registrars, scheduler.WithCRMDispatchJobOption(jobs.CRMDispatchJobOptions{
			JobIntervalSeconds: jobOpts.Reconcile.IntervalSeconds,
			Models:             jobOpts.Models,
			Client:             crmClient,
			MonitorService:     serveOpts.MonitorService,
			RetryBackoff:       jobOpts.CRM.RetryBackoff,
			BatchSize:          jobOpts.Reconcile.BatchSize,
		}))
	} else {
		log.WithContext(ctx).Warn("The CRM dispatch loop is disabled.")
	}

	return registrars, nil
}

// buildProviderRegistry wires every supported provider adapter. Adapters with
// missing credentials still get built; their calls fail and are recorded per
// payment, which is where operators expect to find them.
func buildProviderRegistry(opts cmdUtils.ProviderOptions) provider.Registry {
	return provider.NewRegistry(
		provider.NewStripeClient(opts.StripeAPIKey, opts.StripeAPIBase),
		provider.NewPayPalClient(opts.PayPalClientID, opts.PayPalClientSecret, opts.PayPalBaseURL),
		provider.NewWebpayClient(opts.WebpayStatusURLTemplate, opts.WebpayAPIKeyID, opts.WebpayAPIKeySecret, opts.WebpayCommerceCode),
	)
}

// openDBConnectionPoolWithRetry opens the scheduler's DB connection pool,
// waiting for the database when it is not yet accepting connections.
// Orchestrators routinely start this service before Postgres is ready.
func openDBConnectionPoolWithRetry(ctx context.Context, dataSourceName string) (db.DBConnectionPool, error) {
	var dbConnectionPool db.DBConnectionPool
	err := retry.Do(
		func() error {
			var openErr error
			dbConnectionPool, openErr = db.OpenDBConnectionPool(dataSourceName)
			return openErr
		},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.WithContext(ctx).Warnf("Waiting for the database to accept connections (attempt #%d): %v", n+1, err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("opening DB connection pool: %w", err)
	}
	return dbConnectionPool, nil
}

func (c *ServeCommand) Command(serverService ServerServiceInterface, monitorService monitor.MonitorServiceInterface) *cobra.Command {
	serveOpts := serve.ServeOptions{}
	jobOpts := SchedulerJobOptions{}
	crashTrackerOptions := crashtracker.CrashTrackerOptions{}

	configOpts := cmdUtils.ConfigOptions{
		{
			Name:        "serve-port",
			Usage:       "Port where the ops server will be listening on",
			OptType:     types.Int,
			ConfigKey:   &serveOpts.Port,
			FlagDefault: 8002,
			Required:    true,
		},
		{
			Name:           "cors-allowed-origins",
			Usage:          `Cors URLs that are allowed to access the endpoints, separated by ","`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetCorsAllowedOrigins,
			ConfigKey:      &serveOpts.CorsAllowedOrigins,
			FlagDefault:    "*",
			Required:       true,
		},
		{
			Name:      "health-auth-bearer",
			Usage:     "Bearer token protecting the payment stats endpoint. When empty the endpoint is open.",
			OptType:   types.String,
			ConfigKey: &serveOpts.HealthAuthBearer,
			Required:  false,
		},
		{
			Name:        "heartbeat-interval-seconds",
			Usage:       "Seconds between two heartbeat rows in the service runtime log.",
			OptType:     types.Int,
			ConfigKey:   &jobOpts.HeartbeatIntervalSeconds,
			FlagDefault: 60,
			Required:    true,
		},
	}
	configOpts = append(configOpts, cmdUtils.ReconcileConfigOptions(&jobOpts.Reconcile)...)
	configOpts = append(configOpts, cmdUtils.CRMConfigOptions(&jobOpts.CRM)...)
	configOpts = append(configOpts, cmdUtils.ProviderConfigOptions(&jobOpts.Providers)...)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ops API and run the reconciliation loops",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.Parent().PersistentPreRun(cmd.Parent(), args)

			// Validate & ingest input parameters
			configOpts.Require()
			err := configOpts.SetValues()
			if err != nil {
				log.Fatalf("Error setting values of config options: %s", err.Error())
			}

			// Initializing monitor service
			metricOptions := monitor.MetricOptions{
				MetricType:  monitor.MetricTypePrometheus,
				Environment: globalOptions.Environment,
			}
			err = monitorService.Start(metricOptions)
			if err != nil {
				log.Fatalf("Error creating monitor service: %s", err.Error())
			}

			// Inject crash tracker options dependencies. Sentry is switched on
			// by the presence of its DSN, everything else stays a dry run.
			crashTrackerOptions.CrashTrackerType = crashtracker.CrashTrackerTypeDryRun
			if globalOptions.SentryDSN != "" {
				crashTrackerOptions.CrashTrackerType = crashtracker.CrashTrackerTypeSentry
			}
			globalOptions.PopulateCrashTrackerOptions(&crashTrackerOptions)

			// Inject server dependencies
			serveOpts.Environment = globalOptions.Environment
			serveOpts.GitCommit = globalOptions.GitCommit
			serveOpts.DatabaseDSN = globalOptions.DatabaseDSN
			serveOpts.Version = globalOptions.Version
			serveOpts.MonitorService = monitorService
		},
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()

			// Setup the Crash Tracker client
			crashTrackerClient, err := crashtracker.GetClient(ctx, crashTrackerOptions)
			if err != nil {
				log.WithContext(ctx).Fatalf("error creating crash tracker client: %s", err.Error())
			}
			serveOpts.CrashTrackerClient = crashTrackerClient

			// The CRM target is only checked when the dispatch loop will use it.
			if jobOpts.CRM.Enabled {
				if jobOpts.CRM.BaseURL == "" {
					log.WithContext(ctx).Fatal("crm-base-url is required when the CRM dispatch loop is enabled")
				}
				isBaseURL, err := utils.IsBaseURL(jobOpts.CRM.BaseURL)
				if err != nil || !isBaseURL {
					log.WithContext(ctx).Fatalf("crm-base-url %q is not a valid base URL", jobOpts.CRM.BaseURL)
				}
			}

			// The scheduler keeps its own connection pool, shared by its jobs
			// and the runtime log.
			dbConnectionPool, err := openDBConnectionPoolWithRetry(ctx, globalOptions.DatabaseDSN)
			if err != nil {
				log.WithContext(ctx).Fatalf("error opening the scheduler DB connection pool: %s", err.Error())
			}
			models, err := data.NewModels(dbConnectionPool)
			if err != nil {
				log.WithContext(ctx).Fatalf("error creating models for the scheduler: %s", err.Error())
			}
			jobOpts.Models = models
			jobOpts.InstanceID = uuid.NewString()

			// Starting Scheduler Service (background jobs)
			log.WithContext(ctx).Info("Starting Scheduler Service...")
			schedulerJobRegistrars, err := serverService.GetSchedulerJobRegistrars(ctx, serveOpts, jobOpts)
			if err != nil {
				log.WithContext(ctx).Fatalf("Error getting scheduler job registrars: %v", err)
			}
			schedulerOptions := scheduler.SchedulerOptions{
				AppName:            appName,
				InstanceID:         jobOpts.InstanceID,
				Models:             models,
				CrashTrackerClient: crashTrackerClient.Clone(),
			}
			go scheduler.StartScheduler(schedulerOptions, schedulerJobRegistrars...)

			// Starting Application Server
			log.WithContext(ctx).Info("Starting Ops Server...")
			serverService.StartServe(serveOpts, &serve.HTTPServer{})
		},
	}
	err := configOpts.Init(cmd)
	if err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}
