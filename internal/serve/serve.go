package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	"github.com/ninjapay/payments-reconciler/db"
	"github.com/ninjapay/payments-reconciler/internal/crashtracker"
	"github.com/ninjapay/payments-reconciler/internal/data"
	"github.com/ninjapay/payments-reconciler/internal/monitor"
	"github.com/ninjapay/payments-reconciler/internal/serve/httperror"
	"github.com/ninjapay/payments-reconciler/internal/serve/httphandler"
	"github.com/ninjapay/payments-reconciler/internal/serve/middleware"
)

const ServiceID = "serve"

// requestRateLimitPerMinute caps per-IP traffic on the ops endpoints.
const requestRateLimitPerMinute = 100

// Config holds the lifecycle knobs for the ops HTTP server.
type Config struct {
	ListenAddr          string
	Handler             http.Handler
	TCPKeepAlive        time.Duration
	ShutdownGracePeriod time.Duration
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	IdleTimeout         time.Duration
	OnStarting          func()
	OnStopping          func()
}

type HTTPServerInterface interface {
	Run(conf Config)
}

type HTTPServer struct{}

// Run serves conf.Handler until SIGINT, SIGTERM or SIGQUIT arrives, then drains
// in-flight requests within the configured grace period.
func (h *HTTPServer) Run(conf Config) {
	if conf.OnStarting != nil {
		conf.OnStarting()
	}

	srv := &http.Server{
		Handler:      conf.Handler,
		ReadTimeout:  conf.ReadTimeout,
		WriteTimeout: conf.WriteTimeout,
		IdleTimeout:  conf.IdleTimeout,
	}

	listenConfig := net.ListenConfig{KeepAlive: conf.TCPKeepAlive}
	listener, err := listenConfig.Listen(context.Background(), "tcp", conf.ListenAddr)
	if err != nil {
		log.Fatalf("error listening on %s: %s", conf.ListenAddr, err.Error())
	}

	shutdownDone := make(chan struct{})
	go func() {
		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
		<-signalChan

		shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.ShutdownGracePeriod)
		defer cancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Errorf("error gracefully shutting down the server: %s", shutdownErr.Error())
		}

		if conf.OnStopping != nil {
			conf.OnStopping()
		}
		close(shutdownDone)
	}()

	err = srv.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("error running the server: %s", err.Error())
	}
	<-shutdownDone
}

type ServeOptions struct {
	Environment        string
	GitCommit          string
	Port               int
	Version            string
	MonitorService     monitor.MonitorServiceInterface
	DatabaseDSN        string
	dbConnectionPool   db.DBConnectionPool
	Models             *data.Models
	CorsAllowedOrigins []string
	HealthAuthBearer   string
	CrashTrackerClient crashtracker.CrashTrackerClient
}

// SetupDependencies uses the serve options to setup the dependencies for the server.
func (opts *ServeOptions) SetupDependencies() error {
	// Setup crash tracker:
	// Call crash tracker FlushEvents to flush buffered events before the server terminates
	defer opts.CrashTrackerClient.FlushEvents(2 * time.Second)
	// Call crash tracker Recover for recover from unhandled panics
	defer opts.CrashTrackerClient.Recover()
	// Set crash tracker LogAndReportErrors as DefaultReportErrorFunc
	httperror.SetDefaultReportErrorFunc(opts.CrashTrackerClient.LogAndReportErrors)

	// Setup Database:
	dbConnectionPool, err := db.OpenDBConnectionPoolWithMetrics(context.Background(), opts.DatabaseDSN, opts.MonitorService)
	if err != nil {
		return fmt.Errorf("error connecting to the database: %w", err)
	}
	opts.Models, err = data.NewModels(dbConnectionPool)
	if err != nil {
		return fmt.Errorf("error creating models for Serve: %w", err)
	}
	opts.dbConnectionPool = dbConnectionPool

	return nil
}

func Serve(opts ServeOptions, httpServer HTTPServerInterface) error {
	err := opts.SetupDependencies()
	if err != nil {
		return fmt.Errorf("error starting dependencies: %w", err)
	}

	// Start the server
	listenAddr := fmt.Sprintf(":%d", opts.Port)
	serverConfig := Config{
		ListenAddr:          listenAddr,
		Handler:             handleHTTP(opts),
		TCPKeepAlive:        time.Minute * 3,
		ShutdownGracePeriod: time.Second * 50,
		ReadTimeout:         time.Second * 5,
		WriteTimeout:        time.Second * 35,
		IdleTimeout:         time.Minute * 2,
		OnStarting: func() {
			log.Info("Starting Payments Reconciler ops server")
			log.Infof("Listening on %s", listenAddr)
		},
		OnStopping: func() {
			log.Info("Closing the database connection...")
			err := opts.dbConnectionPool.Close()
			if err != nil {
				log.Errorf("error closing database connection: %s", err.Error())
			}

			log.Info("Stopping Payments Reconciler ops server")
		},
	}
	httpServer.Run(serverConfig)
	return nil
}

func handleHTTP(o ServeOptions) *chi.Mux {
	mux := chi.NewMux()

	// Middleware
	mux.Use(middleware.CorsMiddleware(o.CorsAllowedOrigins))
	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.RecoverHandler)
	mux.Use(middleware.MetricsRequestHandler(o.MonitorService))
	mux.Use(httprate.LimitByIP(requestRateLimitPerMinute, 1*time.Minute))

	mux.Get("/health", httphandler.HealthHandler{
		Version:          o.Version,
		ServiceID:        ServiceID,
		ReleaseID:        o.GitCommit,
		DBConnectionPool: o.dbConnectionPool,
	}.ServeHTTP)

	metricsHandler, err := o.MonitorService.GetMetricHttpHandler()
	if err != nil {
		log.Fatalf("Error getting metric http.handler: %s", err.Error())
	}
	mux.Handle("/metrics", metricsHandler)

	mux.Group(func(r chi.Router) {
		if o.HealthAuthBearer != "" {
			r.Use(middleware.BearerAuthMiddleware(o.HealthAuthBearer))
		}
		r.Get("/stats/payments", httphandler.PaymentStatsHandler{Models: o.Models}.GetPaymentStats)
	})

	return mux
}
