package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harborops/fulfillment-backend/internal/bundles"
	"github.com/harborops/fulfillment-backend/internal/dispatcher"
	"github.com/harborops/fulfillment-backend/internal/inventory"
	"github.com/harborops/fulfillment-backend/internal/monitors"
	"github.com/harborops/fulfillment-backend/internal/reconciler"
	"github.com/harborops/fulfillment-backend/internal/reporting"
	"github.com/harborops/fulfillment-backend/internal/sched"
	"github.com/harborops/fulfillment-backend/internal/staging"
	"github.com/harborops/fulfillment-backend/pkg/config"
	"github.com/harborops/fulfillment-backend/pkg/db"
	"github.com/harborops/fulfillment-backend/pkg/logger"
	"github.com/harborops/fulfillment-backend/pkg/metrics"
	"github.com/harborops/fulfillment-backend/pkg/migrate"
	"github.com/harborops/fulfillment-backend/pkg/shipstation"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	platform, err := shipstation.NewClient(context.Background(), cfg.ShipStation, platformMode(cfg), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create platform client", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, dbClient, platform)
	if err != nil {
		logg.Error(context.Background(), "failed to build workflow registry", err)
		os.Exit(1)
	}

	switches, err := sched.NewSwitchRepository(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create switch repository", err)
		os.Exit(1)
	}

	service, err := sched.NewService(sched.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Switches: switches,
		Metrics:  metrics.NewWorkflowMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create workflow service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting worker")

	go serveMetrics(ctx, cfg.Workflows.MetricsAddress, logg)

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, platform *shipstation.Client) (*sched.Registry, error) {
	conn := dbClient.DB()

	orders, err := staging.NewRepository(conn)
	if err != nil {
		return nil, err
	}
	invRepo, err := inventory.NewRepository(conn)
	if err != nil {
		return nil, err
	}
	ledger, err := inventory.NewLedger(inventory.LedgerParams{Repo: invRepo, Logger: logg})
	if err != nil {
		return nil, err
	}
	bundleRepo, err := bundles.NewRepository(conn)
	if err != nil {
		return nil, err
	}
	expander, err := bundles.NewExpander(bundleRepo)
	if err != nil {
		return nil, err
	}
	importService, err := staging.NewService(staging.ServiceParams{
		Repo:     orders,
		Expander: expander,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}
	history, err := reconciler.NewHistoryRepository(conn)
	if err != nil {
		return nil, err
	}
	watermarks, err := reconciler.NewWatermarkRepository(conn)
	if err != nil {
		return nil, err
	}
	alerts, err := monitors.NewAlertRepository(conn)
	if err != nil {
		return nil, err
	}
	violations, err := monitors.NewViolationRepository(conn)
	if err != nil {
		return nil, err
	}
	reports, err := reporting.NewRepository(conn)
	if err != nil {
		return nil, err
	}
	engine, err := reporting.NewEngine(reporting.EngineParams{
		Store:     reports,
		History:   history,
		Logger:    logg,
		Reporting: cfg.Reporting,
	})
	if err != nil {
		return nil, err
	}

	feedJob, err := staging.NewFeedJob(staging.FeedJobParams{
		DB:       conn,
		Service:  importService,
		Logger:   logg,
		Feed:     cfg.Feed,
		Interval: cfg.Workflows.FeedImportInterval,
	})
	if err != nil {
		return nil, err
	}
	uploadJob, err := dispatcher.NewJob(dispatcher.JobParams{
		Orders:    orders,
		Inventory: invRepo,
		Client:    platform,
		Logger:    logg,
		App:       cfg.App,
		Ship:      cfg.ShipStation,
		Workflows: cfg.Workflows,
	})
	if err != nil {
		return nil, err
	}
	syncJob, err := reconciler.NewJob(reconciler.JobParams{
		DB:         dbClient,
		Orders:     orders,
		History:    history,
		Watermarks: watermarks,
		Ledger:     ledger,
		Client:     platform,
		Logger:     logg,
		Workflows:  cfg.Workflows,
	})
	if err != nil {
		return nil, err
	}
	duplicateJob, err := monitors.NewDuplicateJob(monitors.DuplicateJobParams{
		Alerts:      alerts,
		Client:      platform,
		Checkpoints: watermarks,
		Logger:      logg,
		Workflows:   cfg.Workflows,
		Monitors:    cfg.Monitors,
	})
	if err != nil {
		return nil, err
	}
	violationJob, err := monitors.NewViolationJob(monitors.ViolationJobParams{
		Violations: violations,
		History:    history,
		Logger:     logg,
		Workflows:  cfg.Workflows,
		Monitors:   cfg.Monitors,
	})
	if err != nil {
		return nil, err
	}
	reportingJob, err := reporting.NewJob(reporting.JobParams{
		Engine:    engine,
		Logger:    logg,
		Workflows: cfg.Workflows,
	})
	if err != nil {
		return nil, err
	}
	retentionJob, err := sched.NewRetentionJob(sched.RetentionJobParams{
		Orders:    orders,
		Logger:    logg,
		Workflows: cfg.Workflows,
	})
	if err != nil {
		return nil, err
	}

	return sched.NewRegistry(
		feedJob,
		uploadJob,
		syncJob,
		duplicateJob,
		violationJob,
		reportingJob,
		retentionJob,
	), nil
}

func serveMetrics(ctx context.Context, addr string, logg *logger.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}

// platformMode gates mutating platform calls. Both the environment and the
// upload flag must opt in before anything reaches the live account.
func platformMode(cfg *config.Config) shipstation.Mode {
	if cfg.App.IsProd() && cfg.ShipStation.LiveUploads {
		return shipstation.ModeLive
	}
	return shipstation.ModeBlocked
}
