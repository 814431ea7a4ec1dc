package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/harborops/fulfillment-backend/api/routes"
	"github.com/harborops/fulfillment-backend/internal/bundles"
	"github.com/harborops/fulfillment-backend/internal/inventory"
	"github.com/harborops/fulfillment-backend/internal/monitors"
	"github.com/harborops/fulfillment-backend/internal/reconciler"
	"github.com/harborops/fulfillment-backend/internal/reporting"
	"github.com/harborops/fulfillment-backend/internal/sched"
	"github.com/harborops/fulfillment-backend/internal/staging"
	"github.com/harborops/fulfillment-backend/pkg/config"
	"github.com/harborops/fulfillment-backend/pkg/db"
	"github.com/harborops/fulfillment-backend/pkg/logger"
	"github.com/harborops/fulfillment-backend/pkg/migrate"
	"github.com/harborops/fulfillment-backend/pkg/redis"
	"github.com/harborops/fulfillment-backend/pkg/shipstation"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	conn := dbClient.DB()

	orders, err := staging.NewRepository(conn)
	if err != nil {
		logg.Error(context.Background(), "failed to create staging repository", err)
		os.Exit(1)
	}
	invRepo, err := inventory.NewRepository(conn)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory repository", err)
		os.Exit(1)
	}
	ledger, err := inventory.NewLedger(inventory.LedgerParams{Repo: invRepo, Logger: logg})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory ledger", err)
		os.Exit(1)
	}
	bundleRepo, err := bundles.NewRepository(conn)
	if err != nil {
		logg.Error(context.Background(), "failed to create bundle repository", err)
		os.Exit(1)
	}
	alerts, err := monitors.NewAlertRepository(conn)
	if err != nil {
		logg.Error(context.Background(), "failed to create alert repository", err)
		os.Exit(1)
	}
	violations, err := monitors.NewViolationRepository(conn)
	if err != nil {
		logg.Error(context.Background(), "failed to create violation repository", err)
		os.Exit(1)
	}
	reports, err := reporting.NewRepository(conn)
	if err != nil {
		logg.Error(context.Background(), "failed to create reporting repository", err)
		os.Exit(1)
	}
	history, err := reconciler.NewHistoryRepository(conn)
	if err != nil {
		logg.Error(context.Background(), "failed to create history repository", err)
		os.Exit(1)
	}
	engine, err := reporting.NewEngine(reporting.EngineParams{
		Store:     reports,
		History:   history,
		Logger:    logg,
		Reporting: cfg.Reporting,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reporting engine", err)
		os.Exit(1)
	}
	switches, err := sched.NewSwitchRepository(conn)
	if err != nil {
		logg.Error(context.Background(), "failed to create switch repository", err)
		os.Exit(1)
	}

	platform, err := shipstation.NewClient(context.Background(), cfg.ShipStation, platformMode(cfg), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create platform client", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:     cfg,
			Logger:     logg,
			DBPinger:   dbClient,
			Cache:      redisClient,
			Orders:     orders,
			Ledger:     ledger,
			Bundles:    bundleRepo,
			Alerts:     alerts,
			Violations: violations,
			Reports:    reports,
			Engine:     engine,
			Switches:   switches,
			Platform:   platform,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
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
