package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/harborops/fulfillment-backend/api/controllers"
	"github.com/harborops/fulfillment-backend/api/middleware"
	"github.com/harborops/fulfillment-backend/internal/bundles"
	"github.com/harborops/fulfillment-backend/internal/inventory"
	"github.com/harborops/fulfillment-backend/internal/monitors"
	"github.com/harborops/fulfillment-backend/internal/reporting"
	"github.com/harborops/fulfillment-backend/internal/sched"
	"github.com/harborops/fulfillment-backend/internal/staging"
	"github.com/harborops/fulfillment-backend/pkg/config"
	"github.com/harborops/fulfillment-backend/pkg/db"
	"github.com/harborops/fulfillment-backend/pkg/logger"
	"github.com/harborops/fulfillment-backend/pkg/redis"
)

// RouterParams carry everything the dashboard API reads from.
type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DBPinger   db.Pinger
	Cache      *redis.Client
	Orders     staging.Repository
	Ledger     *inventory.Ledger
	Bundles    bundles.Repository
	Alerts     monitors.AlertStore
	Violations monitors.ViolationStore
	Reports    reporting.Store
	Engine     *reporting.Engine
	Switches   sched.SwitchStore
	Platform   controllers.PlatformOrderDeleter
}

// NewRouter assembles the read-only dashboard API plus the small admin
// remediation surface.
func NewRouter(p RouterParams) http.Handler {
	logg := p.Logger
	cfg := p.Config

	kpiTTL := 30 * time.Second
	if cfg != nil && cfg.Redis.KPICacheTTL > 0 {
		kpiTTL = cfg.Redis.KPICacheTTL
	}
	var origins []string
	if cfg != nil {
		origins = cfg.App.CORSOrigins
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Logging(logg))
	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.CORS(origins))

	var cachePinger redis.Pinger
	if p.Cache != nil {
		cachePinger = p.Cache
	}

	r.Get("/health/live", controllers.HealthLive())
	r.Get("/health/ready", controllers.HealthReady(p.DBPinger, cachePinger, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/kpis", controllers.KPIs(p.Orders, p.Alerts, p.Violations, p.Cache, kpiTTL, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListStagedOrders(p.Orders, logg))
			r.Get("/{orderNumber}", controllers.GetStagedOrder(p.Orders, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.ListInventoryLevels(p.Ledger, logg))
			r.Get("/{sku}/lots", controllers.GetSKULots(p.Ledger, logg))
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", controllers.ListDuplicateAlerts(p.Alerts, logg))
			r.Post("/{alertID}/resolve", controllers.ResolveDuplicateAlert(p.Alerts, logg))
			r.Post("/exclusions", controllers.CreateDuplicateExclusion(p.Alerts, logg))
		})

		r.Route("/violations", func(r chi.Router) {
			r.Get("/", controllers.ListViolations(p.Violations, logg))
			r.Post("/{violationID}/resolve", controllers.ResolveViolation(p.Violations, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/weekly", controllers.WeeklyReport(p.Reports, p.Engine, logg))
			r.Get("/monthly", controllers.MonthlyReport(p.Reports, logg))
		})

		r.Get("/bundles", controllers.ListBundles(p.Bundles, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Get("/workflows", controllers.ListWorkflowSwitches(p.Switches, logg))
			r.Post("/workflows/{workflow}", controllers.SetWorkflowSwitch(p.Switches, logg))
			r.Delete("/platform-orders/{platformOrderID}", controllers.DeletePlatformOrder(p.Platform, logg))
		})
	})

	return r
}
