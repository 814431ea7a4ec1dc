package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harborops/fulfillment-backend/internal/bundles"
	"github.com/harborops/fulfillment-backend/internal/inventory"
	"github.com/harborops/fulfillment-backend/internal/monitors"
	"github.com/harborops/fulfillment-backend/internal/reconciler"
	"github.com/harborops/fulfillment-backend/internal/reporting"
	"github.com/harborops/fulfillment-backend/internal/sched"
	"github.com/harborops/fulfillment-backend/internal/staging"
	"github.com/harborops/fulfillment-backend/pkg/config"
	"github.com/harborops/fulfillment-backend/pkg/db/models"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	"github.com/harborops/fulfillment-backend/pkg/logger"
)

var routerDDL = []string{`
CREATE TABLE staged_orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  order_date DATETIME NOT NULL,
  customer_name TEXT NOT NULL DEFAULT '',
  customer_email TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'pending',
  platform_order_id TEXT,
  total_items INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL DEFAULT 0,
  is_flagged INTEGER NOT NULL DEFAULT 0,
  flag_reason TEXT,
  failure_reason TEXT,
  carrier TEXT,
  service_code TEXT,
  tracking_number TEXT,
  ship_date DATETIME,
  historical INTEGER NOT NULL DEFAULT 0,
  claimed_at DATETIME,
  claimed_by TEXT,
  uploaded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE staged_order_items (
  id TEXT PRIMARY KEY,
  staged_order_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  sku_lot TEXT,
  qty INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (staged_order_id, sku)
);`, `
CREATE TABLE bundle_skus (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL UNIQUE,
  description TEXT,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE bundle_components (
  id TEXT PRIMARY KEY,
  bundle_sku_id TEXT NOT NULL,
  component_sku TEXT NOT NULL,
  multiplier INTEGER NOT NULL,
  sequence INTEGER NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE lot_assignments (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL,
  lot TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (sku, lot)
);`, `
CREATE TABLE lot_balances (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL,
  lot TEXT NOT NULL,
  initial_qty INTEGER NOT NULL DEFAULT 0,
  manual_adjustment INTEGER NOT NULL DEFAULT 0,
  received_date DATETIME NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (sku, lot)
);`, `
CREATE TABLE inventory_transactions (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL,
  lot TEXT NOT NULL,
  type TEXT NOT NULL,
  qty_delta INTEGER NOT NULL,
  note TEXT,
  created_at DATETIME
);`, `
CREATE TABLE shipped_orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  platform_order_id TEXT NOT NULL DEFAULT '',
  carrier TEXT NOT NULL DEFAULT '',
  service_code TEXT NOT NULL DEFAULT '',
  tracking_number TEXT NOT NULL DEFAULT '',
  destination_state TEXT NOT NULL DEFAULT '',
  destination_country TEXT NOT NULL DEFAULT '',
  total_cents INTEGER NOT NULL DEFAULT 0,
  ship_date DATETIME NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE shipped_items (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  base_sku TEXT NOT NULL,
  sku_lot TEXT NOT NULL DEFAULT '',
  qty INTEGER NOT NULL,
  ship_date DATETIME NOT NULL,
  created_at DATETIME,
  UNIQUE (order_number, base_sku, sku_lot)
);`, `
CREATE TABLE duplicate_order_alerts (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  base_sku TEXT NOT NULL,
  duplicate_count INTEGER NOT NULL DEFAULT 2,
  platform_ids TEXT,
  status TEXT NOT NULL DEFAULT 'active',
  first_seen_at DATETIME NOT NULL,
  last_seen_at DATETIME NOT NULL,
  resolved_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE duplicate_order_exclusions (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  base_sku TEXT NOT NULL,
  note TEXT,
  created_at DATETIME,
  UNIQUE (order_number, base_sku)
);`, `
CREATE TABLE shipping_violations (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  violation_type TEXT NOT NULL,
  expected_value TEXT NOT NULL,
  actual_value TEXT NOT NULL,
  resolved INTEGER NOT NULL DEFAULT 0,
  resolved_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (order_number, violation_type)
);`, `
CREATE TABLE workflow_switches (
  name TEXT PRIMARY KEY,
  enabled INTEGER NOT NULL DEFAULT 1,
  note TEXT,
  updated_at DATETIME
);`, `
CREATE TABLE weekly_shipped_histories (
  id TEXT PRIMARY KEY,
  week_start DATETIME NOT NULL,
  week_end DATETIME NOT NULL,
  sku TEXT NOT NULL,
  qty INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (week_start, week_end, sku)
);`, `
CREATE TABLE monthly_billing_summaries (
  id TEXT PRIMARY KEY,
  month DATETIME NOT NULL UNIQUE,
  order_count INTEGER NOT NULL DEFAULT 0,
  package_count INTEGER NOT NULL DEFAULT 0,
  unit_count INTEGER NOT NULL DEFAULT 0,
  storage_fee_cents INTEGER NOT NULL DEFAULT 0,
  handling_fee_cents INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE report_runs (
  id TEXT PRIMARY KEY,
  report_type TEXT NOT NULL,
  run_for_date DATETIME NOT NULL,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (report_type, run_for_date)
);`}

type stubDeleter struct {
	deleted []int64
	err     error
}

func (s *stubDeleter) DeleteOrder(ctx context.Context, platformOrderID int64) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, platformOrderID)
	return nil
}

type routerFixture struct {
	handler http.Handler
	db      *gorm.DB
	orders  staging.Repository
	alerts  monitors.AlertStore
	ledger  *inventory.Ledger
	deleter *stubDeleter
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	for _, stmt := range routerDDL {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})

	orders, err := staging.NewRepository(conn)
	require.NoError(t, err)
	invRepo, err := inventory.NewRepository(conn)
	require.NoError(t, err)
	ledger, err := inventory.NewLedger(inventory.LedgerParams{Repo: invRepo, Logger: logg})
	require.NoError(t, err)
	bundleRepo, err := bundles.NewRepository(conn)
	require.NoError(t, err)
	alerts, err := monitors.NewAlertRepository(conn)
	require.NoError(t, err)
	violations, err := monitors.NewViolationRepository(conn)
	require.NoError(t, err)
	reports, err := reporting.NewRepository(conn)
	require.NoError(t, err)
	history, err := reconciler.NewHistoryRepository(conn)
	require.NoError(t, err)
	engine, err := reporting.NewEngine(reporting.EngineParams{
		Store:     reports,
		History:   history,
		Logger:    logg,
		Reporting: config.ReportingConfig{RollingWindowWeeks: 52},
	})
	require.NoError(t, err)
	switches, err := sched.NewSwitchRepository(conn)
	require.NoError(t, err)

	deleter := &stubDeleter{}
	handler := NewRouter(RouterParams{
		Config: &config.Config{
			App: config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		},
		Logger:     logg,
		Orders:     orders,
		Ledger:     ledger,
		Bundles:    bundleRepo,
		Alerts:     alerts,
		Violations: violations,
		Reports:    reports,
		Engine:     engine,
		Switches:   switches,
		Platform:   deleter,
	})

	return &routerFixture{
		handler: handler,
		db:      conn,
		orders:  orders,
		alerts:  alerts,
		ledger:  ledger,
		deleter: deleter,
	}
}

func (f *routerFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func TestHealthEndpoints(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// No pingers wired means ready reports what it can.
	rec = f.do(t, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestListStagedOrdersFiltersByStatus(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	for _, seed := range []struct {
		orderNumber string
		status      enums.StagedOrderStatus
	}{
		{"X-1001", enums.StagedOrderStatusPending},
		{"X-1002", enums.StagedOrderStatusFailed},
		{"X-1003", enums.StagedOrderStatusPending},
	} {
		require.NoError(t, f.orders.Create(ctx, &models.StagedOrder{
			OrderNumber: seed.orderNumber,
			OrderDate:   time.Now().UTC(),
			Status:      seed.status,
		}))
	}

	rec := f.do(t, http.MethodGet, "/api/v1/orders?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Orders []models.StagedOrder `json:"orders"`
	}
	decodeData(t, rec, &page)
	require.Len(t, page.Orders, 2)

	rec = f.do(t, http.MethodGet, "/api/v1/orders?status=bogus", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStagedOrderNotFound(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/orders/X-404", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestKPIsCountsWithoutCache(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	require.NoError(t, f.orders.Create(ctx, &models.StagedOrder{
		OrderNumber: "X-1001",
		OrderDate:   time.Now().UTC(),
		Status:      enums.StagedOrderStatusPending,
	}))
	require.NoError(t, f.alerts.Create(ctx, &models.DuplicateOrderAlert{
		OrderNumber: "X-2002",
		BaseSKU:     "SKU-100",
		FirstSeenAt: time.Now().UTC(),
		LastSeenAt:  time.Now().UTC(),
	}))

	rec := f.do(t, http.MethodGet, "/api/v1/kpis", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot struct {
		OrdersByStatus map[string]int64 `json:"orders_by_status"`
		ActiveAlerts   int              `json:"active_alerts"`
	}
	decodeData(t, rec, &snapshot)
	require.Equal(t, int64(1), snapshot.OrdersByStatus["pending"])
	require.Equal(t, 1, snapshot.ActiveAlerts)
}

func TestInventoryLevels(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	require.NoError(t, f.ledger.Receive(ctx, "SKU-100", "LOT-A", 50,
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), ""))

	rec := f.do(t, http.MethodGet, "/api/v1/inventory?sku=SKU-100", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Levels []inventory.Level `json:"levels"`
	}
	decodeData(t, rec, &payload)
	require.Len(t, payload.Levels, 1)
	require.Equal(t, 50, payload.Levels[0].Available)
}

func TestResolveAlertLifecycle(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	alert := &models.DuplicateOrderAlert{
		OrderNumber: "X-2002",
		BaseSKU:     "SKU-100",
		FirstSeenAt: time.Now().UTC(),
		LastSeenAt:  time.Now().UTC(),
	}
	require.NoError(t, f.alerts.Create(ctx, alert))

	rec := f.do(t, http.MethodPost, "/api/v1/alerts/"+alert.ID.String()+"/resolve",
		map[string]string{"status": "resolved"})
	require.Equal(t, http.StatusOK, rec.Code)

	// Already closed: nothing active remains to resolve.
	rec = f.do(t, http.MethodPost, "/api/v1/alerts/"+alert.ID.String()+"/resolve",
		map[string]string{"status": "resolved"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkflowSwitchRoundTrip(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/admin/workflows/upload-dispatch",
		map[string]any{"enabled": false, "note": "deploy freeze"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/workflows/not-a-workflow",
		map[string]any{"enabled": false})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/admin/workflows", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Workflows []models.WorkflowSwitch `json:"workflows"`
	}
	decodeData(t, rec, &payload)
	require.Len(t, payload.Workflows, 1)
	require.Equal(t, "upload-dispatch", payload.Workflows[0].Name)
	require.False(t, payload.Workflows[0].Enabled)
}

func TestDeletePlatformOrder(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodDelete, "/api/v1/admin/platform-orders/9001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []int64{9001}, f.deleter.deleted)

	rec = f.do(t, http.MethodDelete, "/api/v1/admin/platform-orders/not-a-number", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWeeklyReportRequiresSKU(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/reports/weekly", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/reports/weekly?sku=SKU-100", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
