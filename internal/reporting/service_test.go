package reporting

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harborops/fulfillment-backend/pkg/config"
	"github.com/harborops/fulfillment-backend/pkg/db/models"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	"github.com/harborops/fulfillment-backend/pkg/logger"
)

func setupReportingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
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
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type stubHistory struct {
	items  []models.ShippedItem
	orders []models.ShippedOrder
}

func (s *stubHistory) ListShippedItemsBetween(ctx context.Context, start, end time.Time) ([]models.ShippedItem, error) {
	var out []models.ShippedItem
	for _, item := range s.items {
		if !item.ShipDate.Before(start) && item.ShipDate.Before(end) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *stubHistory) ListShippedOrdersBetween(ctx context.Context, start, end time.Time) ([]models.ShippedOrder, error) {
	var out []models.ShippedOrder
	for _, order := range s.orders {
		if !order.ShipDate.Before(start) && order.ShipDate.Before(end) {
			out = append(out, order)
		}
	}
	return out, nil
}

func newEngine(t *testing.T, store Store, history ShippedHistoryReader) *Engine {
	t.Helper()
	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
	engine, err := NewEngine(EngineParams{
		Store:   store,
		History: history,
		Logger:  logg,
		Reporting: config.ReportingConfig{
			RollingWindowWeeks: 52,
			StorageFeeCents:    45,
			HandlingFeeCents:   175,
		},
	})
	require.NoError(t, err)
	return engine
}

func shippedItemAt(orderNumber, sku string, qty int, shipDate time.Time) models.ShippedItem {
	return models.ShippedItem{
		OrderNumber: orderNumber,
		BaseSKU:     sku,
		SKULot:      "LOT-A",
		Qty:         qty,
		ShipDate:    shipDate,
	}
}

func TestWeekStartIsMonday(t *testing.T) {
	// 2026-08-26 is a Wednesday.
	wednesday := time.Date(2026, 8, 26, 15, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), WeekStart(wednesday))

	monday := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	require.Equal(t, monday, WeekStart(monday))

	sunday := time.Date(2026, 8, 30, 23, 0, 0, 0, time.UTC)
	require.Equal(t, monday, WeekStart(sunday))
}

func TestRunWeeklyBucketsLastCompleteWeek(t *testing.T) {
	db := setupReportingTestDB(t)
	store, err := NewRepository(db)
	require.NoError(t, err)
	ctx := context.Background()

	// Last complete week before Sep 1 2026 runs Aug 24 through Aug 30.
	history := &stubHistory{items: []models.ShippedItem{
		shippedItemAt("X-1001", "SKU-100", 5, time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)),
		shippedItemAt("X-1002", "SKU-100", 3, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)),
		shippedItemAt("X-1003", "SKU-200", 7, time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)),
		// Current week, outside the bucket.
		shippedItemAt("X-1004", "SKU-100", 99, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)),
	}}
	engine := newEngine(t, store, history)

	asOf := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, engine.RunWeekly(ctx, asOf))

	weekStart := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	buckets, err := store.ListWeekly(ctx, weekStart)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	require.Equal(t, "SKU-100", buckets[0].SKU)
	require.Equal(t, 8, buckets[0].Qty)
	require.Equal(t, "SKU-200", buckets[1].SKU)
	require.Equal(t, 7, buckets[1].Qty)

	runs, err := store.ListRuns(ctx, enums.ReportTypeWeeklyShipped, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.NotNil(t, runs[0].CompletedAt)
}

func TestRunWeeklyOverwritesOnRerun(t *testing.T) {
	db := setupReportingTestDB(t)
	store, err := NewRepository(db)
	require.NoError(t, err)
	ctx := context.Background()

	history := &stubHistory{items: []models.ShippedItem{
		shippedItemAt("X-1001", "SKU-100", 5, time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)),
	}}
	engine := newEngine(t, store, history)
	asOf := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, engine.RunWeekly(ctx, asOf))

	// A late reconciliation adds more volume to the same week.
	history.items = append(history.items,
		shippedItemAt("X-1002", "SKU-100", 4, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, engine.RunWeekly(ctx, asOf))

	weekStart := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	buckets, err := store.ListWeekly(ctx, weekStart)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	require.Equal(t, 9, buckets[0].Qty)

	var runCount int64
	require.NoError(t, db.Model(&models.ReportRun{}).Count(&runCount).Error)
	require.Equal(t, int64(1), runCount)
}

func TestRollingAverage(t *testing.T) {
	db := setupReportingTestDB(t)
	store, err := NewRepository(db)
	require.NoError(t, err)
	ctx := context.Background()

	weekStart := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	var buckets []models.WeeklyShippedHistory
	for i, qty := range []int{10, 20, 30} {
		start := weekStart.AddDate(0, 0, -7*i)
		buckets = append(buckets, models.WeeklyShippedHistory{
			WeekStart: start,
			WeekEnd:   start.AddDate(0, 0, 6),
			SKU:       "SKU-100",
			Qty:       qty,
		})
	}
	require.NoError(t, store.UpsertWeeklyBuckets(ctx, buckets))

	engine := newEngine(t, store, &stubHistory{})
	avg, err := engine.RollingAverage(ctx, "SKU-100")
	require.NoError(t, err)
	require.True(t, avg.Equal(decimal.NewFromInt(20)), "got %s", avg)

	zero, err := engine.RollingAverage(ctx, "SKU-404")
	require.NoError(t, err)
	require.True(t, zero.IsZero())
}

func TestRunMonthlyCountsOrdersNotUnits(t *testing.T) {
	db := setupReportingTestDB(t)
	store, err := NewRepository(db)
	require.NoError(t, err)
	ctx := context.Background()

	august := func(day int) time.Time {
		return time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC)
	}
	history := &stubHistory{
		orders: []models.ShippedOrder{
			{OrderNumber: "X-1001", ShipDate: august(5)},
			{OrderNumber: "X-1002", ShipDate: august(12)},
			// July order, outside the month.
			{OrderNumber: "X-0999", ShipDate: time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)},
		},
		items: []models.ShippedItem{
			shippedItemAt("X-1001", "SKU-100", 6, august(5)),
			shippedItemAt("X-1001", "SKU-200", 3, august(5)),
			shippedItemAt("X-1002", "SKU-100", 2, august(12)),
		},
	}
	engine := newEngine(t, store, history)

	asOf := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, engine.RunMonthly(ctx, asOf))

	summary, err := store.GetMonthlySummary(ctx, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 2, summary.OrderCount)
	require.Equal(t, 2, summary.PackageCount)
	require.Equal(t, 11, summary.UnitCount)
	require.Equal(t, int64(2*175), summary.HandlingFeeCents)
	require.Equal(t, int64(11*45), summary.StorageFeeCents)

	// Re-run replaces, never duplicates.
	require.NoError(t, engine.RunMonthly(ctx, asOf))
	var count int64
	require.NoError(t, db.Model(&models.MonthlyBillingSummary{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}
