package sched

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harborops/fulfillment-backend/internal/staging"
	"github.com/harborops/fulfillment-backend/pkg/config"
	"github.com/harborops/fulfillment-backend/pkg/db/models"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	"github.com/harborops/fulfillment-backend/pkg/logger"
)

func setupRetentionTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
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
);`}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func TestRetentionPurgesOnlyStaleHistoricalOrders(t *testing.T) {
	db := setupRetentionTestDB(t)
	repo, err := staging.NewRepository(db)
	require.NoError(t, err)
	ctx := context.Background()

	create := func(orderNumber string, historical bool, age time.Duration) {
		order := &models.StagedOrder{
			OrderNumber: orderNumber,
			OrderDate:   time.Now().UTC().Add(-age),
			Status:      enums.StagedOrderStatusShipped,
		}
		require.NoError(t, repo.Create(ctx, order))
		stale := time.Now().UTC().Add(-age)
		require.NoError(t, db.Model(&models.StagedOrder{}).
			Where("id = ?", order.ID).
			UpdateColumns(map[string]any{"historical": historical, "updated_at": stale}).Error)
	}

	create("X-OLD-HIST", true, 90*24*time.Hour)
	create("X-NEW-HIST", true, 10*24*time.Hour)
	create("X-OLD-LIVE", false, 90*24*time.Hour)

	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
	job, err := NewRetentionJob(RetentionJobParams{
		Orders:    repo,
		Logger:    logg,
		Workflows: config.WorkflowsConfig{RetentionInterval: 24 * time.Hour, RetentionWindowDays: 60},
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(ctx))

	var remaining []models.StagedOrder
	require.NoError(t, db.Order("order_number ASC").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	require.Equal(t, "X-NEW-HIST", remaining[0].OrderNumber)
	require.Equal(t, "X-OLD-LIVE", remaining[1].OrderNumber)
}
