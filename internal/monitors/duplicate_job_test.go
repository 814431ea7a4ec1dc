package monitors

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harborops/fulfillment-backend/pkg/config"
	"github.com/harborops/fulfillment-backend/pkg/db/models"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	"github.com/harborops/fulfillment-backend/pkg/logger"
	"github.com/harborops/fulfillment-backend/pkg/shipstation"
)

func setupMonitorsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
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
);`}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type stubOrderLister struct {
	orders []shipstation.Order
	err    error
}

func (s *stubOrderLister) ListOrdersModifiedSince(ctx context.Context, since time.Time) ([]shipstation.Order, error) {
	return s.orders, s.err
}

type stubCheckpoints struct {
	advanced []time.Time
}

func (s *stubCheckpoints) Get(ctx context.Context, workflow string) (time.Time, error) {
	return time.Time{}, nil
}

func (s *stubCheckpoints) Advance(ctx context.Context, workflow string, to time.Time) error {
	s.advanced = append(s.advanced, to)
	return nil
}

func platformOrder(id int64, orderNumber, itemSKU string) shipstation.Order {
	return shipstation.Order{
		OrderID:     id,
		OrderNumber: orderNumber,
		Items:       []shipstation.OrderItem{{SKU: itemSKU, Quantity: 1}},
	}
}

func newDuplicateJob(t *testing.T, alerts AlertStore, lister OrderLister, checkpoints CheckpointStore) *DuplicateJob {
	t.Helper()
	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
	job, err := NewDuplicateJob(DuplicateJobParams{
		Alerts:      alerts,
		Client:      lister,
		Checkpoints: checkpoints,
		Logger:      logg,
		Workflows:   config.WorkflowsConfig{DuplicateInterval: time.Hour},
		Monitors:    config.MonitorsConfig{DuplicateLookbackDays: 90},
	})
	require.NoError(t, err)
	return job
}

func TestDuplicateScanRaisesOneActiveAlert(t *testing.T) {
	db := setupMonitorsTestDB(t)
	alerts, err := NewAlertRepository(db)
	require.NoError(t, err)

	lister := &stubOrderLister{orders: []shipstation.Order{
		platformOrder(101, "X-2002", "SKU-100 - LOT-A"),
		platformOrder(102, "X-2002", "SKU-100 - LOT-A"),
		platformOrder(103, "X-3003", "SKU-200 - LOT-B"),
	}}
	checkpoints := &stubCheckpoints{}
	job := newDuplicateJob(t, alerts, lister, checkpoints)

	require.NoError(t, job.Run(context.Background()))

	active := enums.AlertStatusActive
	rows, err := alerts.List(context.Background(), &active)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "X-2002", rows[0].OrderNumber)
	require.Equal(t, "SKU-100", rows[0].BaseSKU)
	require.Equal(t, 2, rows[0].DuplicateCount)
	require.Equal(t, []string{"101", "102"}, rows[0].PlatformIDs)
	require.Len(t, checkpoints.advanced, 1)
}

func TestDuplicateScanRefreshesInsteadOfDuplicating(t *testing.T) {
	db := setupMonitorsTestDB(t)
	alerts, err := NewAlertRepository(db)
	require.NoError(t, err)

	lister := &stubOrderLister{orders: []shipstation.Order{
		platformOrder(101, "X-2002", "SKU-100 - LOT-A"),
		platformOrder(102, "X-2002", "SKU-100 - LOT-A"),
	}}
	job := newDuplicateJob(t, alerts, lister, &stubCheckpoints{})

	require.NoError(t, job.Run(context.Background()))

	// A third copy shows up before the next scan.
	lister.orders = append(lister.orders, platformOrder(104, "X-2002", "SKU-100 - LOT-A"))
	require.NoError(t, job.Run(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.DuplicateOrderAlert{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	active := enums.AlertStatusActive
	rows, err := alerts.List(context.Background(), &active)
	require.NoError(t, err)
	require.Equal(t, 3, rows[0].DuplicateCount)
	require.Equal(t, []string{"101", "102", "104"}, rows[0].PlatformIDs)
}

func TestDuplicateScanHonorsExclusionList(t *testing.T) {
	db := setupMonitorsTestDB(t)
	alerts, err := NewAlertRepository(db)
	require.NoError(t, err)

	require.NoError(t, alerts.CreateExclusion(context.Background(), &models.DuplicateOrderExclusion{
		OrderNumber: "X-2002",
		BaseSKU:     "SKU-100",
	}))

	lister := &stubOrderLister{orders: []shipstation.Order{
		platformOrder(101, "X-2002", "SKU-100 - LOT-A"),
		platformOrder(102, "X-2002", "SKU-100 - LOT-A"),
	}}
	job := newDuplicateJob(t, alerts, lister, &stubCheckpoints{})

	require.NoError(t, job.Run(context.Background()))

	rows, err := alerts.List(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestDuplicateScanFailureLeavesCheckpointAlone(t *testing.T) {
	db := setupMonitorsTestDB(t)
	alerts, err := NewAlertRepository(db)
	require.NoError(t, err)

	lister := &stubOrderLister{err: errors.New("platform down")}
	checkpoints := &stubCheckpoints{}
	job := newDuplicateJob(t, alerts, lister, checkpoints)

	require.Error(t, job.Run(context.Background()))
	require.Empty(t, checkpoints.advanced)
}

func TestResolvedAlertAllowsFreshOne(t *testing.T) {
	db := setupMonitorsTestDB(t)
	alerts, err := NewAlertRepository(db)
	require.NoError(t, err)
	ctx := context.Background()

	lister := &stubOrderLister{orders: []shipstation.Order{
		platformOrder(101, "X-2002", "SKU-100 - LOT-A"),
		platformOrder(102, "X-2002", "SKU-100 - LOT-A"),
	}}
	job := newDuplicateJob(t, alerts, lister, &stubCheckpoints{})
	require.NoError(t, job.Run(ctx))

	active := enums.AlertStatusActive
	rows, err := alerts.List(ctx, &active)
	require.NoError(t, err)
	require.NoError(t, alerts.Resolve(ctx, rows[0].ID, enums.AlertStatusResolved))

	// The duplicates are still on the platform next scan.
	require.NoError(t, job.Run(ctx))

	rows, err = alerts.List(ctx, &active)
	require.NoError(t, err)
	require.Len(t, rows, 1, "a resolved alert does not suppress a new sighting")

	var total int64
	require.NoError(t, db.Model(&models.DuplicateOrderAlert{}).Count(&total).Error)
	require.Equal(t, int64(2), total)
}
