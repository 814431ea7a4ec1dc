package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harborops/fulfillment-backend/pkg/config"
	"github.com/harborops/fulfillment-backend/pkg/db/models"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	"github.com/harborops/fulfillment-backend/pkg/logger"
)

// ShippedHistoryReader is the slice of shipped history the engine aggregates.
type ShippedHistoryReader interface {
	ListShippedItemsBetween(ctx context.Context, start, end time.Time) ([]models.ShippedItem, error)
	ListShippedOrdersBetween(ctx context.Context, start, end time.Time) ([]models.ShippedOrder, error)
}

// EngineParams configure the reporting engine.
type EngineParams struct {
	Store     Store
	History   ShippedHistoryReader
	Logger    *logger.Logger
	Reporting config.ReportingConfig
}

// Engine aggregates shipped history into weekly sku buckets and monthly
// billing summaries, and computes the rolling weekly average used for
// inventory planning.
type Engine struct {
	store   Store
	history ShippedHistoryReader
	logg    *logger.Logger
	cfg     config.ReportingConfig
}

// NewEngine builds the reporting engine.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("report store required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("shipped history reader required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	cfg := params.Reporting
	if cfg.RollingWindowWeeks <= 0 {
		cfg.RollingWindowWeeks = 52
	}
	return &Engine{
		store:   params.Store,
		history: params.History,
		logg:    params.Logger,
		cfg:     cfg,
	}, nil
}

// WeekStart returns the Monday 00:00 UTC opening the calendar week holding t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC().Truncate(24 * time.Hour)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

// MonthStart returns the first day of the calendar month holding t.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// RunWeekly aggregates the last complete calendar week before asOf into
// WeeklyShippedHistory buckets. Re-running the same week overwrites it.
func (e *Engine) RunWeekly(ctx context.Context, asOf time.Time) error {
	weekStart := WeekStart(asOf).AddDate(0, 0, -7)
	weekEnd := weekStart.AddDate(0, 0, 7)

	items, err := e.history.ListShippedItemsBetween(ctx, weekStart, weekEnd)
	if err != nil {
		return err
	}

	totals := make(map[string]int)
	for _, item := range items {
		totals[item.BaseSKU] += item.Qty
	}

	buckets := make([]models.WeeklyShippedHistory, 0, len(totals))
	for sku, qty := range totals {
		buckets = append(buckets, models.WeeklyShippedHistory{
			WeekStart: weekStart,
			WeekEnd:   weekEnd.AddDate(0, 0, -1),
			SKU:       sku,
			Qty:       qty,
		})
	}
	if err := e.store.UpsertWeeklyBuckets(ctx, buckets); err != nil {
		return err
	}
	if err := e.store.RecordRun(ctx, enums.ReportTypeWeeklyShipped, weekStart, time.Now().UTC()); err != nil {
		return err
	}

	e.logg.Info(e.logg.WithFields(ctx, map[string]any{
		"week_start": weekStart.Format("2006-01-02"),
		"skus":       len(buckets),
	}), "weekly shipped history aggregated")
	return nil
}

// RollingAverage returns the average weekly shipped quantity for a sku over
// the trailing configured window, averaged across the weeks that have a
// bucket.
func (e *Engine) RollingAverage(ctx context.Context, sku string) (decimal.Decimal, error) {
	buckets, err := e.store.ListWeeklyBySKU(ctx, sku, e.cfg.RollingWindowWeeks)
	if err != nil {
		return decimal.Zero, err
	}
	if len(buckets) == 0 {
		return decimal.Zero, nil
	}

	total := decimal.Zero
	for _, bucket := range buckets {
		total = total.Add(decimal.NewFromInt(int64(bucket.Qty)))
	}
	return total.Div(decimal.NewFromInt(int64(len(buckets)))).Round(2), nil
}

// RunMonthly produces the billing summary for the last complete calendar
// month before asOf. Order counts, not unit counts, drive handling fees;
// storage is charged per unit.
func (e *Engine) RunMonthly(ctx context.Context, asOf time.Time) error {
	monthStart := MonthStart(asOf).AddDate(0, -1, 0)
	monthEnd := monthStart.AddDate(0, 1, 0)

	orders, err := e.history.ListShippedOrdersBetween(ctx, monthStart, monthEnd)
	if err != nil {
		return err
	}
	items, err := e.history.ListShippedItemsBetween(ctx, monthStart, monthEnd)
	if err != nil {
		return err
	}

	unitCount := 0
	for _, item := range items {
		unitCount += item.Qty
	}

	summary := &models.MonthlyBillingSummary{
		Month:        monthStart,
		OrderCount:   len(orders),
		PackageCount: len(orders),
		UnitCount:    unitCount,
	}
	summary.HandlingFeeCents = int64(summary.OrderCount) * int64(e.cfg.HandlingFeeCents)
	summary.StorageFeeCents = int64(summary.UnitCount) * int64(e.cfg.StorageFeeCents)

	if err := e.store.UpsertMonthlySummary(ctx, summary); err != nil {
		return err
	}
	if err := e.store.RecordRun(ctx, enums.ReportTypeMonthlyBilling, monthStart, time.Now().UTC()); err != nil {
		return err
	}

	e.logg.Info(e.logg.WithFields(ctx, map[string]any{
		"month":  monthStart.Format("2006-01"),
		"orders": summary.OrderCount,
		"units":  summary.UnitCount,
	}), "monthly billing summary produced")
	return nil
}
