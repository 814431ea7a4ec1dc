package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/harborops/fulfillment-backend/pkg/db/models"
	"github.com/harborops/fulfillment-backend/pkg/enums"
)

// Store persists report buckets, monthly summaries, and run bookkeeping.
type Store interface {
	UpsertWeeklyBuckets(ctx context.Context, buckets []models.WeeklyShippedHistory) error
	ListWeeklyBySKU(ctx context.Context, sku string, limit int) ([]models.WeeklyShippedHistory, error)
	ListWeekly(ctx context.Context, weekStart time.Time) ([]models.WeeklyShippedHistory, error)
	UpsertMonthlySummary(ctx context.Context, summary *models.MonthlyBillingSummary) error
	GetMonthlySummary(ctx context.Context, month time.Time) (*models.MonthlyBillingSummary, error)
	ListMonthlySummaries(ctx context.Context, limit int) ([]models.MonthlyBillingSummary, error)
	RecordRun(ctx context.Context, reportType enums.ReportType, runForDate, completedAt time.Time) error
	ListRuns(ctx context.Context, reportType enums.ReportType, limit int) ([]models.ReportRun, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the reporting store.
func NewRepository(db *gorm.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db connection required")
	}
	return &repository{db: db}, nil
}

// UpsertWeeklyBuckets writes one week of aggregation. Re-running the same
// week replaces the quantities in place.
func (r *repository) UpsertWeeklyBuckets(ctx context.Context, buckets []models.WeeklyShippedHistory) error {
	if len(buckets) == 0 {
		return nil
	}
	for i := range buckets {
		if buckets[i].ID == uuid.Nil {
			buckets[i].ID = uuid.New()
		}
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "week_start"}, {Name: "week_end"}, {Name: "sku"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"qty", "updated_at"}),
	}).Create(&buckets).Error
	if err != nil {
		return fmt.Errorf("upserting weekly buckets: %w", err)
	}
	return nil
}

func (r *repository) ListWeeklyBySKU(ctx context.Context, sku string, limit int) ([]models.WeeklyShippedHistory, error) {
	var buckets []models.WeeklyShippedHistory
	query := r.db.WithContext(ctx).
		Where("sku = ?", sku).
		Order("week_start DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&buckets).Error; err != nil {
		return nil, fmt.Errorf("listing weekly history for %s: %w", sku, err)
	}
	return buckets, nil
}

func (r *repository) ListWeekly(ctx context.Context, weekStart time.Time) ([]models.WeeklyShippedHistory, error) {
	var buckets []models.WeeklyShippedHistory
	err := r.db.WithContext(ctx).
		Where("week_start = ?", weekStart).
		Order("sku ASC").
		Find(&buckets).Error
	if err != nil {
		return nil, fmt.Errorf("listing weekly history: %w", err)
	}
	return buckets, nil
}

func (r *repository) UpsertMonthlySummary(ctx context.Context, summary *models.MonthlyBillingSummary) error {
	if summary == nil {
		return fmt.Errorf("summary required")
	}
	if summary.ID == uuid.Nil {
		summary.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"order_count", "package_count", "unit_count",
			"storage_fee_cents", "handling_fee_cents", "updated_at",
		}),
	}).Create(summary).Error
	if err != nil {
		return fmt.Errorf("upserting monthly summary: %w", err)
	}
	return nil
}

func (r *repository) GetMonthlySummary(ctx context.Context, month time.Time) (*models.MonthlyBillingSummary, error) {
	var summary models.MonthlyBillingSummary
	err := r.db.WithContext(ctx).First(&summary, "month = ?", month).Error
	if err != nil {
		return nil, fmt.Errorf("loading monthly summary: %w", err)
	}
	return &summary, nil
}

func (r *repository) ListMonthlySummaries(ctx context.Context, limit int) ([]models.MonthlyBillingSummary, error) {
	var summaries []models.MonthlyBillingSummary
	query := r.db.WithContext(ctx).Order("month DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&summaries).Error; err != nil {
		return nil, fmt.Errorf("listing monthly summaries: %w", err)
	}
	return summaries, nil
}

// RecordRun upserts the (report_type, run_for_date) bookkeeping row so a
// re-run overwrites the prior completion stamp.
func (r *repository) RecordRun(ctx context.Context, reportType enums.ReportType, runForDate, completedAt time.Time) error {
	run := models.ReportRun{
		ID:          uuid.New(),
		ReportType:  reportType,
		RunForDate:  runForDate,
		CompletedAt: &completedAt,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "report_type"}, {Name: "run_for_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed_at", "updated_at"}),
	}).Create(&run).Error
	if err != nil {
		return fmt.Errorf("recording report run: %w", err)
	}
	return nil
}

func (r *repository) ListRuns(ctx context.Context, reportType enums.ReportType, limit int) ([]models.ReportRun, error) {
	var runs []models.ReportRun
	query := r.db.WithContext(ctx).
		Where("report_type = ?", reportType).
		Order("run_for_date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing report runs: %w", err)
	}
	return runs, nil
}
