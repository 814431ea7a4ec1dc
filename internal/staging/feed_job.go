package staging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/harborops/fulfillment-backend/pkg/config"
	"github.com/harborops/fulfillment-backend/pkg/db/models"
	"github.com/harborops/fulfillment-backend/pkg/enums"
	"github.com/harborops/fulfillment-backend/pkg/logger"
)

// FeedJobParams configure the file-drop poller.
type FeedJobParams struct {
	DB       *gorm.DB
	Service  *Service
	Logger   *logger.Logger
	Feed     config.FeedConfig
	Interval time.Duration
}

// FeedJob polls the drop directory for feed files, imports them, and moves
// processed files to the archive directory.
type FeedJob struct {
	db       *gorm.DB
	service  *Service
	logg     *logger.Logger
	feed     config.FeedConfig
	interval time.Duration
}

// NewFeedJob builds the feed import job.
func NewFeedJob(params FeedJobParams) (*FeedJob, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Service == nil {
		return nil, fmt.Errorf("service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(params.Feed.DropDir) == "" {
		return nil, fmt.Errorf("feed drop dir required")
	}
	return &FeedJob{
		db:       params.DB,
		service:  params.Service,
		logg:     params.Logger,
		feed:     params.Feed,
		interval: params.Interval,
	}, nil
}

func (j *FeedJob) Name() string { return enums.WorkflowFeedImport }

func (j *FeedJob) Interval() time.Duration { return j.interval }

// Run imports every feed file currently in the drop directory, oldest file
// name first. A file that fails to parse stays in the drop directory so the
// failure is visible and retried; imported files are archived.
func (j *FeedJob) Run(ctx context.Context) error {
	files, err := j.listFeedFiles()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if len(files) == 0 {
		return j.savePollState(ctx, models.FeedPollState{ID: 1, LastPolledAt: &now})
	}

	var errs error
	var lastImported string
	importedCount := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		count, err := j.importFile(ctx, file)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("feed file %s: %w", filepath.Base(file), err))
			continue
		}
		lastImported = filepath.Base(file)
		importedCount = count
	}

	state := models.FeedPollState{ID: 1, LastPolledAt: &now}
	if lastImported != "" {
		state.LastFileName = lastImported
		state.LastFileCount = importedCount
		state.LastImportedAt = &now
	}
	if err := j.savePollState(ctx, state); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

func (j *FeedJob) listFeedFiles() ([]string, error) {
	entries, err := os.ReadDir(j.feed.DropDir)
	if err != nil {
		return nil, fmt.Errorf("reading feed drop dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
			files = append(files, filepath.Join(j.feed.DropDir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func (j *FeedJob) importFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening feed file: %w", err)
	}
	orders, parseErr := ParseFeed(f)
	f.Close()
	if parseErr != nil {
		return 0, parseErr
	}

	result, err := j.service.ImportOrders(ctx, orders)
	if err != nil {
		return 0, err
	}

	fileCtx := j.logg.WithFields(ctx, map[string]any{
		"file":     filepath.Base(path),
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"failed":   result.Failed,
	})
	j.logg.Info(fileCtx, "feed file imported")

	if err := j.archive(path); err != nil {
		return 0, err
	}
	return result.Imported + result.Skipped + result.Failed, nil
}

func (j *FeedJob) archive(path string) error {
	if strings.TrimSpace(j.feed.ArchiveDir) == "" {
		return os.Remove(path)
	}
	if err := os.MkdirAll(j.feed.ArchiveDir, 0o755); err != nil {
		return fmt.Errorf("creating archive dir: %w", err)
	}
	target := filepath.Join(j.feed.ArchiveDir, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("archiving feed file: %w", err)
	}
	return nil
}

func (j *FeedJob) savePollState(ctx context.Context, state models.FeedPollState) error {
	assignments := []string{"last_polled_at", "updated_at"}
	if state.LastFileName != "" {
		assignments = append(assignments, "last_file_name", "last_file_count", "last_imported_at")
	}
	err := j.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(assignments),
		}).
		Create(&state).Error
	if err != nil {
		return fmt.Errorf("saving feed poll state: %w", err)
	}
	return nil
}
