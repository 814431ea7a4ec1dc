package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harborops/fulfillment-backend/pkg/config"
	"github.com/harborops/fulfillment-backend/pkg/db/models"
	"github.com/harborops/fulfillment-backend/pkg/enums"
)

func newFeedJob(t *testing.T) (*FeedJob, Repository, string, string) {
	t.Helper()
	db := setupStagingTestDB(t)
	repo, err := NewRepository(db)
	require.NoError(t, err)
	svc := newImportService(t, repo, nil)

	dropDir := t.TempDir()
	archiveDir := filepath.Join(t.TempDir(), "archive")

	job, err := NewFeedJob(FeedJobParams{
		DB:      db,
		Service: svc,
		Logger:  svc.logg,
		Feed:    config.FeedConfig{DropDir: dropDir, ArchiveDir: archiveDir},
	})
	require.NoError(t, err)
	return job, repo, dropDir, archiveDir
}

func TestFeedJobImportsAndArchives(t *testing.T) {
	job, repo, dropDir, archiveDir := newFeedJob(t)

	path := filepath.Join(dropDir, "orders-20260820.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFeed), 0o644))

	require.NoError(t, job.Run(context.Background()))

	order, err := repo.GetByOrderNumber(context.Background(), "X-1001")
	require.NoError(t, err)
	require.Equal(t, enums.StagedOrderStatusPending, order.Status)

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err), "imported file must leave the drop dir")
	_, err = os.Stat(filepath.Join(archiveDir, "orders-20260820.xml"))
	require.NoError(t, err, "imported file must land in the archive dir")

	var state models.FeedPollState
	require.NoError(t, job.db.First(&state, "id = 1").Error)
	require.Equal(t, "orders-20260820.xml", state.LastFileName)
	require.Equal(t, 1, state.LastFileCount)
	require.NotNil(t, state.LastImportedAt)
}

func TestFeedJobLeavesBadFileInPlace(t *testing.T) {
	job, _, dropDir, _ := newFeedJob(t)

	path := filepath.Join(dropDir, "broken.xml")
	require.NoError(t, os.WriteFile(path, []byte("<Orders><Order>"), 0o644))

	err := job.Run(context.Background())
	require.Error(t, err)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr, "unparseable file stays for inspection")
}

func TestFeedJobUpdatesPollStateOnEmptyDir(t *testing.T) {
	job, _, _, _ := newFeedJob(t)

	require.NoError(t, job.Run(context.Background()))

	var state models.FeedPollState
	require.NoError(t, job.db.First(&state, "id = 1").Error)
	require.NotNil(t, state.LastPolledAt)
	require.Nil(t, state.LastImportedAt)
	require.WithinDuration(t, time.Now().UTC(), *state.LastPolledAt, time.Minute)
}

func TestFeedJobIgnoresNonXMLFiles(t *testing.T) {
	job, repo, dropDir, _ := newFeedJob(t)

	require.NoError(t, os.WriteFile(filepath.Join(dropDir, "notes.txt"), []byte("hello"), 0o644))

	require.NoError(t, job.Run(context.Background()))

	orders, _, err := repo.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Empty(t, orders)
}
