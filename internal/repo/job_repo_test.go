package repo

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/linknote/internal/model"
	appErr "github.com/xxxsen/linknote/internal/pkg/errors"
)

func seedJob(t *testing.T, repo *IngestJobRepo, jobID string, urls int) []*model.IngestJobItem {
	t.Helper()
	job := &model.IngestJob{
		ID:             jobID,
		RequestedCount: urls,
		Counts:         model.JobCounts{Queued: urls},
		Options:        model.DefaultIngestOptions(),
		Ctime:          1000,
		Mtime:          1000,
	}
	items := make([]*model.IngestJobItem, 0, urls)
	for i := 0; i < urls; i++ {
		items = append(items, &model.IngestJobItem{
			ID:        fmt.Sprintf("%s-i%d", jobID, i),
			JobID:     jobID,
			Position:  i,
			SourceURL: fmt.Sprintf("https://example.com/%d", i),
			Status:    model.ItemStatusQueued,
			Ctime:     1000,
			Mtime:     1000,
		})
	}
	require.NoError(t, repo.CreateWithItems(context.Background(), job, items))
	return items
}

func TestJobRepoCreateGet(t *testing.T) {
	conn := newTestDB(t)
	repo := NewIngestJobRepo(conn)
	ctx := context.Background()
	seedJob(t, repo, "j1", 3)

	job, err := repo.Get(ctx, "j1")
	require.NoError(t, err)
	require.Equal(t, 3, job.RequestedCount)
	require.Equal(t, 3, job.Counts.Queued)
	require.Equal(t, model.SummaryLengthStandard, job.Options.SummaryLength)
	require.True(t, job.Options.AutoCategory)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, appErr.ErrJobNotFound)
}

func TestJobRepoListItemsOrdered(t *testing.T) {
	conn := newTestDB(t)
	repo := NewIngestJobRepo(conn)
	ctx := context.Background()
	seedJob(t, repo, "j1", 3)

	items, err := repo.ListItems(ctx, "j1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, item := range items {
		require.Equal(t, i, item.Position)
		require.Equal(t, "j1", item.JobID)
	}
}

func TestJobRepoClaimItemOnlyOnce(t *testing.T) {
	conn := newTestDB(t)
	repo := NewIngestJobRepo(conn)
	ctx := context.Background()
	items := seedJob(t, repo, "j1", 1)

	claimed, err := repo.ClaimItem(ctx, items[0].ID, 2000)
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = repo.ClaimItem(ctx, items[0].ID, 2001)
	require.NoError(t, err)
	require.False(t, claimed)

	item, err := repo.GetItem(ctx, items[0].ID)
	require.NoError(t, err)
	require.Equal(t, model.ItemStatusProcessing, item.Status)
	require.Equal(t, int64(2000), item.Mtime)
}

func TestJobRepoFinishItemAndRecalc(t *testing.T) {
	conn := newTestDB(t)
	repo := NewIngestJobRepo(conn)
	ctx := context.Background()
	items := seedJob(t, repo, "j1", 3)

	claimed, err := repo.ClaimItem(ctx, items[0].ID, 2000)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, repo.FinishItem(ctx, items[0].ID, model.ItemStatusDone, "note-1", "", "", 2001))

	claimed, err = repo.ClaimItem(ctx, items[1].ID, 2000)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, repo.FinishItem(ctx, items[1].ID, model.ItemStatusFailed, "", "fetch_failed", "connection refused", 2002))

	counts, err := repo.RecalcCounts(ctx, "j1", 2003)
	require.NoError(t, err)
	require.Equal(t, &model.JobCounts{Queued: 1, Processing: 0, Done: 1, Failed: 1}, counts)

	job, err := repo.Get(ctx, "j1")
	require.NoError(t, err)
	require.Equal(t, *counts, job.Counts)
	require.Equal(t, 3, job.Counts.Total())
}

func TestJobRepoResetFailedItems(t *testing.T) {
	conn := newTestDB(t)
	repo := NewIngestJobRepo(conn)
	ctx := context.Background()
	items := seedJob(t, repo, "j1", 3)

	for _, item := range items[:2] {
		claimed, err := repo.ClaimItem(ctx, item.ID, 2000)
		require.NoError(t, err)
		require.True(t, claimed)
		require.NoError(t, repo.FinishItem(ctx, item.ID, model.ItemStatusFailed, "", "fetch_failed", "boom", 2001))
	}

	requeued, err := repo.ResetFailedItems(ctx, "j1", 3000)
	require.NoError(t, err)
	require.Equal(t, []string{items[0].ID, items[1].ID}, requeued)

	item, err := repo.GetItem(ctx, items[0].ID)
	require.NoError(t, err)
	require.Equal(t, model.ItemStatusQueued, item.Status)
	require.Empty(t, item.ErrorCode)
	require.Empty(t, item.ErrorMessage)
	require.Empty(t, item.NoteID)

	// With nothing failed, a reset reports nothing even when it runs in the
	// same second as the items' last write.
	requeued, err = repo.ResetFailedItems(ctx, "j1", 3000)
	require.NoError(t, err)
	require.Empty(t, requeued)
}

func TestJobRepoList(t *testing.T) {
	conn := newTestDB(t)
	repo := NewIngestJobRepo(conn)
	ctx := context.Background()
	seedJob(t, repo, "j1", 1)
	seedJob(t, repo, "j2", 1)

	jobs, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
}
