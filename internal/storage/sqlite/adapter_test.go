package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kadavilrahul/github-repo-sync/internal/domain"
	"github.com/kadavilrahul/github-repo-sync/internal/storage"
)

func newTestStorage(t *testing.T) storage.Storage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRun(id string, startedAt time.Time) *domain.SyncRun {
	return &domain.SyncRun{
		ID:         id,
		Mode:       domain.ModeBoth,
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(2 * time.Minute),
		Processed:  5,
		Succeeded:  4,
	}
}

func TestSaveAndGetRun(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	run := sampleRun("run-1", time.Now().Truncate(time.Second))
	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, run.ID, got.ID)
	require.Equal(t, domain.ModeBoth, got.Mode)
	require.Equal(t, 5, got.Processed)
	require.Equal(t, 4, got.Succeeded)
	require.WithinDuration(t, run.StartedAt, got.StartedAt, time.Second)
}

func TestGetRunNotFound(t *testing.T) {
	store := newTestStorage(t)

	got, err := store.GetRun(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSaveRunUpsert(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	run := sampleRun("run-1", time.Now())
	require.NoError(t, store.SaveRun(ctx, run))

	run.Succeeded = 5
	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, 5, got.Succeeded)
}

func TestGetRecentRunsOrderAndLimit(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		run := sampleRun(string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.SaveRun(ctx, run))
	}

	runs, err := store.GetRecentRuns(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	require.Equal(t, "e", runs[0].ID, "newest run first")
	require.Equal(t, "d", runs[1].ID)
	require.Equal(t, "c", runs[2].ID)
}

func TestRepoOutcomesRoundtrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, sampleRun("run-1", time.Now())))
	outcomes := []*domain.RepoOutcome{
		{ID: "o1", RunID: "run-1", Repo: "beta", Mirrored: true, BackedUp: true, Status: domain.OutcomeSuccess, CreatedAt: time.Now()},
		{ID: "o2", RunID: "run-1", Repo: "alpha", Status: domain.OutcomeFailed, Error: "push rejected", CreatedAt: time.Now()},
		{ID: "o3", RunID: "run-1", Repo: "hollow", Status: domain.OutcomeSkipped, CreatedAt: time.Now()},
	}
	require.NoError(t, store.SaveRepoOutcomes(ctx, outcomes))

	got, err := store.GetRepoOutcomes(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Ordered by repo name.
	require.Equal(t, "alpha", got[0].Repo)
	require.Equal(t, domain.OutcomeFailed, got[0].Status)
	require.Equal(t, "push rejected", got[0].Error)
	require.Equal(t, "beta", got[1].Repo)
	require.True(t, got[1].Mirrored)
	require.True(t, got[1].BackedUp)
	require.Equal(t, "hollow", got[2].Repo)
	require.Equal(t, domain.OutcomeSkipped, got[2].Status)
}

func TestSaveRepoOutcomesEmptySlice(t *testing.T) {
	store := newTestStorage(t)
	require.NoError(t, store.SaveRepoOutcomes(context.Background(), nil))
}

func TestGetRepoOutcomesUnknownRun(t *testing.T) {
	store := newTestStorage(t)

	got, err := store.GetRepoOutcomes(context.Background(), "nope")
	require.NoError(t, err)
	require.Empty(t, got)
}
