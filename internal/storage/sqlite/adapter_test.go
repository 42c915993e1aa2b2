package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glsearch/internal/domain"
	apperrors "glsearch/internal/errors"
	"glsearch/internal/storage"
)

func newTestStorage(t *testing.T) storage.Storage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testRun(id string) *domain.SearchRun {
	return &domain.SearchRun{
		ID:           id,
		GroupPath:    "acme",
		Phrase:       "TODO-X",
		Branch:       "master",
		ProjectCount: 3,
		Status:       domain.RunStatusInProgress,
		StartedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func testResults() []*domain.SearchResult {
	return []*domain.SearchResult{
		{ProjectID: 1, ProjectName: "ProjectA", Branch: "master", FilePath: "README.md", Snippet: "...TODO-X...", Status: domain.StatusFound},
		{ProjectID: 2, ProjectName: "ProjectB", Branch: "master", Status: domain.StatusBranchMissing},
		{ProjectID: 3, ProjectName: "ProjectC", Branch: "master", Status: domain.StatusNotFound},
		{ProjectID: 4, ProjectName: "ProjectD", Branch: "master", Status: domain.StatusError, Error: "server error"},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	run := testRun("run-1")
	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.GroupPath, got.GroupPath)
	assert.Equal(t, run.Phrase, got.Phrase)
	assert.Equal(t, run.Branch, got.Branch)
	assert.Equal(t, run.ProjectCount, got.ProjectCount)
	assert.Equal(t, run.Status, got.Status)
	assert.Nil(t, got.FinishedAt)
}

func TestGetRunNotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSaveRunIsIdempotent(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	run := testRun("run-1")
	require.NoError(t, store.SaveRun(ctx, run))

	run.ProjectCount = 7
	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.ProjectCount)

	runs, err := store.GetRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestUpdateRunStatus(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, testRun("run-1")))

	finished := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.UpdateRunStatus(ctx, "run-1", domain.RunStatusCompleted, finished))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, got.Status)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.Equal(finished))
}

func TestGetRunsOrdersNewestFirst(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	older := testRun("run-old")
	older.StartedAt = time.Now().UTC().Add(-time.Hour)
	newer := testRun("run-new")
	newer.StartedAt = time.Now().UTC()

	require.NoError(t, store.SaveRun(ctx, older))
	require.NoError(t, store.SaveRun(ctx, newer))

	runs, err := store.GetRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].ID)
	assert.Equal(t, "run-old", runs[1].ID)

	limited, err := store.GetRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "run-new", limited[0].ID)
}

func TestSaveAndGetResultsPreservesOrder(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, testRun("run-1")))
	results := testResults()
	require.NoError(t, store.SaveResults(ctx, "run-1", results))

	got, err := store.GetResults(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, len(results))
	for i, want := range results {
		assert.Equal(t, want.ProjectID, got[i].ProjectID)
		assert.Equal(t, want.ProjectName, got[i].ProjectName)
		assert.Equal(t, want.FilePath, got[i].FilePath)
		assert.Equal(t, want.Snippet, got[i].Snippet)
		assert.Equal(t, want.Status, got[i].Status)
		assert.Equal(t, want.Error, got[i].Error)
	}
}

func TestCountResultsByStatus(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, testRun("run-1")))
	require.NoError(t, store.SaveResults(ctx, "run-1", testResults()))

	counts, err := store.CountResultsByStatus(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.StatusFound])
	assert.Equal(t, int64(1), counts[domain.StatusNotFound])
	assert.Equal(t, int64(1), counts[domain.StatusBranchMissing])
	assert.Equal(t, int64(1), counts[domain.StatusError])
}
