package iocache

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/pj/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHistoryStore(t *testing.T) *HistoryStoreImpl {
	t.Helper()
	store, err := NewHistoryStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestHistoryStoreRunLifecycle(t *testing.T) {
	store := newTestHistoryStore(t)
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	runID, err := store.BeginRun(start, schema.UpdateMode, map[string]any{"workers": 4, "model": "m"})
	require.NoError(t, err)
	assert.Positive(t, runID)

	entries := []schema.FileResultEntry{
		{Path: "a.rs", Change: schema.ChangeModified, Status: schema.StatusOk, Attempts: 1, TotalLines: 10, CodeLines: 8, CommentLines: 1, BlankLines: 1, ContentHash: "h1", RecordedAt: start},
		{Path: "b.rs", Change: schema.ChangeAdded, Status: schema.StatusFailed, FailureKind: schema.FailureTimeout, Attempts: 4, TotalLines: 2, CodeLines: 2, ContentHash: "h2", RecordedAt: start},
	}
	for _, entry := range entries {
		require.NoError(t, store.RecordFileResult(runID, entry))
	}

	stats := schema.RunStats{Mode: schema.UpdateMode, Added: 1, Modified: 1, Unchanged: 5, Removed: 2, Failed: 1}
	require.NoError(t, store.EndRun(runID, start.Add(1500*time.Millisecond), stats))

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, runID, run.RunID)
	_, err = uuid.Parse(run.RunUUID)
	assert.NoError(t, err, "run_uuid is a valid UUID")
	assert.Equal(t, "update", run.Mode)
	assert.True(t, run.StartTime.Equal(start))
	require.NotNil(t, run.EndTime)
	assert.True(t, run.EndTime.Equal(start.Add(1500*time.Millisecond)))
	require.NotNil(t, run.RunDurationMs)
	assert.Equal(t, int32(1500), *run.RunDurationMs)
	assert.Equal(t, int32(1), run.AddedFiles)
	assert.Equal(t, int32(1), run.ModifiedFiles)
	assert.Equal(t, int32(5), run.UnchangedFiles)
	assert.Equal(t, int32(2), run.RemovedFiles)
	assert.Equal(t, int32(1), run.FailedFiles)
	require.NotNil(t, run.ConfigParams)
	var params map[string]any
	require.NoError(t, json.Unmarshal([]byte(*run.ConfigParams), &params))
	assert.Equal(t, "m", params["model"])

	results, err := store.GetAllFileResults()
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a.rs", results[0].FilePath)
	assert.Nil(t, results[0].FailureKind)
	assert.Equal(t, int32(8), results[0].CodeLines)
	assert.Equal(t, "b.rs", results[1].FilePath)
	assert.Equal(t, "failed", results[1].Status)
	require.NotNil(t, results[1].FailureKind)
	assert.Equal(t, "timeout", *results[1].FailureKind)
	assert.Equal(t, int32(4), results[1].Attempts)
	assert.True(t, results[1].RecordedAt.Equal(start))
}

func TestHistoryStoreStatus(t *testing.T) {
	store := newTestHistoryStore(t)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Zero(t, status.TotalRuns)
	assert.Equal(t, int64(0), status.TableSizes[runsTable])

	first := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	id1, err := store.BeginRun(first, schema.FullMode, nil)
	require.NoError(t, err)
	require.NoError(t, store.EndRun(id1, first.Add(time.Second), schema.RunStats{Added: 3, Failed: 2}))

	id2, err := store.BeginRun(second, schema.UpdateMode, nil)
	require.NoError(t, err)
	require.NoError(t, store.RecordFileResult(id2, schema.FileResultEntry{Path: "x.rs", Change: schema.ChangeModified, Status: schema.StatusOk, RecordedAt: second}))
	require.NoError(t, store.EndRun(id2, second.Add(time.Second), schema.RunStats{Modified: 1, Failed: 1}))

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalRuns)
	assert.Equal(t, id2, status.LastRunID)
	assert.True(t, status.LastRunTime.Equal(second))
	assert.True(t, status.OldestRunTime.Equal(first))
	assert.Equal(t, 3, status.TotalFailures)
	assert.Equal(t, int64(2), status.TableSizes[runsTable])
	assert.Equal(t, int64(1), status.TableSizes[fileResultsTable])
}

func TestHistoryStoreUnfinishedRun(t *testing.T) {
	store := newTestHistoryStore(t)

	_, err := store.BeginRun(time.Now(), schema.FullMode, map[string]any{})
	require.NoError(t, err)

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].EndTime)
	assert.Nil(t, runs[0].RunDurationMs)

	err = store.EndRun(999, time.Now(), schema.RunStats{})
	assert.Error(t, err, "unknown run ID")
}

func TestHistoryStoreNoneBackend(t *testing.T) {
	store, err := NewHistoryStore(schema.NoneBackend, "")
	require.NoError(t, err)

	runID, err := store.BeginRun(time.Now(), schema.FullMode, nil)
	require.NoError(t, err)
	assert.Zero(t, runID)
	assert.NoError(t, store.RecordFileResult(runID, schema.FileResultEntry{Path: "a.rs"}))
	assert.NoError(t, store.EndRun(runID, time.Now(), schema.RunStats{}))

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}
