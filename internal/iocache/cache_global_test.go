package iocache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/pj/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreManager(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "cache.db")
	historyPath := filepath.Join(dir, "history.db")

	t.Run("both stores", func(t *testing.T) {
		mgr, err := NewStoreManager(schema.SQLiteBackend, cachePath, schema.SQLiteBackend, historyPath)
		require.NoError(t, err)
		assert.NotNil(t, mgr.GetCacheStore())
		assert.NotNil(t, mgr.GetHistoryStore())

		mgr.Close()
		assert.Nil(t, mgr.GetCacheStore())
		assert.Nil(t, mgr.GetHistoryStore())
	})

	t.Run("disabled stores are untyped nil", func(t *testing.T) {
		mgr, err := NewStoreManager(schema.NoneBackend, "", "", "")
		require.NoError(t, err)
		assert.True(t, mgr.GetCacheStore() == nil)
		assert.True(t, mgr.GetHistoryStore() == nil)
	})

	t.Run("history failure closes cache", func(t *testing.T) {
		_, err := NewStoreManager(schema.SQLiteBackend, cachePath, schema.SQLiteBackend, filepath.Join(dir, "missing", "h.db"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "history store")
	})
}

func TestClearStores(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "cache.db")
	historyPath := filepath.Join(dir, "history.db")

	mgr, err := NewStoreManager(schema.SQLiteBackend, cachePath, schema.SQLiteBackend, historyPath)
	require.NoError(t, err)
	mgr.Close()

	require.NoError(t, ClearCache(schema.SQLiteBackend, cachePath, ""))
	_, err = os.Stat(cachePath)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, ClearHistory(schema.SQLiteBackend, "", historyPath))
	_, err = os.Stat(historyPath)
	assert.True(t, os.IsNotExist(err))

	// Clearing twice is fine
	require.NoError(t, ClearCache(schema.SQLiteBackend, cachePath, ""))
	require.NoError(t, ClearHistory(schema.NoneBackend, "", ""))

	assert.Error(t, ClearCache(schema.SQLiteBackend, "", ""))
	assert.Error(t, ClearHistory("bogus", "", ""))
}

func TestExecuteHistoryExport(t *testing.T) {
	store := newTestHistoryStore(t)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	runID, err := store.BeginRun(start, schema.FullMode, map[string]any{"workers": 2})
	require.NoError(t, err)
	require.NoError(t, store.RecordFileResult(runID, schema.FileResultEntry{Path: "a.rs", Change: schema.ChangeAdded, Status: schema.StatusOk, RecordedAt: start}))
	require.NoError(t, store.EndRun(runID, start.Add(time.Second), schema.RunStats{Added: 1}))

	prefix := filepath.Join(t.TempDir(), "export")
	var out bytes.Buffer
	require.NoError(t, ExecuteHistoryExport(store, prefix, &out))

	runsFile, resultsFile := ExportPaths(prefix)
	for _, f := range []string{runsFile, resultsFile} {
		info, err := os.Stat(f)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	assert.Contains(t, out.String(), "Exported 1 runs")
	assert.Contains(t, out.String(), "Exported 1 file results")
}

func TestExecuteHistoryExportErrors(t *testing.T) {
	var out bytes.Buffer

	assert.ErrorContains(t, ExecuteHistoryExport(nil, "x", &out), "disabled")
	assert.ErrorContains(t, ExecuteHistoryExport(newTestHistoryStore(t), "", &out), "--output-file")
	assert.ErrorContains(t, ExecuteHistoryExport(newTestHistoryStore(t), "x", &out), "no run history")

	mockStore := &MockHistoryStore{}
	mockStore.On("GetStatus").Return(schema.HistoryStatus{}, errors.New("db down"))
	assert.ErrorContains(t, ExecuteHistoryExport(mockStore, "x", &out), "db down")
	mockStore.AssertExpectations(t)
}

func TestPrintStatus(t *testing.T) {
	var out bytes.Buffer
	PrintCacheStatus(&out, schema.CacheStatus{Backend: "none"})
	assert.Equal(t, "Cache Backend: none\nConnected: false\n", out.String())

	out.Reset()
	ts := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	PrintHistoryStatus(&out, schema.HistoryStatus{
		Backend:       "sqlite",
		Connected:     true,
		TotalRuns:     2,
		LastRunID:     9,
		LastRunTime:   ts,
		OldestRunTime: ts,
		TotalFailures: 3,
		TableSizes:    map[string]int64{fileResultsTable: 4, runsTable: 2},
	})
	text := out.String()
	assert.Contains(t, text, "Last Run ID: 9\n")
	assert.Contains(t, text, "Last Run: 2025-06-01 12:30:00\n")
	assert.Contains(t, text, "Total Failures: 3\n")
	assert.Less(t, bytes.Index(out.Bytes(), []byte(fileResultsTable)), bytes.Index(out.Bytes(), []byte(runsTable+":")))
}
