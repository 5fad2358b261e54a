package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/pj/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRuns() []Run {
	now := time.Now()
	endTime := now.Add(3 * time.Second)
	durationMs := int32(3000)
	params := `{"model":"gpt-4o-mini","workers":4}`

	return []Run{
		{
			RunID:          1,
			RunUUID:        "0f3c5cf5-4d6b-4e1c-9a52-6b7b1d3c1f10",
			Mode:           "full",
			StartTime:      now,
			EndTime:        &endTime,
			RunDurationMs:  &durationMs,
			AddedFiles:     12,
			ModifiedFiles:  0,
			UnchangedFiles: 0,
			RemovedFiles:   0,
			FailedFiles:    1,
			ConfigParams:   &params,
		},
		{
			// Interrupted run without completion data
			RunID:     2,
			RunUUID:   "a4bfb0a4-8e0b-46f4-8f3e-6ad2b1c0a9d2",
			Mode:      "update",
			StartTime: now.Add(time.Hour),
		},
	}
}

func sampleFileResults() []FileResult {
	now := time.Now()
	timeout := string(schema.FailureTimeout)

	return []FileResult{
		{
			RunID:        1,
			FilePath:     "src/main.rs",
			ChangeKind:   "added",
			Status:       "ok",
			Attempts:     1,
			TotalLines:   120,
			CodeLines:    90,
			CommentLines: 20,
			BlankLines:   10,
			ContentHash:  "3b1f0e5c7d0a4e2f9c1b8a7d6e5f4a3b",
			RecordedAt:   now,
		},
		{
			RunID:       1,
			FilePath:    "src/slow.rs",
			ChangeKind:  "added",
			Status:      "failed",
			FailureKind: &timeout,
			Attempts:    4,
			TotalLines:  3,
			CodeLines:   3,
			ContentHash: "c0ffee00c0ffee00c0ffee00c0ffee00",
			RecordedAt:  now,
		},
	}
}

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	return rows[:n]
}

func TestRunStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(Run))
	for _, col := range []string{
		"run_id", "run_uuid", "mode", "start_time", "end_time", "run_duration_ms",
		"added_files", "modified_files", "unchanged_files", "removed_files", "failed_files", "config_params",
	} {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "column %s should exist in schema", col)
	}
}

func TestFileResultStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(FileResult))
	for _, col := range []string{
		"run_id", "file_path", "change_kind", "status", "failure_kind", "attempts",
		"total_lines", "code_lines", "comment_lines", "blank_lines", "content_hash", "recorded_at",
	} {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "column %s should exist in schema", col)
	}
}

func TestWriteRunsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "runs.parquet")
	data := sampleRuns()

	require.NoError(t, WriteRunsParquet(data, outputPath))

	got := readAll[Run](t, outputPath)
	require.Len(t, got, len(data))

	assert.Equal(t, data[0].RunUUID, got[0].RunUUID)
	assert.Equal(t, "full", got[0].Mode)
	assert.Equal(t, int32(12), got[0].AddedFiles)
	assert.Equal(t, int32(1), got[0].FailedFiles)
	require.NotNil(t, got[0].EndTime)
	assert.WithinDuration(t, *data[0].EndTime, *got[0].EndTime, time.Nanosecond)
	require.NotNil(t, got[0].RunDurationMs)
	assert.Equal(t, int32(3000), *got[0].RunDurationMs)
	require.NotNil(t, got[0].ConfigParams)
	assert.JSONEq(t, *data[0].ConfigParams, *got[0].ConfigParams)

	assert.Equal(t, "update", got[1].Mode)
	assert.Nil(t, got[1].EndTime)
	assert.Nil(t, got[1].RunDurationMs)
	assert.Nil(t, got[1].ConfigParams)
}

func TestWriteFileResultsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "file_results.parquet")
	data := sampleFileResults()

	require.NoError(t, WriteFileResultsParquet(data, outputPath))

	got := readAll[FileResult](t, outputPath)
	require.Len(t, got, len(data))

	assert.Equal(t, "src/main.rs", got[0].FilePath)
	assert.Equal(t, int32(90), got[0].CodeLines)
	assert.Nil(t, got[0].FailureKind)

	assert.Equal(t, "failed", got[1].Status)
	require.NotNil(t, got[1].FailureKind)
	assert.Equal(t, "timeout", *got[1].FailureKind)
	assert.Equal(t, int32(4), got[1].Attempts)
	assert.WithinDuration(t, data[1].RecordedAt, got[1].RecordedAt, time.Nanosecond)
}

func TestWriteParquet_EmptyData(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")

	require.NoError(t, WriteRunsParquet([]Run{}, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0), "output file should contain schema even if empty")
}

func TestWriteParquet_InvalidPath(t *testing.T) {
	err := WriteFileResultsParquet(sampleFileResults(), "/nonexistent/directory/output.parquet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output file")
}

func TestConvertRunRecords(t *testing.T) {
	end := time.Date(2025, 3, 1, 12, 0, 5, 0, time.UTC)
	duration := int32(5000)
	records := []schema.RunRecord{{
		RunID:          7,
		RunUUID:        "uuid-7",
		Mode:           "update",
		StartTime:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		EndTime:        &end,
		RunDurationMs:  &duration,
		AddedFiles:     1,
		ModifiedFiles:  2,
		UnchangedFiles: 3,
		RemovedFiles:   4,
		FailedFiles:    5,
	}}

	got := ConvertRunRecords(records)
	require.Len(t, got, 1)
	assert.Equal(t, Run{
		RunID:          7,
		RunUUID:        "uuid-7",
		Mode:           "update",
		StartTime:      records[0].StartTime,
		EndTime:        &end,
		RunDurationMs:  &duration,
		AddedFiles:     1,
		ModifiedFiles:  2,
		UnchangedFiles: 3,
		RemovedFiles:   4,
		FailedFiles:    5,
	}, got[0])

	assert.Empty(t, ConvertRunRecords(nil))
}

func TestConvertFileResultRecords(t *testing.T) {
	kind := "parse"
	records := []schema.FileResultRecord{{
		RunID:       3,
		FilePath:    "lib.rs",
		ChangeKind:  "modified",
		Status:      "failed",
		FailureKind: &kind,
		Attempts:    1,
		TotalLines:  10,
		CodeLines:   8,
		BlankLines:  2,
		ContentHash: "abc",
	}}

	got := ConvertFileResultRecords(records)
	require.Len(t, got, 1)
	assert.Equal(t, "lib.rs", got[0].FilePath)
	assert.Equal(t, "modified", got[0].ChangeKind)
	assert.Equal(t, &kind, got[0].FailureKind)
	assert.Equal(t, int32(8), got[0].CodeLines)
}
