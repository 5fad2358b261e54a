package outwriter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/pj/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteHistoryRuns(t *testing.T) {
	duration := int32(1234)
	start := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	runs := []schema.RunRecord{
		{RunID: 1, Mode: "full", StartTime: start, RunDurationMs: &duration, AddedFiles: 5},
		{RunID: 2, Mode: "update", StartTime: start.Add(time.Hour), ModifiedFiles: 2, FailedFiles: 1},
		{RunID: 3, Mode: "update", StartTime: start.Add(2 * time.Hour), RunDurationMs: &duration},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteHistoryRuns(&buf, runs, 2))
	out := buf.String()

	assert.Contains(t, out, "running", "runs without an end are shown as running")
	assert.NotContains(t, out, "full", "limit keeps the newest runs")
	assert.Contains(t, out, "Showing 2 of 3 runs\n")
	assert.Less(t, strings.Index(out, "1234ms"), strings.Index(out, "running"), "newest first")
}

func TestWriteHistoryRunsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHistoryRuns(&buf, nil, 0))
	assert.Equal(t, "No runs recorded.\n", buf.String())
}
