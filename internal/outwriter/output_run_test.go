package outwriter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *schema.RunResult {
	return &schema.RunResult{
		Report: sampleReport(),
		Changes: schema.ChangeSet{
			Added:     []string{"src/lexer.rs"},
			Modified:  []string{"src/broken.rs"},
			Unchanged: []string{"main.rs"},
			Removed:   []string{"old.rs"},
		},
		Outcomes: []schema.FileOutcome{
			{Path: "src/broken.rs", Attempts: 1},
			{Path: "src/lexer.rs", Attempts: 2},
		},
		Stats: schema.RunStats{Mode: schema.UpdateMode, Added: 1, Modified: 1, Unchanged: 1, Removed: 1, Analyzed: 1, Failed: 1},
	}
}

func TestWriteSummaryTable(t *testing.T) {
	cfg := &contract.Config{Width: 120, Workers: 4, CacheBackend: schema.SQLiteBackend}

	var buf bytes.Buffer
	require.NoError(t, WriteSummaryTable(&buf, sampleResult(), cfg, 1500*time.Millisecond))
	out := buf.String()

	assert.Contains(t, strings.ToUpper(out), "ATTEMPTS")
	for _, p := range []string{"old.rs", "src/broken.rs", "src/lexer.rs"} {
		assert.Contains(t, out, p)
	}
	assert.NotContains(t, out, "main.rs", "unchanged files are not listed")
	assert.Less(t, strings.Index(out, "old.rs"), strings.Index(out, "src/broken.rs"))
	assert.Contains(t, out, "Failed")
	assert.Contains(t, out, "Changes (update): 1 added, 1 modified, 1 unchanged, 1 removed\n")
	assert.Contains(t, out, "Annotations: 1 analyzed, 1 failed, 0 skipped\n")
	assert.Contains(t, out, "Run completed in 1.5s with 4 workers. Cache backend: sqlite\n")
}

func TestWriteSummaryTableNoChanges(t *testing.T) {
	cfg := &contract.Config{Width: 80, Workers: 1, CacheBackend: schema.NoneBackend}
	result := &schema.RunResult{
		Report:  schema.NewProjectReport(),
		Changes: schema.ChangeSet{Unchanged: []string{"a.rs"}},
		Stats:   schema.RunStats{Mode: schema.UpdateMode, Unchanged: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSummaryTable(&buf, result, cfg, time.Second))
	assert.True(t, strings.HasPrefix(buf.String(), "Changes (update)"))
}

func TestWriteRunOutputs(t *testing.T) {
	dir := t.TempDir()

	t.Run("markdown", func(t *testing.T) {
		cfg := &contract.Config{Width: 100, Workers: 2, MarkdownFile: filepath.Join(dir, "out.md")}
		var stdout, stderr bytes.Buffer
		require.NoError(t, writeRunOutputs(sampleResult(), cfg, time.Second, &stdout, &stderr))

		assert.Empty(t, stdout.String())
		assert.Contains(t, stderr.String(), "Changes (update)")
		data, err := os.ReadFile(cfg.MarkdownFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "# Project Analysis Report")
	})

	t.Run("json", func(t *testing.T) {
		cfg := &contract.Config{Width: 100, Workers: 2, JSON: true, MarkdownFile: filepath.Join(dir, "unused.md")}
		var stdout, stderr bytes.Buffer
		require.NoError(t, writeRunOutputs(sampleResult(), cfg, time.Second, &stdout, &stderr))

		var decoded schema.ProjectReport
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &decoded))
		assert.Len(t, decoded.Files, 3)
		assert.NoFileExists(t, cfg.MarkdownFile)
	})
}

func TestGetMaxTablePathWidth(t *testing.T) {
	assert.Equal(t, 15, GetMaxTablePathWidth(&contract.Config{Width: 40}))
	assert.Equal(t, 45, GetMaxTablePathWidth(&contract.Config{Width: 100}))
	assert.Equal(t, 70, GetMaxTablePathWidth(&contract.Config{Width: 300}))
}
