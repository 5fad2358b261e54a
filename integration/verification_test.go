//go:build integration

// Package integration contains integration tests for pj.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags integration ./integration
package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/pj/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLineCountVerification runs pj over this repository's Go sources and checks
// every total line count against a direct count of the file.
func TestLineCountVerification(t *testing.T) {
	repoDir, err := filepath.Abs("..")
	require.NoError(t, err)
	out := t.TempDir()

	_, err = runPj(t, out, []string{"PJ_CACHE_BACKEND=none"},
		"analyze", repoDir, "--skip-ai", "--extensions", ".go", "--exclude", "_examples/",
		"--output", filepath.Join(out, "report.json"), "--markdown-output", filepath.Join(out, "report.md"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(out, "report.json"))
	require.NoError(t, err)
	var report schema.ProjectReport
	require.NoError(t, json.Unmarshal(data, &report))
	require.NotEmpty(t, report.Files)

	for path, rec := range report.Files {
		t.Run(path, func(t *testing.T) {
			content, err := os.ReadFile(filepath.Join(repoDir, filepath.FromSlash(path)))
			require.NoError(t, err)
			assert.Equal(t, countLines(content), rec.Metrics.TotalLines)
			m := rec.Metrics
			assert.Equal(t, m.TotalLines, m.CodeLines+m.CommentLines+m.BlankLines)
		})
	}
}

// countLines counts lines, including a final line without a trailing newline.
func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte("\n"))
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}
