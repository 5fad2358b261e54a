package contract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/pj/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlainStatusLabel(t *testing.T) {
	tests := []struct {
		name     string
		input    schema.FileStatus
		expected string
	}{
		{"ok", schema.StatusOk, "OK"},
		{"skipped", schema.StatusSkipped, "Skipped"},
		{"failed", schema.StatusFailed, "Failed"},
		{"unknown", schema.FileStatus("weird"), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetPlainStatusLabel(tt.input))
			assert.Contains(t, GetColorStatusLabel(tt.input), tt.expected)
		})
	}
}

func TestGetColorChangeLabel(t *testing.T) {
	for _, kind := range []schema.ChangeKind{schema.ChangeAdded, schema.ChangeModified, schema.ChangeUnchanged, schema.ChangeRemoved} {
		assert.Contains(t, GetColorChangeLabel(kind), string(kind))
	}
}

func TestSelectOutputFile(t *testing.T) {
	t.Run("empty path returns stdout", func(t *testing.T) {
		file, err := SelectOutputFile("")
		require.NoError(t, err)
		assert.Equal(t, os.Stdout, file)
	})

	t.Run("valid path creates file", func(t *testing.T) {
		tempFile := filepath.Join(t.TempDir(), "test_output.txt")

		file, err := SelectOutputFile(tempFile)
		require.NoError(t, err)
		assert.NotNil(t, file)
		_ = file.Close()

		_, err = os.Stat(tempFile)
		assert.NoError(t, err)
	})
}

func TestShouldIgnore(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		excludes   []string
		wantIgnore bool
	}{
		{
			name:       "empty excludes",
			path:       "src/main.rs",
			excludes:   []string{},
			wantIgnore: false,
		},
		{
			name:       "prefix match",
			path:       "target/debug/build.rs",
			excludes:   []string{"target/"},
			wantIgnore: true,
		},
		{
			name:       "nested directory segment",
			path:       "crates/core/target/out.rs",
			excludes:   []string{"target/"},
			wantIgnore: true,
		},
		{
			name:       "dot directory",
			path:       ".git",
			excludes:   []string{".git/"},
			wantIgnore: true,
		},
		{
			name:       "suffix match",
			path:       "src/schema.pb.rs",
			excludes:   []string{".pb.rs"},
			wantIgnore: true,
		},
		{
			name:       "config file",
			path:       ".pj.yml",
			excludes:   DefaultExcludes,
			wantIgnore: true,
		},
		{
			name:       "glob match basename",
			path:       "src/bindings_gen.rs",
			excludes:   []string{"*_gen.rs"},
			wantIgnore: true,
		},
		{
			name:       "bare name matches a segment only",
			path:       "src/generated/code.rs",
			excludes:   []string{"generated"},
			wantIgnore: true,
		},
		{
			name:       "bare name does not match substrings",
			path:       "src/targeting.rs",
			excludes:   []string{"target"},
			wantIgnore: false,
		},
		{
			name:       "no match",
			path:       "src/core/engine.rs",
			excludes:   []string{"vendor/", "target/", ".min.js"},
			wantIgnore: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantIgnore, ShouldIgnore(tt.path, tt.excludes))
		})
	}
}

func TestGetDBFilePaths(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	cachePath := GetCacheDBFilePath()
	assert.Contains(t, cachePath, ".pj_cache.db")
	assert.True(t, strings.HasPrefix(cachePath, homeDir), "path %s should start with home dir %s", cachePath, homeDir)

	historyPath := GetHistoryDBFilePath()
	assert.Contains(t, historyPath, ".pj_history.db")
	assert.NotEqual(t, cachePath, historyPath)
}

func TestTruncatePath(t *testing.T) {
	assert.Equal(t, "src/main.rs", TruncatePath("src/main.rs", 20))
	assert.Equal(t, "...ain.rs", TruncatePath("src/main.rs", 9))
	assert.Equal(t, "src/main.rs", TruncatePath("src/main.rs", 3))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "******wxyz", MaskSecret("sk-abcwxyz"))
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"yes", "TRUE", "1"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.True(t, v)
	}
	for _, s := range []string{"no", "false", "0"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.False(t, v)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}

func TestSetLogLevel(t *testing.T) {
	defer func() { _ = SetLogLevel("info") }()

	require.NoError(t, SetLogLevel("debug"))
	assert.True(t, Logger().Core().Enabled(-1))

	require.NoError(t, SetLogLevel("ERROR"))
	assert.False(t, Logger().Core().Enabled(0))

	assert.Error(t, SetLogLevel("verbose"))
}
