package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/pj/internal/contract"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDefaultConfig(t *testing.T) {
	dir := t.TempDir()

	path, err := writeDefaultConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, contract.ConfigFileName), path)

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	assert.Equal(t, contract.DefaultModel, v.GetString("model"))
	assert.Equal(t, contract.DefaultWorkers, v.GetInt("workers"))
	assert.Empty(t, v.GetString("api-key"), "secrets are never written by init")

	ignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, contract.ConfigFileName+"\n", string(ignore))

	_, err = writeDefaultConfig(dir)
	assert.ErrorContains(t, err, "already exists")
}

func TestEnsureGitignored(t *testing.T) {
	dir := t.TempDir()
	gitignore := filepath.Join(dir, ".gitignore")
	require.NoError(t, os.WriteFile(gitignore, []byte("target/"), 0o644))

	require.NoError(t, ensureGitignored(dir, ".pj.yml"))
	require.NoError(t, ensureGitignored(dir, ".pj.yml"))

	data, err := os.ReadFile(gitignore)
	require.NoError(t, err)
	assert.Equal(t, "target/\n.pj.yml\n", string(data))
}

func TestUpdateConfigFile(t *testing.T) {
	dir := t.TempDir()
	path, err := writeDefaultConfig(dir)
	require.NoError(t, err)

	require.NoError(t, updateConfigFile(path, []string{"workers=8", "model = gpt-4o", "skip-ai=true", "temperature=0.5"}))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	assert.Equal(t, 8, v.GetInt("workers"))
	assert.Equal(t, "gpt-4o", v.GetString("model"))
	assert.True(t, v.GetBool("skip-ai"))
	assert.InDelta(t, 0.5, v.GetFloat64("temperature"), 1e-9)
	assert.Equal(t, contract.DefaultAPIURL, v.GetString("api-url"), "other keys are kept")

	assert.ErrorContains(t, updateConfigFile(path, []string{"nope=1"}), "unknown config key")
	assert.ErrorContains(t, updateConfigFile(path, []string{"workers"}), "expected key=value")
}

func TestConfigTargetPath(t *testing.T) {
	dir := t.TempDir()
	_, err := configTargetPath(false, []string{dir})
	assert.ErrorContains(t, err, "pj init")

	_, err = writeDefaultConfig(dir)
	require.NoError(t, err)
	path, err := configTargetPath(false, []string{dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, contract.ConfigFileName), path)
}

func TestTypedValue(t *testing.T) {
	assert.Equal(t, 3, typedValue("3"))
	assert.Equal(t, 0.2, typedValue("0.2"))
	assert.Equal(t, false, typedValue("false"))
	assert.Equal(t, "30s", typedValue("30s"))
}

func TestPrintEffectiveConfig(t *testing.T) {
	v := viper.New()
	v.Set("api-key", "sk-secret-1234")
	v.Set("model", "gpt-4o")

	var buf bytes.Buffer
	require.NoError(t, printEffectiveConfig(&buf, v))
	out := buf.String()
	assert.Contains(t, out, "api-key: **********1234\n")
	assert.Contains(t, out, "model: gpt-4o\n")
	assert.NotContains(t, out, "sk-secret")
}
