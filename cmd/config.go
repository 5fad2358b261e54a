package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/huangsam/pj/internal/contract"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configKeys lists the keys accepted by `pj config --set`.
var configKeys = []string{
	"api-url", "api-key", "model", "output", "markdown-output", "input", "extensions", "exclude",
	"workers", "max-retries", "initial-backoff", "backoff-multiplier", "max-backoff", "request-timeout",
	"timeout", "temperature", "skip-ai", "json", "log-level", "width", "color",
	"cache-backend", "cache-db-connect", "history-backend", "history-db-connect",
}

// secretKeys are masked when the configuration is shown.
var secretKeys = []string{"api-key", "cache-db-connect", "history-db-connect"}

// initCmd writes a default project config.
var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create a default " + contract.ConfigFileName + " in the project",
	Long: `Write a default ` + contract.ConfigFileName + ` into the project directory and add it to
.gitignore, since it may hold an API key. Fails if the file already exists.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		path, err := writeDefaultConfig(dir)
		if err != nil {
			return err
		}
		cmd.Printf("Created %s\n", path)
		return nil
	},
}

// configCmd shows or edits configuration files.
var configCmd = &cobra.Command{
	Use:   "config [path]",
	Short: "Show the effective configuration or update a config file",
	Long: `Without --set, print the effective configuration (defaults, config file, env and
flags merged) with secrets masked. With --set key=value, write the keys to the
project config, or to the global one with --global.

Examples:
  pj config
  pj config --set model=gpt-4o --set workers=8
  pj config --global --set api-url=http://localhost:11434/v1`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sets, err := cmd.Flags().GetStringArray("set")
		if err != nil {
			return err
		}
		global, err := cmd.Flags().GetBool("global")
		if err != nil {
			return err
		}

		if len(sets) == 0 {
			if err := readConfigFile(); err != nil {
				return err
			}
			return printEffectiveConfig(cmd.OutOrStdout(), viper.GetViper())
		}

		path, err := configTargetPath(global, args)
		if err != nil {
			return err
		}
		if err := updateConfigFile(path, sets); err != nil {
			return err
		}
		cmd.Printf("Updated %s\n", path)
		return nil
	},
}

// writeDefaultConfig creates the project config in dir and ignores it in git.
func writeDefaultConfig(dir string) (string, error) {
	path := filepath.Join(dir, contract.ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("api-url", contract.DefaultAPIURL)
	v.Set("model", contract.DefaultModel)
	v.Set("extensions", strings.Join(contract.DefaultExtensions, ","))
	v.Set("exclude", "")
	v.Set("workers", contract.DefaultWorkers)
	v.Set("max-retries", contract.DefaultMaxRetries)
	v.Set("request-timeout", contract.DefaultRequestTimeout.String())
	v.Set("temperature", contract.DefaultTemperature)
	v.Set("output", contract.DefaultReportFile)
	v.Set("markdown-output", contract.DefaultMarkdownFile)
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := ensureGitignored(dir, contract.ConfigFileName); err != nil {
		return path, fmt.Errorf("config written but .gitignore not updated: %w", err)
	}
	return path, nil
}

// ensureGitignored appends entry to dir/.gitignore unless a line already matches.
func ensureGitignored(dir, entry string) error {
	path := filepath.Join(dir, ".gitignore")
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	for line := range strings.SplitSeq(string(data), "\n") {
		if strings.TrimSpace(line) == entry {
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	prefix := ""
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		prefix = "\n"
	}
	if _, err := fmt.Fprintf(f, "%s%s\n", prefix, entry); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// configTargetPath resolves the file `pj config --set` writes to.
func configTargetPath(global bool, args []string) (string, error) {
	if global {
		dir, err := contract.GetGlobalConfigDir()
		if err != nil {
			return "", err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("cannot create %s: %w", dir, err)
		}
		return filepath.Join(dir, contract.ConfigFileName), nil
	}

	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	path := filepath.Join(dir, contract.ConfigFileName)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("no project config at %s, run `pj init` first", path)
	}
	return path, nil
}

// updateConfigFile applies key=value pairs to the config at path, creating it if needed.
func updateConfigFile(path string, sets []string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	for _, kv := range sets {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("invalid --set %q, expected key=value", kv)
		}
		if !slices.Contains(configKeys, key) {
			return fmt.Errorf("unknown config key %q", key)
		}
		v.Set(key, typedValue(strings.TrimSpace(value)))
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// typedValue keeps numbers and booleans typed in the written YAML.
func typedValue(s string) any {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// printEffectiveConfig prints the known keys in order, masking secrets.
func printEffectiveConfig(w io.Writer, v *viper.Viper) error {
	if used := v.ConfigFileUsed(); used != "" {
		if _, err := fmt.Fprintf(w, "# config file: %s\n", used); err != nil {
			return err
		}
	}
	for _, key := range configKeys {
		value := v.GetString(key)
		if slices.Contains(secretKeys, key) {
			value = contract.MaskSecret(value)
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", key, value); err != nil {
			return err
		}
	}
	return nil
}
