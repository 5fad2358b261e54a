// Package cmd defines the command-line interface for pj.
package cmd

import (
	"strings"

	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(generateMDCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyRunsCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("api-url", contract.DefaultAPIURL, "Base URL of the OpenAI-compatible API")
	rootCmd.PersistentFlags().String("api-key", "", "API key (prefer the PJ_API_KEY env var)")
	rootCmd.PersistentFlags().String("model", contract.DefaultModel, "Model used for annotations")
	rootCmd.PersistentFlags().String("output", contract.DefaultReportFile, "Path of the JSON report, relative to the project")
	rootCmd.PersistentFlags().String("markdown-output", contract.DefaultMarkdownFile, "Path of the Markdown report, relative to the project")
	rootCmd.PersistentFlags().String("input", "", "Previous report to update from (defaults to --output)")
	rootCmd.PersistentFlags().String("extensions", strings.Join(contract.DefaultExtensions, ","), "Comma-separated list of file extensions to analyze")
	rootCmd.PersistentFlags().String("exclude", "", "Comma-separated list of path prefixes or patterns to ignore")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent annotation requests")
	rootCmd.PersistentFlags().Int("max-retries", contract.DefaultMaxRetries, "Retries for a transient annotation failure")
	rootCmd.PersistentFlags().String("initial-backoff", contract.DefaultInitialBackoff.String(), "Delay before the first retry")
	rootCmd.PersistentFlags().Float64("backoff-multiplier", contract.DefaultBackoffMultiplier, "Growth factor of the retry delay")
	rootCmd.PersistentFlags().String("max-backoff", contract.DefaultMaxBackoff.String(), "Upper bound of the retry delay")
	rootCmd.PersistentFlags().String("request-timeout", contract.DefaultRequestTimeout.String(), "Timeout of one annotation request")
	rootCmd.PersistentFlags().String("timeout", "", "Deadline for the whole run (e.g. 10m, empty means none)")
	rootCmd.PersistentFlags().Float64("temperature", contract.DefaultTemperature, "Sampling temperature")
	rootCmd.PersistentFlags().Bool("skip-ai", false, "Only compute metrics, without calling the annotation service")
	rootCmd.PersistentFlags().Bool("json", false, "Print the report JSON to stdout instead of writing Markdown")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: "+strings.Join(schema.LogLevels, " or "))
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("history-backend", "", "Run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for run history (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of updateCmd to Viper
	updateCmd.Flags().Bool("keep", false, "Only re-render the Markdown report from the stored report")
	updateCmd.Flags().Bool("retry-failed", false, "Re-analyze files that failed or were skipped last time")
	updateCmd.Flags().Bool("reanalyze", false, "Re-analyze files that have no analysis, e.g. after --skip-ai")
	if err := viper.BindPFlags(updateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding update flags", err)
	}

	// Flags of commands that are not config keys
	configCmd.Flags().Bool("global", false, "Use the global config file instead of the project one")
	configCmd.Flags().StringArray("set", nil, "Set a config key (key=value), may be repeated")
	generateMDCmd.Flags().StringP("out", "o", "", "Markdown file to write (defaults to markdown-output)")
	generateMDCmd.Flags().Bool("preview", false, "Render the Markdown report in the terminal")
	historyRunsCmd.Flags().Int("limit", 20, "Number of runs to show (0 = all)")
	historyExportCmd.Flags().String("output-file", "", "Prefix of the Parquet files to write")

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
