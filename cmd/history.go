package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/internal/iocache"
	"github.com/huangsam/pj/internal/outwriter"
	"github.com/huangsam/pj/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyConfig reads the history backend settings. An empty backend means none.
func historyConfig() error {
	if err := readConfigFile(); err != nil {
		return err
	}

	backend, err := contract.ParseBackend(viper.GetString("history-backend"))
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if backend == "" {
		backend = schema.NoneBackend
	}
	connStr := viper.GetString("history-db-connect")

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	return nil
}

// historySetup loads minimal configuration and opens the history store.
func historySetup() error {
	if err := historyConfig(); err != nil {
		return err
	}
	// Initialize stores with the loaded config (no cache for history commands)
	if err := iocache.InitStores(schema.NoneBackend, "", cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}
	return nil
}

// historySetupWrapper wraps historySetup to provide PreRunE for history commands.
func historySetupWrapper(_ *cobra.Command, _ []string) error {
	return historySetup()
}

// historyMigrateSetupWrapper loads configuration without opening the store,
// allowing migrations to run on a fresh database.
func historyMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	if err := historyConfig(); err != nil {
		return err
	}
	// For SQLite backend with empty connection string, use default path
	if cfg.HistoryBackend == schema.SQLiteBackend && cfg.HistoryDBConnect == "" {
		cfg.HistoryDBConnect = contract.GetHistoryDBFilePath()
	}
	return nil
}

// requireHistoryStore returns the open history store or exits with a hint.
func requireHistoryStore() contract.HistoryStore {
	store := iocache.Manager.GetHistoryStore()
	if store == nil {
		contract.LogFatal("Run history is disabled", fmt.Errorf("set history-backend to sqlite, mysql or postgresql"))
	}
	return store
}

// historyCmd focused on run history management.
//
// Note: History subcommands use minimal initialization (historySetup) instead of
// the full sharedSetup used by run commands.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage run history tracking and exports",
	Long: `Manage the history of analysis runs.

When history-backend is set, pj records every run, storing:
- Run metadata (mode, start and end time, duration, configuration)
- Counts of added, modified, unchanged, removed and failed files
- One row per touched file with its status, failure kind, attempts and metrics

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, default)

Subcommands:
  status  - Show history tracking statistics
  runs    - List recent runs
  export  - Export data to Parquet for analytics
  clear   - Remove all tracking data
  migrate - Run database schema migrations

Examples:
  # Enable tracking for one run
  pj update --history-backend sqlite

  # Export for analysis in pandas/DuckDB
  pj history export --output-file pj-history`,
}

// historyClearCmd clears the history data.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all run history",
	Long: `Delete all stored runs and per-file results.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  pj history export --output-file backup
  pj history clear`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return historyConfig()
	},
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearHistory(cfg.HistoryBackend, contract.GetHistoryDBFilePath(), cfg.HistoryDBConnect); err != nil {
			contract.LogFatal("Failed to clear history", err)
		}
		fmt.Println("Run history cleared successfully.")
	},
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display history tracking statistics and connection details",
	Long: `Show the backend, connection state, number of runs, last and oldest run
timestamps, total failures and table sizes of the run history.`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetHistoryStore()
		if store == nil {
			iocache.PrintHistoryStatus(os.Stdout, schema.HistoryStatus{Backend: string(cfg.HistoryBackend)})
			return
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get history status", err)
		}
		iocache.PrintHistoryStatus(os.Stdout, status)
	},
}

// historyRunsCmd lists recent runs.
var historyRunsCmd = &cobra.Command{
	Use:     "runs",
	Short:   "List recent runs, newest first",
	PreRunE: historySetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			contract.LogFatal("Invalid --limit", err)
		}
		runs, err := requireHistoryStore().GetAllRuns()
		if err != nil {
			contract.LogFatal("Failed to read runs", err)
		}
		if err := outwriter.WriteHistoryRuns(os.Stdout, runs, limit); err != nil {
			contract.LogFatal("Failed to print runs", err)
		}
	},
}

// historyExportCmd exports history data to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run history to Parquet for BI tools and analytics",
	Long: `Export all stored runs and per-file results to Parquet.

Writes <prefix>.runs.parquet and <prefix>.file_results.parquet.

Requires: --output-file parameter

Examples:
  pj history export --output-file pj-history
  duckdb -c "SELECT status, count(*) FROM read_parquet('pj-history.file_results.parquet') GROUP BY 1"`,
	PreRunE: historySetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		outputFile, err := cmd.Flags().GetString("output-file")
		if err != nil {
			contract.LogFatal("Invalid --output-file", err)
		}
		if err := iocache.ExecuteHistoryExport(iocache.Manager.GetHistoryStore(), outputFile, os.Stdout); err != nil {
			contract.LogFatal("Failed to export history", err)
		}
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  pj history migrate --history-backend sqlite

  # Rollback to initial state
  pj history migrate --history-backend sqlite --target-version 0`,
	PreRunE: historyMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
