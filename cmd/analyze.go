package cmd

import (
	"github.com/huangsam/pj/core"
	"github.com/spf13/cobra"
)

// analyzeCmd runs a full analysis.
var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyze every source file from scratch",
	Long: `Scan the project, measure every source file and annotate each one, ignoring
any previous report. The JSON report is written to --output and the Markdown
report to --markdown-output.

Examples:
  # Analyze the current directory
  pj analyze

  # Metrics only, no API calls
  pj analyze ./my-crate --skip-ai`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runExecutor(core.ExecuteAnalyze)
	},
}

// updateCmd runs an incremental update.
var updateCmd = &cobra.Command{
	Use:   "update [path]",
	Short: "Re-analyze only the files that changed since the last report",
	Long: `Compare the project against the previous report and annotate only added and
modified files. Unchanged records are carried over as they are and removed files
are dropped. A missing or incompatible previous report falls back to a full analysis.

Files left skipped by an interrupted run stay skipped until they change. Pass
--retry-failed after an interrupt to finish them.

Examples:
  # Incremental update
  pj update

  # Retry files that failed or were skipped last time
  pj update --retry-failed

  # Only regenerate the Markdown report
  pj update --keep`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runExecutor(core.ExecuteUpdate)
	},
}
