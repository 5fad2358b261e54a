package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/internal/iocache"
	"github.com/huangsam/pj/internal/outwriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// generateMDCmd renders a stored report without analysis.
var generateMDCmd = &cobra.Command{
	Use:   "generate-md [report.json]",
	Short: "Render a stored report as Markdown",
	Long: `Render the Markdown report from a JSON report without scanning or calling the
annotation service. The report defaults to --output.

Examples:
  pj generate-md
  pj generate-md pj_report.json -o docs/analysis.md
  pj generate-md --preview`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if err := readConfigFile(); err != nil {
			return err
		}
		return contract.SetLogLevel(viper.GetString("log-level"))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		reportPath := viper.GetString("output")
		if len(args) == 1 {
			reportPath = args[0]
		}
		report, err := iocache.LoadReport(reportPath)
		if err != nil {
			return fmt.Errorf("cannot load report %s: %w", reportPath, err)
		}

		preview, err := cmd.Flags().GetBool("preview")
		if err != nil {
			return err
		}
		if preview {
			useColors, err := contract.ParseBoolString(viper.GetString("color"))
			if err != nil {
				return fmt.Errorf("invalid --color value: %w", err)
			}
			color.NoColor = !useColors
			previewCfg := &contract.Config{Width: viper.GetInt("width"), UseColors: useColors}
			return outwriter.WritePreview(cmd.OutOrStdout(), report, previewCfg)
		}

		out, err := cmd.Flags().GetString("out")
		if err != nil {
			return err
		}
		if out == "" {
			out = viper.GetString("markdown-output")
		}
		return outwriter.WriteMarkdownFile(report, out)
	},
}
