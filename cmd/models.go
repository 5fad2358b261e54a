package cmd

import (
	"fmt"
	"net/http"

	"github.com/huangsam/pj/internal/annotate"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// modelsCmd lists the models offered by the configured API.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models available at --api-url",
	Long: `Query {api-url}/models and print one model ID per line. When the endpoint
cannot be reached or returns nothing, a built-in list of common models is shown.`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return readConfigFile()
	},
	Run: func(cmd *cobra.Command, _ []string) {
		models, live := annotate.ListModels(rootCtx, http.DefaultClient, viper.GetString("api-url"), viper.GetString("api-key"))
		if !live {
			cmd.PrintErrln("Using the built-in model list.")
		}
		for _, m := range models {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), m)
		}
	},
}
