package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/huangsam/pj/core"
	"github.com/huangsam/pj/internal/annotate"
	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/internal/iocache"
	"github.com/huangsam/pj/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations. Execute replaces it with one
// that is cancelled on SIGINT or SIGTERM.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// rootCmd runs an update when a previous report or project config exists, else a full analysis.
var rootCmd = &cobra.Command{
	Use:   "pj [path]",
	Short: "Analyze a source tree and keep an AI-annotated report up to date.",
	Long: `pj scans a project, measures every source file and asks an OpenAI-compatible
model to describe it. Later runs only re-analyze files whose content changed and
merge the results into the stored report.`,
	Version:            version,
	Args:               cobra.MaximumNArgs(1),
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	PreRunE:            sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runExecutor(core.ExecuteAuto)
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Check if a specific config file is provided
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(strings.TrimSuffix(contract.ConfigFileName, ".yml")) // Name of config file (without extension)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".") // Look in the current directory
		if dir, err := contract.GetGlobalConfigDir(); err == nil {
			viper.AddConfigPath(dir) // Then in the global config directory
		}
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("PJ")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("api-url", contract.DefaultAPIURL)
	viper.SetDefault("model", contract.DefaultModel)
	viper.SetDefault("output", contract.DefaultReportFile)
	viper.SetDefault("markdown-output", contract.DefaultMarkdownFile)
	viper.SetDefault("extensions", strings.Join(contract.DefaultExtensions, ","))
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("max-retries", contract.DefaultMaxRetries)
	viper.SetDefault("initial-backoff", contract.DefaultInitialBackoff.String())
	viper.SetDefault("backoff-multiplier", contract.DefaultBackoffMultiplier)
	viper.SetDefault("max-backoff", contract.DefaultMaxBackoff.String())
	viper.SetDefault("request-timeout", contract.DefaultRequestTimeout.String())
	viper.SetDefault("temperature", contract.DefaultTemperature)
	viper.SetDefault("log-level", "info")
	viper.SetDefault("cache-backend", schema.SQLiteBackend)
	viper.SetDefault("cache-db-connect", "")
	viper.SetDefault("history-backend", "")
	viper.SetDefault("history-db-connect", "")
	viper.SetDefault("color", "yes")
}

// sharedSetup unmarshals config and runs validation.
func sharedSetup(_ context.Context, _ *cobra.Command, args []string) error {
	// 1. A project directory given on the command line brings its own config file.
	if len(args) == 1 && viper.GetString("config") == "" {
		projectConfig := filepath.Join(args[0], contract.ConfigFileName)
		if _, err := os.Stat(projectConfig); err == nil {
			viper.SetConfigFile(projectConfig)
		}
	}

	// 2. Read config file. This merges defaults, file, env, and flags.
	if err := readConfigFile(); err != nil {
		return err
	}
	if err := contract.SetLogLevel(viper.GetString("log-level")); err != nil {
		return err
	}

	// 3. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 4. Handle positional arguments (which Viper doesn't do).
	if len(args) == 1 {
		input.ProjectPathStr = args[0]
	} else {
		input.ProjectPathStr = "."
	}

	// 5. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}
	color.NoColor = !cfg.UseColors

	// 6. Initialize persistence layer with validated config
	if err := iocache.InitStores(cfg.CacheBackend, cfg.CacheDBConnect, cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// readConfigFile reads the resolved config file. A missing file is fine.
func readConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// newAnnotator returns the annotation client, or nil when AI is disabled.
func newAnnotator() contract.Annotator {
	if cfg.SkipAI {
		return nil
	}
	if cfg.APIKey == "" {
		contract.Logger().Warn("No API key configured, set PJ_API_KEY or api-key in " + contract.ConfigFileName)
	}
	return annotate.New(cfg)
}

// runExecutor runs a pipeline executor under the root context and the optional run timeout.
func runExecutor(exec core.ExecutorFunc) error {
	ctx := rootCtx
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}
	return exec(ctx, cfg, iocache.Manager, newAnnotator())
}

// Execute runs the root command. SIGINT and SIGTERM cancel the root context so
// that an interrupted run still saves its partial report.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCtx = ctx
	return rootCmd.ExecuteContext(ctx)
}
