package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/pj/schema"
)

// Default values for configuration.
const (
	DefaultAPIURL            = "https://api.openai.com/v1"
	DefaultModel             = "gpt-4o-mini"
	DefaultReportFile        = "pj_report.json"
	DefaultMarkdownFile      = "analysis_report.md"
	DefaultWorkers           = 4
	MaxWorkers               = 64
	DefaultMaxRetries        = 3
	MaxRetriesLimit          = 10
	DefaultInitialBackoff    = 500 * time.Millisecond
	DefaultBackoffMultiplier = 2.0
	DefaultMaxBackoff        = 10 * time.Second
	DefaultRequestTimeout    = 30 * time.Second
	DefaultTemperature       = 0.2
)

// DateTimeFormat is the layout for timestamps shown to users.
const DateTimeFormat = "2006-01-02 15:04:05"

// ConfigFileName is the project and global config file name.
const ConfigFileName = ".pj.yml"

// DefaultExtensions lists the source extensions analyzed when none are configured.
var DefaultExtensions = []string{".rs"}

// DefaultExcludes lists the directories and files pruned during scanning.
var DefaultExcludes = []string{".git/", "target/", ConfigFileName}

// RetryPolicy holds the retry and backoff settings for annotation calls.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	Multiplier     float64
	MaxBackoff     time.Duration
	RequestTimeout time.Duration
}

// DefaultRetryPolicy returns the conservative defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultInitialBackoff,
		Multiplier:     DefaultBackoffMultiplier,
		MaxBackoff:     DefaultMaxBackoff,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// Config holds the runtime configuration for a run.
// This struct is the "final, validated" config.
type Config struct {
	ProjectPath  string
	ReportFile   string // Where the JSON report is written
	InputFile    string // Previous report override; defaults to ReportFile
	MarkdownFile string
	Extensions   []string
	Excludes     []string
	Workers      int
	Retry        RetryPolicy
	RunTimeout   time.Duration // Whole-run deadline, 0 means none

	APIURL      string
	APIKey      string // Please use env var as this is plaintext
	Model       string
	Temperature float64

	SkipAI      bool
	JSON        bool
	Keep        bool
	RetryFailed bool
	Reanalyze   bool
	Width       int // Terminal width override (0 = auto-detect)
	UseColors   bool

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	outputs outputPaths
}

// outputPaths keeps the configured report paths before they are resolved
// against ProjectPath, so a new project path can resolve them again.
type outputPaths struct {
	report   string
	markdown string
	input    string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	ProjectPathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	APIURL           string  `mapstructure:"api-url"`
	APIKey           string  `mapstructure:"api-key"`
	Model            string  `mapstructure:"model"`
	Output           string  `mapstructure:"output"`
	MarkdownOutput   string  `mapstructure:"markdown-output"`
	Extensions       string  `mapstructure:"extensions"`
	Exclude          string  `mapstructure:"exclude"`
	Workers          int     `mapstructure:"workers"`
	MaxRetries       int     `mapstructure:"max-retries"`
	InitialBackoff   string  `mapstructure:"initial-backoff"`
	Multiplier       float64 `mapstructure:"backoff-multiplier"`
	MaxBackoff       string  `mapstructure:"max-backoff"`
	RequestTimeout   string  `mapstructure:"request-timeout"`
	Timeout          string  `mapstructure:"timeout"`
	Temperature      float64 `mapstructure:"temperature"`
	SkipAI           bool    `mapstructure:"skip-ai"`
	JSON             bool    `mapstructure:"json"`
	Input            string  `mapstructure:"input"`
	Width            int     `mapstructure:"width"`
	Color            string  `mapstructure:"color"`
	CacheBackend     string  `mapstructure:"cache-backend"`
	CacheDBConnect   string  `mapstructure:"cache-db-connect"`
	HistoryBackend   string  `mapstructure:"history-backend"`
	HistoryDBConnect string  `mapstructure:"history-db-connect"`

	// --- Fields from updateCmd.Flags() ---
	Keep        bool `mapstructure:"keep"`
	RetryFailed bool `mapstructure:"retry-failed"`
	Reanalyze   bool `mapstructure:"reanalyze"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Extensions = slices.Clone(c.Extensions)
	clone.Excludes = slices.Clone(c.Excludes)
	return &clone
}

// PreviousReportFile returns the path of the report an update starts from.
func (c *Config) PreviousReportFile() string {
	if c.InputFile != "" {
		return c.InputFile
	}
	return c.ReportFile
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processRetryPolicy(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := resolveProjectPath(cfg, input); err != nil {
		return err
	}
	cfg.resolveOutputs()
	return nil
}

// SetProjectPath points the config at another project. Relative report paths
// follow the project; absolute ones are left alone.
func (c *Config) SetProjectPath(path string) error {
	absPath, err := projectDir(path)
	if err != nil {
		return err
	}
	c.ProjectPath = absPath
	c.resolveOutputs()
	return nil
}

// OutputsFollowProject reports whether the report paths are relative to the project.
func (c *Config) OutputsFollowProject() bool {
	c.captureOutputs()
	return !filepath.IsAbs(c.outputs.report) && (c.outputs.input == "" || !filepath.IsAbs(c.outputs.input))
}

// captureOutputs seeds the unresolved paths from a config built by hand.
func (c *Config) captureOutputs() {
	if c.outputs == (outputPaths{}) {
		c.outputs = outputPaths{report: c.ReportFile, markdown: c.MarkdownFile, input: c.InputFile}
	}
}

// resolveOutputs places relative report paths inside the project directory, so
// two projects analyzed from the same working directory never share a report.
func (c *Config) resolveOutputs() {
	c.captureOutputs()
	c.ReportFile = c.inProject(c.outputs.report)
	c.MarkdownFile = c.inProject(c.outputs.markdown)
	c.InputFile = c.inProject(c.outputs.input)
}

func (c *Config) inProject(path string) string {
	if path == "" || filepath.IsAbs(path) || c.ProjectPath == "" {
		return path
	}
	return filepath.Join(c.ProjectPath, path)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend, "":
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ParseBackend normalizes a backend name. Empty input stays empty.
func ParseBackend(name string) (schema.DatabaseBackend, error) {
	backend := schema.DatabaseBackend(strings.ToLower(strings.TrimSpace(name)))
	if backend == "" {
		return "", nil
	}
	if _, ok := schema.ValidCacheBackends[backend]; !ok {
		return "", fmt.Errorf("invalid backend '%s'. must be sqlite, mysql, postgresql, none", name)
	}
	return backend, nil
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	backend, err := ParseBackend(input.CacheBackend)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if backend == "" {
		backend = schema.NoneBackend
	}
	cfg.CacheBackend = backend
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- History Backend Validation ---
	cfg.HistoryBackend, err = ParseBackend(input.HistoryBackend)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if cfg.HistoryBackend == "" {
		return nil
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return err
	}

	// Cache and history must not share a SQLite file
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cachePath := cfg.CacheDBConnect
		if cachePath == "" {
			cachePath = GetCacheDBFilePath()
		}
		historyPath := cfg.HistoryDBConnect
		if historyPath == "" {
			historyPath = GetHistoryDBFilePath()
		}
		if cachePath == historyPath {
			return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cachePath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates all non-path related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.APIKey = input.APIKey
	cfg.SkipAI = input.SkipAI
	cfg.JSON = input.JSON
	cfg.Keep = input.Keep
	cfg.RetryFailed = input.RetryFailed
	cfg.Reanalyze = input.Reanalyze
	cfg.Width = input.Width
	cfg.InputFile = input.Input

	cfg.APIURL = strings.TrimRight(strings.TrimSpace(input.APIURL), "/")
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	cfg.Model = strings.TrimSpace(input.Model)
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cfg.ReportFile = input.Output
	if cfg.ReportFile == "" {
		cfg.ReportFile = DefaultReportFile
	}
	cfg.MarkdownFile = input.MarkdownOutput
	if cfg.MarkdownFile == "" {
		cfg.MarkdownFile = DefaultMarkdownFile
	}
	cfg.outputs = outputPaths{report: cfg.ReportFile, markdown: cfg.MarkdownFile, input: cfg.InputFile}

	// Parse color flag
	if input.Color == "" {
		input.Color = "yes"
	}
	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. Workers Validation ---
	if input.Workers <= 0 || input.Workers > MaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d (received %d)", MaxWorkers, input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 2. Temperature Validation ---
	if input.Temperature < 0 || input.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2 (received %g)", input.Temperature)
	}
	cfg.Temperature = input.Temperature

	// --- 3. Extensions Processing ---
	cfg.Extensions = splitList(input.Extensions, func(ext string) string {
		if !strings.HasPrefix(ext, ".") {
			return "." + ext
		}
		return ext
	})
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = slices.Clone(DefaultExtensions)
	}

	// --- 4. Excludes Processing ---
	cfg.Excludes = slices.Clone(DefaultExcludes)
	for _, ex := range splitList(input.Exclude, nil) {
		if !slices.Contains(cfg.Excludes, ex) {
			cfg.Excludes = append(cfg.Excludes, ex)
		}
	}

	// --- 5. Whole-run timeout ---
	if input.Timeout != "" {
		d, err := time.ParseDuration(input.Timeout)
		if err != nil || d < 0 {
			return fmt.Errorf("invalid --timeout value %q", input.Timeout)
		}
		cfg.RunTimeout = d
	}

	return nil
}

// processRetryPolicy parses the retry and backoff settings.
func processRetryPolicy(cfg *Config, input *ConfigRawInput) error {
	policy := DefaultRetryPolicy()

	if input.MaxRetries < 0 || input.MaxRetries > MaxRetriesLimit {
		return fmt.Errorf("max-retries must be between 0 and %d (received %d)", MaxRetriesLimit, input.MaxRetries)
	}
	policy.MaxRetries = input.MaxRetries

	durations := []struct {
		name  string
		value string
		dest  *time.Duration
	}{
		{"initial-backoff", input.InitialBackoff, &policy.InitialBackoff},
		{"max-backoff", input.MaxBackoff, &policy.MaxBackoff},
		{"request-timeout", input.RequestTimeout, &policy.RequestTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("invalid --%s value %q", d.name, d.value)
		}
		*d.dest = parsed
	}

	if input.Multiplier != 0 {
		if input.Multiplier < 1 {
			return fmt.Errorf("backoff-multiplier must be at least 1 (received %g)", input.Multiplier)
		}
		policy.Multiplier = input.Multiplier
	}
	if policy.MaxBackoff < policy.InitialBackoff {
		return fmt.Errorf("max-backoff (%s) must not be smaller than initial-backoff (%s)", policy.MaxBackoff, policy.InitialBackoff)
	}

	cfg.Retry = policy
	return nil
}

// resolveProjectPath makes the project path absolute and checks it is a readable directory.
func resolveProjectPath(cfg *Config, input *ConfigRawInput) error {
	absPath, err := projectDir(input.ProjectPathStr)
	if err != nil {
		return err
	}
	cfg.ProjectPath = absPath
	return nil
}

func projectDir(searchPath string) (string, error) {
	if searchPath == "" {
		searchPath = "."
	}
	absPath, err := filepath.Abs(searchPath)
	if err != nil {
		return "", err
	}
	absPath = filepath.Clean(absPath)

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("project path %q is not accessible: %w", searchPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project path %q is not a directory", searchPath)
	}
	return absPath, nil
}

// splitList splits a comma-separated list, trimming blanks and applying an optional normalizer.
func splitList(s string, normalize func(string) string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if normalize != nil {
			p = normalize(p)
		}
		out = append(out, p)
	}
	return out
}
