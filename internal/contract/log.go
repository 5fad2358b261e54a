package contract

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logLevel   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	loggerOnce sync.Once
	logger     *zap.Logger
)

// Logger returns the process-wide structured logger. It writes to stderr so that
// stdout stays free for JSON output and the MCP protocol.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = logLevel
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
		cfg.DisableStacktrace = true
		cfg.Sampling = nil

		built, err := cfg.Build()
		if err != nil {
			built = zap.NewNop()
		}
		logger = built
	})
	return logger
}

// SetLogLevel changes the level of the process-wide logger.
func SetLogLevel(level string) error {
	parsed, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	logLevel.SetLevel(parsed)
	return nil
}

// SetLogger replaces the process-wide logger, mainly for tests.
func SetLogger(l *zap.Logger) {
	loggerOnce.Do(func() {})
	logger = l
}
