package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/pj/schema"
	"go.uber.org/zap"
)

// Color variables for console output.
var (
	FailedColor   = color.New(color.FgRed, color.Bold) // FailedColor represents a file that could not be analyzed.
	SkippedColor  = color.New(color.FgYellow)          // SkippedColor represents work cut short by cancellation.
	OkColor       = color.New(color.FgGreen)           // OkColor represents a healthy record.
	AddedColor    = color.New(color.FgCyan)
	ModifiedColor = color.New(color.FgMagenta)
	RemovedColor  = color.New(color.FgHiBlack)
)

// GetPlainStatusLabel returns a plain text label for a record status. It is used
// for JSON, Markdown and table printing alike.
func GetPlainStatusLabel(status schema.FileStatus) string {
	switch status {
	case schema.StatusOk:
		return "OK"
	case schema.StatusSkipped:
		return "Skipped"
	case schema.StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// GetColorStatusLabel returns a colored status label for console output (table).
func GetColorStatusLabel(status schema.FileStatus) string {
	text := GetPlainStatusLabel(status)
	switch status {
	case schema.StatusOk:
		return OkColor.Sprint(text)
	case schema.StatusSkipped:
		return SkippedColor.Sprint(text)
	default:
		return FailedColor.Sprint(text)
	}
}

// GetColorChangeLabel returns a colored change label for console output (table).
func GetColorChangeLabel(kind schema.ChangeKind) string {
	text := string(kind)
	switch kind {
	case schema.ChangeAdded:
		return AddedColor.Sprint(text)
	case schema.ChangeModified:
		return ModifiedColor.Sprint(text)
	case schema.ChangeRemoved:
		return RemovedColor.Sprint(text)
	default:
		return text
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path means os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// ShouldIgnore returns true if the given path matches any of the exclude patterns.
// It supports simple glob patterns (using filepath.Match) when the pattern
// contains wildcard characters (*, ?, [ ]). Patterns ending with '/' match a path
// segment. Patterns starting with '.' match a suffix or a whole segment.
// A user can provide patterns like ".git/", "vendor/", "*.gen.rs".
func ShouldIgnore(path string, excludes []string) bool {
	segments := strings.Split(path, "/")
	for _, ex := range excludes {
		ex = strings.TrimSpace(ex)
		if ex == "" {
			continue
		}

		// If the pattern contains glob characters, try filepath.Match.
		if strings.ContainsAny(ex, "*?[") {
			pat := strings.ReplaceAll(ex, "**", "*")
			if ok, err := filepath.Match(pat, path); err == nil && ok {
				return true
			}
			// Also try matching against the base filename (e.g. *.gen.rs)
			if ok, err := filepath.Match(pat, filepath.Base(path)); err == nil && ok {
				return true
			}
			continue
		}

		switch {
		case strings.HasSuffix(ex, "/"):
			dir := strings.TrimSuffix(ex, "/")
			if strings.HasPrefix(path, ex) || containsSegment(segments, dir) {
				return true
			}
		case strings.HasPrefix(ex, "."):
			if strings.HasSuffix(path, ex) || containsSegment(segments, ex) {
				return true
			}
		case containsSegment(segments, ex) || strings.HasPrefix(path, ex+"/"):
			return true
		}
	}
	return false
}

func containsSegment(segments []string, name string) bool {
	for _, s := range segments {
		if s == name {
			return true
		}
	}
	return false
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	Logger().Error(msg, zap.Error(err))
	_ = Logger().Sync()
	os.Exit(1)
}

// LogWarn logs a warning message.
func LogWarn(msg string, err error) {
	Logger().Warn(msg, zap.Error(err))
}

// GetCacheDBFilePath returns the path to the SQLite DB file for annotation cache storage.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".pj_cache.db"
	}
	return filepath.Join(homeDir, ".pj_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for run history storage.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".pj_history.db"
	}
	return filepath.Join(homeDir, ".pj_history.db")
}

// GetGlobalConfigDir returns the directory holding the global config file.
func GetGlobalConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "pj"), nil
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to ensure there's space for both the "..." prefix and at least one character of content.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// MaskSecret hides all but the last four characters of a secret.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
