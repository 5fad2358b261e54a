// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/internal/iocache"
	"github.com/huangsam/pj/schema"
)

// WriteRunOutputs writes everything a finished run shows the user. With JSON set the
// report goes to stdout, otherwise the Markdown report goes to cfg.MarkdownFile.
// The summary table always goes to stderr.
func WriteRunOutputs(result *schema.RunResult, cfg *contract.Config, duration time.Duration) error {
	return writeRunOutputs(result, cfg, duration, os.Stdout, os.Stderr)
}

func writeRunOutputs(result *schema.RunResult, cfg *contract.Config, duration time.Duration, stdout, stderr io.Writer) error {
	if cfg.JSON {
		data, err := iocache.EncodeReport(result.Report)
		if err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
		if _, err := stdout.Write(data); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	} else if err := WriteMarkdownFile(result.Report, cfg.MarkdownFile); err != nil {
		return fmt.Errorf("error writing Markdown report: %w", err)
	}

	return WriteSummaryTable(stderr, result, cfg, duration)
}
