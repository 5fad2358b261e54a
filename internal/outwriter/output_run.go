package outwriter

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

type touchedFile struct {
	path   string
	change schema.ChangeKind
}

// touchedFiles lists the added, modified and removed paths sorted by path.
func touchedFiles(changes schema.ChangeSet) []touchedFile {
	var out []touchedFile
	for _, p := range changes.Added {
		out = append(out, touchedFile{p, schema.ChangeAdded})
	}
	for _, p := range changes.Modified {
		out = append(out, touchedFile{p, schema.ChangeModified})
	}
	for _, p := range changes.Removed {
		out = append(out, touchedFile{p, schema.ChangeRemoved})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out
}

// WriteSummaryTable prints the touched files of a run followed by the run totals.
func WriteSummaryTable(w io.Writer, result *schema.RunResult, cfg *contract.Config, duration time.Duration) error {
	files := touchedFiles(result.Changes)
	attempts := make(map[string]int, len(result.Outcomes))
	for _, o := range result.Outcomes {
		attempts[o.Path] = o.Attempts
	}

	if len(files) > 0 {
		table := tablewriter.NewWriter(w)
		table.Header([]string{"Path", "Change", "Status", "Lines", "Attempts"})
		table.Configure(func(c *tablewriter.Config) {
			c.Row.Alignment.Global = tw.AlignRight
		})

		pathWidth := GetMaxTablePathWidth(cfg)
		var data [][]string
		for _, f := range files {
			row := []string{
				contract.TruncatePath(f.path, pathWidth),
				changeLabel(f.change, cfg.UseColors),
			}
			if rec, ok := result.Report.Files[f.path]; ok {
				row = append(row,
					statusLabel(rec.Status, cfg.UseColors),
					strconv.Itoa(rec.Metrics.TotalLines),
					strconv.Itoa(attempts[f.path]),
				)
			} else {
				row = append(row, "-", "-", "-")
			}
			data = append(data, row)
		}

		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	s := result.Stats
	if _, err := fmt.Fprintf(w, "Changes (%s): %d added, %d modified, %d unchanged, %d removed\n",
		s.Mode, s.Added, s.Modified, s.Unchanged, s.Removed); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Annotations: %d analyzed, %d failed, %d skipped\n", s.Analyzed, s.Failed, s.Skipped); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Run completed in %v with %d workers. Cache backend: %s\n",
		duration.Round(time.Millisecond), cfg.Workers, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}
