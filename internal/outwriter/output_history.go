package outwriter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteHistoryRuns prints stored runs, newest first, limited to limit rows (0 means all).
func WriteHistoryRuns(w io.Writer, runs []schema.RunRecord, limit int) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}

	ordered := make([]schema.RunRecord, len(runs))
	for i, r := range runs {
		ordered[len(runs)-1-i] = r
	}
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Mode", "Started", "Duration", "Added", "Modified", "Unchanged", "Removed", "Failed"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, r := range ordered {
		duration := "running"
		if r.RunDurationMs != nil {
			duration = fmt.Sprintf("%dms", *r.RunDurationMs)
		}
		data = append(data, []string{
			strconv.FormatInt(r.RunID, 10),
			r.Mode,
			r.StartTime.Local().Format(contract.DateTimeFormat),
			duration,
			strconv.Itoa(int(r.AddedFiles)),
			strconv.Itoa(int(r.ModifiedFiles)),
			strconv.Itoa(int(r.UnchangedFiles)),
			strconv.Itoa(int(r.RemovedFiles)),
			strconv.Itoa(int(r.FailedFiles)),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d of %d runs\n", len(ordered), len(runs))
	return err
}
