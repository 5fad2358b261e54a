package core

import (
	"context"
	"maps"
	"slices"

	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/schema"
	"go.uber.org/zap"
)

// RefreshInsights updates the descriptive summary fields of report after a run.
// Nothing happens for an empty change set or without an annotator. A failed call
// keeps the previous insights.
func RefreshInsights(ctx context.Context, annotator contract.Annotator, report *schema.ProjectReport, changes schema.ChangeSet) {
	if annotator == nil || changes.Empty() || len(report.Files) == 0 || ctx.Err() != nil {
		return
	}

	records := make([]schema.FileRecord, 0, len(report.Files))
	for _, path := range slices.Sorted(maps.Keys(report.Files)) {
		records = append(records, report.Files[path])
	}

	insights, err := annotator.Summarize(ctx, records)
	if err != nil {
		contract.Logger().Warn("Project summary not refreshed, keeping previous insights", zap.Error(err))
		return
	}
	if insights != nil {
		report.Summary.Insights = insights
	}
}
