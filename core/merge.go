package core

import (
	"maps"

	"github.com/huangsam/pj/schema"
)

// Merge builds the next report from prev, the change set, fresh outcomes and current metrics.
//
// Unchanged records are carried forward verbatim. Added and Modified records are rebuilt
// from current metrics and never inherit an earlier analysis. Removed paths are dropped.
// Counts are recomputed from the final files; insights and generatedAt are carried from
// prev and refreshed by the caller when something changed.
func Merge(prev *schema.ProjectReport, changes schema.ChangeSet, outcomes map[string]schema.FileOutcome, current map[string]schema.FileMetrics) *schema.ProjectReport {
	next := schema.NewProjectReport()
	var insights *schema.ProjectInsights
	if prev != nil {
		next.GeneratedAt = prev.GeneratedAt
		insights = prev.Summary.Insights
	}

	for _, path := range changes.Unchanged {
		if prev == nil {
			continue
		}
		if rec, ok := prev.Files[path]; ok {
			next.Files[path] = rec
		}
	}
	for _, path := range changes.NeedsWork() {
		outcome, ok := outcomes[path]
		if !ok {
			outcome = schema.FileOutcome{Path: path, Skipped: true}
		}
		next.Files[path] = buildRecord(current[path], outcome)
	}

	next.Summary = RecomputeCounts(next.Files)
	next.Summary.Insights = insights
	return next
}

// buildRecord turns a fresh outcome into a record for changed content.
func buildRecord(metrics schema.FileMetrics, outcome schema.FileOutcome) schema.FileRecord {
	rec := schema.FileRecord{
		Path:    outcome.Path,
		Metrics: metrics,
		Status:  schema.StatusOk,
	}
	switch {
	case outcome.Failure != nil:
		rec.Status = schema.StatusFailed
		failure := *outcome.Failure
		rec.Failure = &failure
	case outcome.Skipped:
		rec.Status = schema.StatusSkipped
	case outcome.Analysis != nil:
		rec.Analysis = outcome.Analysis
		rec.LastAnalyzedHash = metrics.ContentHash
	}
	return rec
}

// RecomputeCounts aggregates the numeric summary fields over files.
func RecomputeCounts(files map[string]schema.FileRecord) schema.ProjectSummary {
	var s schema.ProjectSummary
	for rec := range maps.Values(files) {
		s.TotalFiles++
		s.TotalLines += rec.Metrics.TotalLines
		s.TotalCodeLines += rec.Metrics.CodeLines
		s.TotalCommentLines += rec.Metrics.CommentLines
		s.TotalBlankLines += rec.Metrics.BlankLines
		if rec.Status == schema.StatusFailed {
			s.FailedFiles++
		}
	}
	return s
}

// CheckConsistency returns the paths whose analysis does not belong to their current content.
func CheckConsistency(report *schema.ProjectReport) []string {
	var bad []string
	for path, rec := range report.Files {
		if rec.Analysis != nil && rec.LastAnalyzedHash != rec.Metrics.ContentHash {
			bad = append(bad, path)
		}
	}
	return bad
}
