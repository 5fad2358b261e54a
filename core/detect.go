package core

import (
	"slices"

	"github.com/huangsam/pj/schema"
)

// DetectChanges classifies every path known to prev or current by content hash.
// A nil prev means every current path is Added. The result is deterministic:
// each bucket is sorted.
func DetectChanges(prev *schema.ProjectReport, current map[string]schema.FileMetrics) schema.ChangeSet {
	var cs schema.ChangeSet
	var prevFiles map[string]schema.FileRecord
	if prev != nil {
		prevFiles = prev.Files
	}

	for path, metrics := range current {
		old, ok := prevFiles[path]
		switch {
		case !ok:
			cs.Added = append(cs.Added, path)
		case old.Metrics.ContentHash == metrics.ContentHash:
			cs.Unchanged = append(cs.Unchanged, path)
		default:
			cs.Modified = append(cs.Modified, path)
		}
	}
	for path := range prevFiles {
		if _, ok := current[path]; !ok {
			cs.Removed = append(cs.Removed, path)
		}
	}

	slices.Sort(cs.Added)
	slices.Sort(cs.Modified)
	slices.Sort(cs.Unchanged)
	slices.Sort(cs.Removed)
	return cs
}

// PromoteForRetry moves Unchanged paths into Modified when their previous record
// needs another attempt: failed or skipped records with retryFailed, and records
// without analysis with reanalyze.
func PromoteForRetry(prev *schema.ProjectReport, cs *schema.ChangeSet, retryFailed, reanalyze bool) {
	if prev == nil || (!retryFailed && !reanalyze) {
		return
	}
	var promote []string
	for _, path := range cs.Unchanged {
		rec := prev.Files[path]
		switch {
		case retryFailed && (rec.Status == schema.StatusFailed || rec.Status == schema.StatusSkipped):
			promote = append(promote, path)
		case reanalyze && rec.Analysis == nil:
			promote = append(promote, path)
		}
	}
	cs.Promote(promote)
}
