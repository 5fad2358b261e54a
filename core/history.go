package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/schema"
)

// beginRunTracking opens a history run when a history store is configured.
func beginRunTracking(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, mode schema.RunMode, start time.Time) context.Context {
	store := historyStore(mgr)
	if store == nil {
		return ctx
	}
	params := map[string]any{
		"project_path": cfg.ProjectPath,
		"model":        cfg.Model,
		"workers":      cfg.Workers,
		"max_retries":  cfg.Retry.MaxRetries,
		"skip_ai":      cfg.SkipAI,
		"extensions":   cfg.Extensions,
	}
	runID, err := store.BeginRun(start, mode, params)
	if err != nil {
		contract.LogWarn("Run tracking initialization failed", err)
		return ctx
	}
	return withRunID(ctx, runID)
}

// finishRunTracking records touched files and closes the run.
func finishRunTracking(ctx context.Context, mgr contract.StoreManager, result *schema.RunResult, end time.Time) {
	store := historyStore(mgr)
	runID, ok := runIDFromContext(ctx)
	if store == nil || !ok {
		return
	}

	outcomes := OutcomesByPath(result.Outcomes)
	for _, path := range result.Changes.NeedsWork() {
		entry := fileResultEntry(result, outcomes[path], path, end)
		if err := store.RecordFileResult(runID, entry); err != nil {
			logTrackingError("RecordFileResult", path, err)
		}
	}
	for _, path := range result.Changes.Removed {
		entry := schema.FileResultEntry{Path: path, Change: schema.ChangeRemoved, RecordedAt: end}
		if err := store.RecordFileResult(runID, entry); err != nil {
			logTrackingError("RecordFileResult", path, err)
		}
	}
	if err := store.EndRun(runID, end, result.Stats); err != nil {
		contract.LogWarn("Failed to finalize run tracking", err)
	}
}

func fileResultEntry(result *schema.RunResult, outcome schema.FileOutcome, path string, at time.Time) schema.FileResultEntry {
	kind, _ := result.Changes.KindOf(path)
	rec := result.Report.Files[path]
	entry := schema.FileResultEntry{
		Path:         path,
		Change:       kind,
		Status:       rec.Status,
		TotalLines:   rec.Metrics.TotalLines,
		CodeLines:    rec.Metrics.CodeLines,
		CommentLines: rec.Metrics.CommentLines,
		BlankLines:   rec.Metrics.BlankLines,
		ContentHash:  rec.Metrics.ContentHash,
		RecordedAt:   at,
	}
	if rec.Failure != nil {
		entry.FailureKind = rec.Failure.Kind
		entry.Attempts = rec.Failure.Attempts
	}
	if outcome.Attempts > 0 {
		entry.Attempts = outcome.Attempts
	}
	return entry
}

func historyStore(mgr contract.StoreManager) contract.HistoryStore {
	if mgr == nil {
		return nil
	}
	return mgr.GetHistoryStore()
}

// logTrackingError logs database tracking errors without disrupting the run.
func logTrackingError(operation, path string, err error) {
	contract.LogWarn(fmt.Sprintf("Run tracking failed for %s on %s", operation, path), err)
}
