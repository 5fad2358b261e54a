// Package core has the reconciliation engine: scanning, change detection,
// annotation orchestration and merging into the persisted report.
package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/internal/iocache"
	"github.com/huangsam/pj/internal/outwriter"
	"github.com/huangsam/pj/schema"
	"go.uber.org/zap"
)

// ExecutorFunc defines the function signature for executing the different run modes.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, annotator contract.Annotator) error

// ExecuteAnalyze runs a full analysis, ignoring any previous report, then writes the outputs.
func ExecuteAnalyze(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, annotator contract.Annotator) error {
	return executeRun(ctx, cfg, mgr, annotator, schema.FullMode)
}

// ExecuteUpdate runs an incremental update from the previous report, then writes the outputs.
// With Keep set it only re-renders the Markdown report from the stored report.
func ExecuteUpdate(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, annotator contract.Annotator) error {
	if cfg.Keep {
		return ExecuteKeep(ctx, cfg)
	}
	return executeRun(ctx, cfg, mgr, annotator, schema.UpdateMode)
}

// ExecuteAuto picks update when a previous report or a project config exists, else a full analysis.
func ExecuteAuto(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, annotator contract.Annotator) error {
	if AutoMode(cfg) == schema.UpdateMode {
		return ExecuteUpdate(ctx, cfg, mgr, annotator)
	}
	return ExecuteAnalyze(ctx, cfg, mgr, annotator)
}

// AutoMode returns the mode the root command runs in.
func AutoMode(cfg *contract.Config) schema.RunMode {
	if fileExists(cfg.PreviousReportFile()) || fileExists(filepath.Join(cfg.ProjectPath, contract.ConfigFileName)) {
		return schema.UpdateMode
	}
	return schema.FullMode
}

// ExecuteKeep renders the Markdown report from the stored report without scanning.
func ExecuteKeep(_ context.Context, cfg *contract.Config) error {
	report, err := iocache.LoadReport(cfg.PreviousReportFile())
	if err != nil {
		return fmt.Errorf("cannot keep report %s: %w", cfg.PreviousReportFile(), err)
	}
	return outwriter.WriteMarkdownFile(report, cfg.MarkdownFile)
}

func executeRun(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, annotator contract.Annotator, mode schema.RunMode) error {
	start := time.Now()
	result, err := RunPipeline(ctx, cfg, mgr, annotator, mode)
	if err != nil {
		return err
	}
	if err := iocache.SaveReport(result.Report, cfg.ReportFile); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if ctx.Err() != nil {
		contract.Logger().Warn("Run interrupted, partial report saved", zap.String("report", cfg.ReportFile))
	}
	if shouldQuietOutput(ctx) {
		return nil
	}
	return outwriter.WriteRunOutputs(result, cfg, time.Since(start))
}

// RunPipeline executes scan, detect, orchestrate and merge and returns the new report.
// It does not persist anything except run history. Cancellation during the scan
// returns an error; after the scan it yields a partial result.
func RunPipeline(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, annotator contract.Annotator, mode schema.RunMode) (*schema.RunResult, error) {
	start := time.Now()
	log := contract.Logger()

	// --- 0. Previous report ---
	var prev *schema.ProjectReport
	if mode == schema.UpdateMode {
		var err error
		prev, err = loadPrevious(cfg.PreviousReportFile())
		if err != nil {
			return nil, err
		}
	}

	// --- 1. Scan and measure ---
	files, err := Scan(ctx, cfg.ProjectPath, ScanOptions{Extensions: cfg.Extensions, Excludes: cfg.Excludes})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	current := MeasureFiles(files)

	// --- 2. Begin Run Tracking (if configured) ---
	ctx = beginRunTracking(ctx, cfg, mgr, mode, start)

	// --- 3. Change detection ---
	changes := DetectChanges(prev, current)
	PromoteForRetry(prev, &changes, cfg.RetryFailed, cfg.Reanalyze)
	log.Info("Changes detected",
		zap.String("mode", string(mode)),
		zap.Int("added", len(changes.Added)),
		zap.Int("modified", len(changes.Modified)),
		zap.Int("unchanged", len(changes.Unchanged)),
		zap.Int("removed", len(changes.Removed)))

	// --- 4. Orchestration ---
	ann := annotator
	if !cfg.SkipAI {
		ann = NewCachingAnnotator(annotator, mgr)
	}
	orchestrator := NewOrchestrator(ann, cfg)
	outcomes := orchestrator.Analyze(ctx, filesNeedingWork(files, changes))

	// --- 5. Merge ---
	report := Merge(prev, changes, OutcomesByPath(outcomes), current)
	if !cfg.SkipAI {
		RefreshInsights(ctx, ann, report, changes)
	}
	if prev == nil || !changes.Empty() {
		report.GeneratedAt = start.UTC()
	}

	result := &schema.RunResult{
		Report:   report,
		Changes:  changes,
		Outcomes: outcomes,
		Stats:    buildStats(mode, changes, outcomes),
	}

	// --- 6. End Run Tracking ---
	finishRunTracking(ctx, mgr, result, time.Now())
	return result, nil
}

// loadPrevious reads the previous report. Missing and incompatible reports count as absent.
func loadPrevious(path string) (*schema.ProjectReport, error) {
	prev, err := iocache.LoadReport(path)
	switch {
	case err == nil:
		return prev, nil
	case errors.Is(err, iocache.ErrReportNotFound):
		contract.Logger().Info("No previous report, running full analysis", zap.String("report", path))
		return nil, nil
	case errors.Is(err, iocache.ErrIncompatibleReport):
		contract.Logger().Warn("Previous report is incompatible, running full analysis", zap.String("report", path), zap.Error(err))
		return nil, nil
	default:
		return nil, fmt.Errorf("failed to read previous report: %w", err)
	}
}

// filesNeedingWork keeps the scanned files in the Added or Modified buckets, in scan order.
func filesNeedingWork(files []schema.SourceFile, changes schema.ChangeSet) []schema.SourceFile {
	needed := make(map[string]struct{}, len(changes.Added)+len(changes.Modified))
	for _, path := range changes.NeedsWork() {
		needed[path] = struct{}{}
	}
	work := make([]schema.SourceFile, 0, len(needed))
	for _, f := range files {
		if _, ok := needed[f.Path]; ok {
			work = append(work, f)
		}
	}
	return work
}

func buildStats(mode schema.RunMode, changes schema.ChangeSet, outcomes []schema.FileOutcome) schema.RunStats {
	stats := schema.RunStats{
		Mode:      mode,
		Added:     len(changes.Added),
		Modified:  len(changes.Modified),
		Unchanged: len(changes.Unchanged),
		Removed:   len(changes.Removed),
	}
	for _, o := range outcomes {
		switch {
		case o.Failure != nil:
			stats.Failed++
		case o.Skipped:
			stats.Skipped++
		case o.Analysis != nil:
			stats.Analyzed++
		}
	}
	return stats
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
