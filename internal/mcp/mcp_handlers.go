package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"sort"

	"github.com/huangsam/pj/core"
	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/internal/iocache"
	"github.com/huangsam/pj/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg   *contract.Config
	mgr       contract.StoreManager
	annotator contract.Annotator
}

// failedFile is one entry of list_failed_files.
type failedFile struct {
	Path    string                `json:"path"`
	Status  schema.FileStatus     `json:"status"`
	Failure *schema.FailureReason `json:"failure,omitempty"`
}

// runSummary is the result of run_update.
type runSummary struct {
	Mode      schema.RunMode `json:"mode"`
	Added     int            `json:"added"`
	Modified  int            `json:"modified"`
	Unchanged int            `json:"unchanged"`
	Removed   int            `json:"removed"`
	Analyzed  int            `json:"analyzed"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
	Report    string         `json:"report"`
}

func (h *toolHandler) reportPath(request mcp.CallToolRequest) string {
	if p := request.GetString("report_path", ""); p != "" {
		return p
	}
	return h.baseCfg.PreviousReportFile()
}

// projectConfig clones the base config for a tool call that may target another
// project. The report follows the project unless report_path names one.
func (h *toolHandler) projectConfig(request mcp.CallToolRequest) (*contract.Config, *mcp.CallToolResult) {
	cfg := h.baseCfg.Clone()
	reportPath := request.GetString("report_path", "")
	if p := request.GetString("project_path", ""); p != "" {
		if reportPath == "" && !cfg.OutputsFollowProject() {
			return nil, mcp.NewToolResultError("report_path is required with project_path when the report path is absolute")
		}
		if err := cfg.SetProjectPath(p); err != nil {
			return nil, mcp.NewToolResultError(err.Error())
		}
	}
	if reportPath != "" {
		cfg.ReportFile = reportPath
		cfg.InputFile = reportPath
	}
	return cfg, nil
}

func (h *toolHandler) loadReport(request mcp.CallToolRequest) (*schema.ProjectReport, *mcp.CallToolResult) {
	path := h.reportPath(request)
	report, err := iocache.LoadReport(path)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("cannot load report %s: %v", path, err))
	}
	return report, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetReportSummary(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, errResult := h.loadReport(request)
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(struct {
		SchemaVersion int                   `json:"schemaVersion"`
		GeneratedAt   string                `json:"generatedAt"`
		Summary       schema.ProjectSummary `json:"summary"`
	}{
		SchemaVersion: report.SchemaVersion,
		GeneratedAt:   report.GeneratedAt.UTC().Format(contract.DateTimeFormat),
		Summary:       report.Summary,
	})
}

func (h *toolHandler) handleGetFileRecord(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := filepath.ToSlash(request.GetString("path", ""))
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	report, errResult := h.loadReport(request)
	if errResult != nil {
		return errResult, nil
	}
	rec, ok := report.Files[path]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no record for %s", path)), nil
	}
	return jsonResult(rec)
}

func (h *toolHandler) handleListFailedFiles(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, errResult := h.loadReport(request)
	if errResult != nil {
		return errResult, nil
	}
	failed := []failedFile{}
	for path, rec := range report.Files {
		if rec.Status == schema.StatusFailed || rec.Status == schema.StatusSkipped {
			failed = append(failed, failedFile{Path: path, Status: rec.Status, Failure: rec.Failure})
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].Path < failed[j].Path })
	return jsonResult(failed)
}

func (h *toolHandler) handleDetectChanges(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, errResult := h.projectConfig(request)
	if errResult != nil {
		return errResult, nil
	}

	var prev *schema.ProjectReport
	if report, err := iocache.LoadReport(cfg.PreviousReportFile()); err == nil {
		prev = report
	}

	files, err := core.Scan(ctx, cfg.ProjectPath, core.ScanOptions{Extensions: cfg.Extensions, Excludes: cfg.Excludes})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
	}
	return jsonResult(core.DetectChanges(prev, core.MeasureFiles(files)))
}

func (h *toolHandler) handleCheckReport(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, errResult := h.loadReport(request)
	if errResult != nil {
		return errResult, nil
	}
	stale := core.CheckConsistency(report)
	slices.Sort(stale)
	if stale == nil {
		stale = []string{}
	}
	return jsonResult(stale)
}

func (h *toolHandler) handleRunUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, errResult := h.projectConfig(request)
	if errResult != nil {
		return errResult, nil
	}
	cfg.SkipAI = request.GetBool("skip_ai", cfg.SkipAI)
	cfg.RetryFailed = request.GetBool("retry_failed", cfg.RetryFailed)
	if !cfg.SkipAI && h.annotator == nil {
		return mcp.NewToolResultError("annotation service is not configured, use skip_ai"), nil
	}

	result, err := core.RunPipeline(core.WithQuietOutput(ctx), cfg, h.mgr, h.annotator, schema.UpdateMode)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("update failed: %v", err)), nil
	}
	if err := iocache.SaveReport(result.Report, cfg.ReportFile); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to write report: %v", err)), nil
	}

	s := result.Stats
	return jsonResult(runSummary{
		Mode:      s.Mode,
		Added:     s.Added,
		Modified:  s.Modified,
		Unchanged: s.Unchanged,
		Removed:   s.Removed,
		Analyzed:  s.Analyzed,
		Failed:    s.Failed,
		Skipped:   s.Skipped,
		Report:    cfg.ReportFile,
	})
}
