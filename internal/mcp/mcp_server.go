// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/pj/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the pj MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager, annotator contract.Annotator) *server.MCPServer {
	s := server.NewMCPServer(
		"pj Report Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg:   baseCfg,
		mgr:       mgr,
		annotator: annotator,
	}

	// --- 1. Tool: get_report_summary ---
	s.AddTool(mcp.NewTool("get_report_summary",
		mcp.WithDescription("Return the project summary of the stored analysis report."),
		mcp.WithString("report_path", mcp.Description("Path to the report JSON (defaults to the configured output).")),
	), h.handleGetReportSummary)

	// --- 2. Tool: get_file_record ---
	s.AddTool(mcp.NewTool("get_file_record",
		mcp.WithDescription("Return the stored record for one file: metrics, status and analysis."),
		mcp.WithString("path", mcp.Description("Relative, slash-separated path of the file."), mcp.Required()),
		mcp.WithString("report_path", mcp.Description("Path to the report JSON.")),
	), h.handleGetFileRecord)

	// --- 3. Tool: list_failed_files ---
	s.AddTool(mcp.NewTool("list_failed_files",
		mcp.WithDescription("List files whose last analysis failed or was skipped, with the failure reason."),
		mcp.WithString("report_path", mcp.Description("Path to the report JSON.")),
	), h.handleListFailedFiles)

	// --- 4. Tool: detect_changes ---
	s.AddTool(mcp.NewTool("detect_changes",
		mcp.WithDescription("Scan the project and classify files as added, modified, unchanged or removed relative to the stored report."),
		mcp.WithString("project_path", mcp.Description("Project directory (defaults to the configured project).")),
		mcp.WithString("report_path", mcp.Description("Path to the report JSON.")),
	), h.handleDetectChanges)

	// --- 5. Tool: check_report ---
	s.AddTool(mcp.NewTool("check_report",
		mcp.WithDescription("List files whose stored analysis does not match their recorded content hash."),
		mcp.WithString("report_path", mcp.Description("Path to the report JSON.")),
	), h.handleCheckReport)

	// --- 6. Tool: run_update ---
	s.AddTool(mcp.NewTool("run_update",
		mcp.WithDescription("Run an incremental update of the report and return the run statistics."),
		mcp.WithString("project_path", mcp.Description("Project directory (defaults to the configured project).")),
		mcp.WithString("report_path", mcp.Description("Path to the report JSON (defaults to the report inside the project).")),
		mcp.WithBoolean("skip_ai", mcp.Description("Only refresh metrics, without calling the annotation service.")),
		mcp.WithBoolean("retry_failed", mcp.Description("Re-analyze files that failed or were skipped last time.")),
	), h.handleRunUpdate)

	return s
}

// StartMCPServer starts the pj MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager, annotator contract.Annotator) error {
	s := NewMCPServer(baseCfg, mgr, annotator)
	return server.ServeStdio(s)
}
