package core

import "context"

// Context keys for run options
type contextKey string

const (
	runIDKey       contextKey = "runID"
	quietOutputKey contextKey = "quietOutput"
)

// withRunID stores the history run ID in the context
func withRunID(ctx context.Context, runID int64) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// runIDFromContext returns the history run ID, if one was recorded
func runIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(runIDKey).(int64)
	return id, ok && id > 0
}

// WithQuietOutput suppresses the terminal summary table, e.g. when serving MCP requests
func WithQuietOutput(ctx context.Context) context.Context {
	return context.WithValue(ctx, quietOutputKey, true)
}

// shouldQuietOutput returns whether terminal output should be suppressed
func shouldQuietOutput(ctx context.Context) bool {
	quiet, ok := ctx.Value(quietOutputKey).(bool)
	return ok && quiet
}
