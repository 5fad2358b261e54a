// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/pj/schema"
)

// Annotator turns source text into structured analysis.
// Implementations return *schema.CallError for failures they can classify.
type Annotator interface {
	// Annotate analyzes one file.
	Annotate(ctx context.Context, path string, content []byte) (*schema.AIAnalysis, error)

	// Summarize produces project-level insights from per-file records.
	Summarize(ctx context.Context, files []schema.FileRecord) (*schema.ProjectInsights, error)

	// Model identifies the model behind the annotator, used for cache keys.
	Model() string
}

// StoreManager defines the interface for managing persistent stores.
// This allows the storage layer to be mocked for testing.
type StoreManager interface {
	GetCacheStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the interface for annotation cache storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore defines the interface for tracking runs and their per-file results.
type HistoryStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, mode schema.RunMode, configParams map[string]any) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, stats schema.RunStats) error

	// RecordFileResult stores the outcome for a touched file
	RecordFileResult(runID int64, entry schema.FileResultEntry) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns returns every stored run
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllFileResults returns every stored file result
	GetAllFileResults() ([]schema.FileResultRecord, error)

	// Close closes the underlying connection
	Close() error
}
