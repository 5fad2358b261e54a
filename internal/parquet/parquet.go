// Package parquet provides data structures and functions for exporting pj
// run history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/pj/schema"
	"github.com/parquet-go/parquet-go"
)

// Run represents a single pj run with metadata.
// This struct maps to the pj_runs database table.
type Run struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// RunUUID is a globally unique identifier, stable across exports
	RunUUID string `parquet:"run_uuid,snappy"`

	// Mode is either full or update
	Mode string `parquet:"mode,snappy,dict"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	AddedFiles     int32 `parquet:"added_files,snappy"`
	ModifiedFiles  int32 `parquet:"modified_files,snappy"`
	UnchangedFiles int32 `parquet:"unchanged_files,snappy"`
	RemovedFiles   int32 `parquet:"removed_files,snappy"`
	FailedFiles    int32 `parquet:"failed_files,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// FileResult represents the outcome for one touched file in a run.
// This struct maps to the pj_file_results database table.
type FileResult struct {
	// RunID references the parent run
	RunID int64 `parquet:"run_id,snappy"`

	// FilePath is the relative path to the file in the project
	FilePath string `parquet:"file_path,snappy"`

	ChangeKind  string  `parquet:"change_kind,snappy,dict"`
	Status      string  `parquet:"status,snappy,dict"`
	FailureKind *string `parquet:"failure_kind,optional,snappy,dict"`
	Attempts    int32   `parquet:"attempts,snappy"`

	TotalLines   int32 `parquet:"total_lines,snappy"`
	CodeLines    int32 `parquet:"code_lines,snappy"`
	CommentLines int32 `parquet:"comment_lines,snappy"`
	BlankLines   int32 `parquet:"blank_lines,snappy"`

	// ContentHash is the hex XXH3-128 digest of the file at the time of the run
	ContentHash string `parquet:"content_hash,snappy"`

	// RecordedAt is when the result was stored
	RecordedAt time.Time `parquet:"recorded_at,snappy"`
}

// WriteRunsParquet writes a slice of Run structs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteFileResultsParquet writes a slice of FileResult structs to a Parquet file.
func WriteFileResultsParquet(data []FileResult, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet writes rows using struct schema inference from the parquet tags.
func writeParquet[T any](data []T, outputPath string) (err error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}

	// Close flushes the footer; without it the file is unreadable
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:          record.RunID,
			RunUUID:        record.RunUUID,
			Mode:           record.Mode,
			StartTime:      record.StartTime,
			EndTime:        record.EndTime,
			RunDurationMs:  record.RunDurationMs,
			AddedFiles:     record.AddedFiles,
			ModifiedFiles:  record.ModifiedFiles,
			UnchangedFiles: record.UnchangedFiles,
			RemovedFiles:   record.RemovedFiles,
			FailedFiles:    record.FailedFiles,
			ConfigParams:   record.ConfigParams,
		}
	}
	return result
}

// ConvertFileResultRecords converts schema.FileResultRecord to FileResult for Parquet export.
func ConvertFileResultRecords(records []schema.FileResultRecord) []FileResult {
	result := make([]FileResult, len(records))
	for i, record := range records {
		result[i] = FileResult{
			RunID:        record.RunID,
			FilePath:     record.FilePath,
			ChangeKind:   record.ChangeKind,
			Status:       record.Status,
			FailureKind:  record.FailureKind,
			Attempts:     record.Attempts,
			TotalLines:   record.TotalLines,
			CodeLines:    record.CodeLines,
			CommentLines: record.CommentLines,
			BlankLines:   record.BlankLines,
			ContentHash:  record.ContentHash,
			RecordedAt:   record.RecordedAt,
		}
	}
	return result
}
