package schema

import "time"

// RunStats summarizes one run for history tracking and terminal output.
type RunStats struct {
	Mode      RunMode
	Added     int
	Modified  int
	Unchanged int
	Removed   int
	Analyzed  int // Files with a fresh analysis
	Failed    int // Files whose record ended as failed
	Skipped   int // Files never started because of cancellation
}

// RunResult is what a pipeline run hands back to its caller.
type RunResult struct {
	Report   *ProjectReport
	Changes  ChangeSet
	Outcomes []FileOutcome
	Stats    RunStats
}

// FileResultEntry is a touched file recorded against a run.
type FileResultEntry struct {
	Path         string
	Change       ChangeKind
	Status       FileStatus
	FailureKind  FailureKind
	Attempts     int
	TotalLines   int
	CodeLines    int
	CommentLines int
	BlankLines   int
	ContentHash  string
	RecordedAt   time.Time
}

// RunRecord represents a row from the pj_runs table.
type RunRecord struct {
	RunID          int64
	RunUUID        string
	Mode           string
	StartTime      time.Time
	EndTime        *time.Time
	RunDurationMs  *int32
	AddedFiles     int32
	ModifiedFiles  int32
	UnchangedFiles int32
	RemovedFiles   int32
	FailedFiles    int32
	ConfigParams   *string
}

// FileResultRecord represents a row from the pj_file_results table.
type FileResultRecord struct {
	RunID        int64
	FilePath     string
	ChangeKind   string
	Status       string
	FailureKind  *string
	Attempts     int32
	TotalLines   int32
	CodeLines    int32
	CommentLines int32
	BlankLines   int32
	ContentHash  string
	RecordedAt   time.Time
}
