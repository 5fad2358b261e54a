package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/schema"
)

// Table names for run history.
const (
	runsTable        = "pj_runs"
	fileResultsTable = "pj_file_results"
)

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a new HistoryStore with the specified backend.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (*HistoryStoreImpl, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return &HistoryStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, contract.GetHistoryDBFilePath())
	if err != nil {
		return nil, err
	}

	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}

	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

// createHistoryTables creates the run tracking tables.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	tables := []struct {
		name  string
		query string
	}{
		{runsTable, getCreateRunsQuery(backend)},
		{fileResultsTable, getCreateFileResultsQuery(backend)},
	}

	for _, table := range tables {
		if _, err := db.Exec(table.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}
	return nil
}

// getCreateRunsQuery returns the CREATE TABLE query for pj_runs.
func getCreateRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(runsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				run_uuid CHAR(36) NOT NULL,
				mode VARCHAR(16) NOT NULL,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms INT,
				added_files INT NOT NULL DEFAULT 0,
				modified_files INT NOT NULL DEFAULT 0,
				unchanged_files INT NOT NULL DEFAULT 0,
				removed_files INT NOT NULL DEFAULT 0,
				failed_files INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				run_uuid TEXT NOT NULL,
				mode TEXT NOT NULL,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms INT,
				added_files INT NOT NULL DEFAULT 0,
				modified_files INT NOT NULL DEFAULT 0,
				unchanged_files INT NOT NULL DEFAULT 0,
				removed_files INT NOT NULL DEFAULT 0,
				failed_files INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				run_uuid TEXT NOT NULL,
				mode TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				added_files INTEGER NOT NULL DEFAULT 0,
				modified_files INTEGER NOT NULL DEFAULT 0,
				unchanged_files INTEGER NOT NULL DEFAULT 0,
				removed_files INTEGER NOT NULL DEFAULT 0,
				failed_files INTEGER NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)
	}
}

// getCreateFileResultsQuery returns the CREATE TABLE query for pj_file_results.
func getCreateFileResultsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(fileResultsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				file_path VARCHAR(512) NOT NULL,
				change_kind VARCHAR(16) NOT NULL,
				status VARCHAR(16) NOT NULL,
				failure_kind VARCHAR(32),
				attempts INT NOT NULL,
				total_lines INT NOT NULL,
				code_lines INT NOT NULL,
				comment_lines INT NOT NULL,
				blank_lines INT NOT NULL,
				content_hash VARCHAR(64) NOT NULL,
				recorded_at DATETIME(6) NOT NULL,
				PRIMARY KEY (run_id, file_path)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				file_path TEXT NOT NULL,
				change_kind TEXT NOT NULL,
				status TEXT NOT NULL,
				failure_kind TEXT,
				attempts INT NOT NULL,
				total_lines INT NOT NULL,
				code_lines INT NOT NULL,
				comment_lines INT NOT NULL,
				blank_lines INT NOT NULL,
				content_hash TEXT NOT NULL,
				recorded_at TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (run_id, file_path)
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER NOT NULL,
				file_path TEXT NOT NULL,
				change_kind TEXT NOT NULL,
				status TEXT NOT NULL,
				failure_kind TEXT,
				attempts INTEGER NOT NULL,
				total_lines INTEGER NOT NULL,
				code_lines INTEGER NOT NULL,
				comment_lines INTEGER NOT NULL,
				blank_lines INTEGER NOT NULL,
				content_hash TEXT NOT NULL,
				recorded_at TEXT NOT NULL,
				PRIMARY KEY (run_id, file_path)
			);
		`, quotedTableName)
	}
}

// BeginRun creates a new run and returns its unique ID.
func (hs *HistoryStoreImpl) BeginRun(startTime time.Time, mode schema.RunMode, configParams map[string]any) (int64, error) {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return 0, nil
	}

	// Serialize config params to JSON
	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quotedTableName := quoteTableName(runsTable, hs.backend)
	runUUID := uuid.NewString()

	var runID int64
	switch hs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (run_uuid, mode, start_time, config_params) VALUES ($1, $2, $3, $4) RETURNING run_id`, quotedTableName)
		err = hs.db.QueryRow(query, runUUID, string(mode), startTime, string(configJSON)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (run_uuid, mode, start_time, config_params) VALUES (?, ?, ?, ?)`, quotedTableName)
		var result sql.Result
		result, err = hs.db.Exec(query, runUUID, string(mode), formatTime(startTime, hs.backend), string(configJSON))
		if err != nil {
			return 0, fmt.Errorf("failed to insert run: %w", err)
		}
		runID, err = result.LastInsertId()
	}

	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// EndRun updates the run with completion data.
func (hs *HistoryStoreImpl) EndRun(runID int64, endTime time.Time, stats schema.RunStats) error {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil
	}

	quotedTableName := quoteTableName(runsTable, hs.backend)

	// First, get the start_time to calculate duration
	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, quotedTableName, placeholder(hs.backend, 1))
	startTime, err := hs.scanTime(hs.db.QueryRow(query, runID))
	if err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}

	durationMs := endTime.Sub(startTime).Milliseconds()

	updateQuery := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, added_files = %s, modified_files = %s,
		unchanged_files = %s, removed_files = %s, failed_files = %s WHERE run_id = %s`,
		quotedTableName,
		placeholder(hs.backend, 1), placeholder(hs.backend, 2), placeholder(hs.backend, 3), placeholder(hs.backend, 4),
		placeholder(hs.backend, 5), placeholder(hs.backend, 6), placeholder(hs.backend, 7), placeholder(hs.backend, 8))
	args := []any{
		formatTime(endTime, hs.backend), durationMs, stats.Added, stats.Modified,
		stats.Unchanged, stats.Removed, stats.Failed, runID,
	}

	if _, err := hs.db.Exec(updateQuery, args...); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// RecordFileResult stores the outcome of a touched file.
func (hs *HistoryStoreImpl) RecordFileResult(runID int64, entry schema.FileResultEntry) error {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil
	}

	var failureKind *string
	if entry.FailureKind != "" {
		kind := string(entry.FailureKind)
		failureKind = &kind
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (run_id, file_path, change_kind, status, failure_kind, attempts,
		                total_lines, code_lines, comment_lines, blank_lines, content_hash, recorded_at)
		VALUES (%s)
	`, quoteTableName(fileResultsTable, hs.backend), placeholders(hs.backend, 12))
	args := []any{
		runID, entry.Path, string(entry.Change), string(entry.Status), failureKind, entry.Attempts,
		entry.TotalLines, entry.CodeLines, entry.CommentLines, entry.BlankLines, entry.ContentHash,
		formatTime(entry.RecordedAt, hs.backend),
	}

	if _, err := hs.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to insert file result: %w", err)
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}

	if hs.backend == schema.NoneBackend || hs.db == nil {
		return status, nil
	}

	runs := quoteTableName(runsTable, hs.backend)
	if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runs)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		lastRunQuery := fmt.Sprintf("SELECT run_id FROM %s ORDER BY run_id DESC LIMIT 1", runs)
		if err := hs.db.QueryRow(lastRunQuery).Scan(&status.LastRunID); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}

		var err error
		lastTimeQuery := fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id DESC LIMIT 1", runs)
		if status.LastRunTime, err = hs.scanTime(hs.db.QueryRow(lastTimeQuery)); err != nil {
			return status, fmt.Errorf("failed to get last run time: %w", err)
		}

		oldestQuery := fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", runs)
		if status.OldestRunTime, err = hs.scanTime(hs.db.QueryRow(oldestQuery)); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}

		failuresQuery := fmt.Sprintf("SELECT COALESCE(SUM(failed_files), 0) FROM %s", runs)
		if err := hs.db.QueryRow(failuresQuery).Scan(&status.TotalFailures); err != nil {
			return status, fmt.Errorf("failed to get total failures: %w", err)
		}
	}

	for _, table := range []string{runsTable, fileResultsTable} {
		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend))
		var count int64
		if err := hs.db.QueryRow(countQuery).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}

// GetAllRuns retrieves all runs from the store.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, run_uuid, mode, start_time, end_time, run_duration_ms,
		added_files, modified_files, unchanged_files, removed_files, failed_files, config_params
		FROM %s ORDER BY run_id`, quoteTableName(runsTable, hs.backend))

	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var record schema.RunRecord

		switch hs.backend {
		case schema.SQLiteBackend:
			var startTimeStr string
			var endTimeStr *string
			if err := rows.Scan(&record.RunID, &record.RunUUID, &record.Mode, &startTimeStr, &endTimeStr, &record.RunDurationMs,
				&record.AddedFiles, &record.ModifiedFiles, &record.UnchangedFiles, &record.RemovedFiles,
				&record.FailedFiles, &record.ConfigParams); err != nil {
				return nil, fmt.Errorf("failed to scan run: %w", err)
			}
			if record.StartTime, err = time.Parse(time.RFC3339Nano, startTimeStr); err != nil {
				return nil, fmt.Errorf("failed to parse start_time: %w", err)
			}
			if endTimeStr != nil {
				endTime, err := time.Parse(time.RFC3339Nano, *endTimeStr)
				if err != nil {
					return nil, fmt.Errorf("failed to parse end_time: %w", err)
				}
				record.EndTime = &endTime
			}
		default: // MySQL and PostgreSQL
			if err := rows.Scan(&record.RunID, &record.RunUUID, &record.Mode, &record.StartTime, &record.EndTime, &record.RunDurationMs,
				&record.AddedFiles, &record.ModifiedFiles, &record.UnchangedFiles, &record.RemovedFiles,
				&record.FailedFiles, &record.ConfigParams); err != nil {
				return nil, fmt.Errorf("failed to scan run: %w", err)
			}
		}

		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetAllFileResults retrieves all file results from the store.
func (hs *HistoryStoreImpl) GetAllFileResults() ([]schema.FileResultRecord, error) {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, file_path, change_kind, status, failure_kind, attempts,
		total_lines, code_lines, comment_lines, blank_lines, content_hash, recorded_at
		FROM %s ORDER BY run_id, file_path`, quoteTableName(fileResultsTable, hs.backend))

	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query file results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.FileResultRecord
	for rows.Next() {
		var record schema.FileResultRecord

		switch hs.backend {
		case schema.SQLiteBackend:
			var recordedAtStr string
			if err := rows.Scan(&record.RunID, &record.FilePath, &record.ChangeKind, &record.Status, &record.FailureKind,
				&record.Attempts, &record.TotalLines, &record.CodeLines, &record.CommentLines, &record.BlankLines,
				&record.ContentHash, &recordedAtStr); err != nil {
				return nil, fmt.Errorf("failed to scan file result: %w", err)
			}
			if record.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAtStr); err != nil {
				return nil, fmt.Errorf("failed to parse recorded_at: %w", err)
			}
		default: // MySQL and PostgreSQL
			if err := rows.Scan(&record.RunID, &record.FilePath, &record.ChangeKind, &record.Status, &record.FailureKind,
				&record.Attempts, &record.TotalLines, &record.CodeLines, &record.CommentLines, &record.BlankLines,
				&record.ContentHash, &record.RecordedAt); err != nil {
				return nil, fmt.Errorf("failed to scan file result: %w", err)
			}
		}

		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file results: %w", err)
	}
	return results, nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// scanTime reads a single time column, which SQLite stores as RFC3339 text.
func (hs *HistoryStoreImpl) scanTime(row *sql.Row) (time.Time, error) {
	if hs.backend != schema.SQLiteBackend {
		var t time.Time
		err := row.Scan(&t)
		return t, err
	}
	var s string
	if err := row.Scan(&s); err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	switch backend {
	case schema.SQLiteBackend:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return t
	}
}
