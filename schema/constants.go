package schema

// Custom string types for type safety.
type (
	// FileStatus represents the status of a file record.
	FileStatus string

	// ChangeKind represents how a path changed between two runs.
	ChangeKind string

	// FailureKind classifies why a file could not be analyzed.
	FailureKind string

	// RunMode represents the kind of run that produced a report.
	RunMode string

	// DatabaseBackend represents the database backend for caching and history.
	DatabaseBackend string
)

// All file statuses supported.
const (
	StatusOk      FileStatus = "ok"
	StatusSkipped FileStatus = "skipped"
	StatusFailed  FileStatus = "failed"
)

// All change kinds supported.
const (
	ChangeAdded     ChangeKind = "added"
	ChangeModified  ChangeKind = "modified"
	ChangeUnchanged ChangeKind = "unchanged"
	ChangeRemoved   ChangeKind = "removed"
)

// All failure kinds supported.
const (
	FailureTimeout   FailureKind = "timeout"
	FailureNetwork   FailureKind = "network"
	FailureServer    FailureKind = "server"
	FailureRateLimit FailureKind = "rate_limit"
	FailureParse     FailureKind = "parse"
	FailureClient    FailureKind = "client"
	FailureCancelled FailureKind = "cancelled"
	FailureIO        FailureKind = "io"
)

// All run modes supported.
const (
	FullMode   RunMode = "full"
	UpdateMode RunMode = "update"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// ValidCacheBackends lists all valid database backends.
var ValidCacheBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// LogLevels lists the accepted values for --log-level.
var LogLevels = []string{"debug", "info", "warn", "error"}
