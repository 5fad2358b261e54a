package iocache

import (
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/schema"
)

// annotationTable is the name of the table for annotation caching.
const annotationTable = "pj_annotations"

// Global Manager instance for main logic.
var (
	Manager   = &StoreManagerImpl{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// InitStores initializes the global manager with separate cache and history stores.
// An empty backend disables the corresponding store.
func InitStores(cacheBackend schema.DatabaseBackend, cacheConnStr string, historyBackend schema.DatabaseBackend, historyConnStr string) error {
	var initErr error

	initOnce.Do(func() {
		cache, history, err := openStores(cacheBackend, cacheConnStr, historyBackend, historyConnStr)
		if err != nil {
			initErr = err
			return
		}

		Manager.Lock()
		defer Manager.Unlock()
		// Only non-nil stores are assigned so the interfaces stay comparable to nil
		if cache != nil {
			Manager.cache = cache
		}
		if history != nil {
			Manager.history = history
		}
	})

	return initErr
}

// NewStoreManager opens stores outside of the global manager, mainly for tests and the MCP server.
func NewStoreManager(cacheBackend schema.DatabaseBackend, cacheConnStr string, historyBackend schema.DatabaseBackend, historyConnStr string) (*StoreManagerImpl, error) {
	cache, history, err := openStores(cacheBackend, cacheConnStr, historyBackend, historyConnStr)
	if err != nil {
		return nil, err
	}
	mgr := &StoreManagerImpl{}
	if cache != nil {
		mgr.cache = cache
	}
	if history != nil {
		mgr.history = history
	}
	return mgr, nil
}

// Close closes every store held by the manager.
func (mgr *StoreManagerImpl) Close() {
	mgr.Lock()
	defer mgr.Unlock()
	if mgr.cache != nil {
		_ = mgr.cache.Close()
		mgr.cache = nil
	}
	if mgr.history != nil {
		_ = mgr.history.Close()
		mgr.history = nil
	}
}

func openStores(cacheBackend schema.DatabaseBackend, cacheConnStr string, historyBackend schema.DatabaseBackend, historyConnStr string) (*CacheStoreImpl, *HistoryStoreImpl, error) {
	var cache *CacheStoreImpl
	if cacheBackend != "" && cacheBackend != schema.NoneBackend {
		var err error
		cache, err = NewCacheStore(annotationTable, cacheBackend, cacheConnStr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize annotation caching: %w", err)
		}
	}

	var history *HistoryStoreImpl
	if historyBackend != "" && historyBackend != schema.NoneBackend {
		var err error
		history, err = NewHistoryStore(historyBackend, historyConnStr)
		if err != nil {
			if cache != nil {
				_ = cache.Close()
			}
			return nil, nil, fmt.Errorf("failed to initialize history store: %w", err)
		}
	}

	return cache, history, nil
}

// CloseStores should be called on application shutdown.
func CloseStores() { // called in main defer
	closeOnce.Do(Manager.Close)
}

// ClearCache clears the annotation cache for the specified backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the table.
// For NoneBackend, it does nothing.
func ClearCache(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		if connStr != "" {
			dbFilePath = connStr
		}
		return removeSQLiteFile(dbFilePath)

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return dropSQLTables(backend, connStr, annotationTable)

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported cache backend for clearing: %s", backend)
	}
}

// ClearHistory clears the run history for the specified backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the history tables.
// For NoneBackend, it does nothing.
func ClearHistory(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		if connStr != "" {
			dbFilePath = connStr
		}
		return removeSQLiteFile(dbFilePath)

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return dropSQLTables(backend, connStr, fileResultsTable, runsTable, "schema_migrations")

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported history backend for clearing: %s", backend)
	}
}

// DefaultDBFilePaths returns the SQLite paths used when no connection string is given.
func DefaultDBFilePaths() (cache, history string) {
	return contract.GetCacheDBFilePath(), contract.GetHistoryDBFilePath()
}

func removeSQLiteFile(dbFilePath string) error {
	if dbFilePath == "" {
		return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
	}
	// Remove the file; ignore if it doesn't exist
	if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
	}
	return nil
}

// dropSQLTables connects to the SQL database and drops the tables if they exist.
func dropSQLTables(backend schema.DatabaseBackend, connStr string, tables ...string) error {
	db, err := openDB(backend, connStr, "")
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	for _, table := range tables {
		query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(table, backend))
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
