// Package sqlite is the SQLite connection manager (spec §4.2, component
// C6): opens a pure-Go SQLite database, applies the required PRAGMAs, and
// limits the pool to one connection so statements never run on the handle
// concurrently. Manager.Lock's mutex serializes only the callers that take
// it; the SQL adapter does not take it.
package sqlite

import (
	"database/sql"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/rs/zerolog"

	"dbal/internal/obs"
	"dbal/internal/sqladapter"
)

// pragmas are applied on open; failures are warnings, not fatal (spec §4.2:
// "PRAGMA failures are warnings, not fatal").
var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA temp_store = MEMORY",
}

// Manager wraps a *sql.DB opened against modernc.org/sqlite with
// MaxOpenConns(1). A caller that holds Lock across a statement and the
// LastInsertRowID/Changes reads that follow it keeps those reads atomic with
// that statement; statements issued without Lock, including all of the SQL
// adapter's, are not bracketed by the mutex.
type Manager struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zerolog.Logger
}

// Open opens dsn (a file path, or ":memory:") and applies the PRAGMA set.
func Open(dsn string, logger *zerolog.Logger) (*Manager, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite has one writer; serialize through a single connection so WAL
	// readers never contend with the sole writer for the handle itself.
	db.SetMaxOpenConns(1)

	m := &Manager{db: db, logger: logger}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil && logger != nil {
			logger.Warn().Err(err).Str("pragma", p).Msg("sqlite pragma failed")
		}
	}
	return m, nil
}

// DB returns the underlying pooled handle.
func (m *Manager) DB() *sql.DB { return m.db }

// Lock acquires the statement-lifetime mutex. Callers must Unlock via the
// returned func once prepare/bind/step/finalize (or its database/sql
// equivalent) completes.
func (m *Manager) Lock() func() {
	m.mu.Lock()
	return m.mu.Unlock
}

// LastInsertRowID reads sqlite's last_insert_rowid() immediately after a
// step, while the caller still holds Lock().
func (m *Manager) LastInsertRowID() (int64, error) {
	var id int64
	err := m.db.QueryRow("SELECT last_insert_rowid()").Scan(&id)
	return id, err
}

// Changes reads sqlite's changes() immediately after a step, while the
// caller still holds Lock().
func (m *Manager) Changes() (int64, error) {
	var n int64
	err := m.db.QueryRow("SELECT changes()").Scan(&n)
	return n, err
}

// Close closes the underlying handle.
func (m *Manager) Close() error { return m.db.Close() }

// Dialect reports this manager's dialect, satisfying sqladapter.Opener.
func (m *Manager) Dialect() sqladapter.Dialect { return sqladapter.DialectSQLite }

func init() {
	sqladapter.RegisterOpener(sqladapter.DialectSQLite, func(dsn string) (sqladapter.Opener, error) {
		return Open(dsn, obs.L())
	})
}
