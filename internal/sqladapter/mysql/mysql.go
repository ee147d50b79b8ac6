// Package mysql is the MySQL connection manager, wired at the query-builder
// level per spec §1 ("PostgreSQL/MySQL dialects present at query-builder
// level") using the teacher's go-sql-driver/mysql dependency.
package mysql

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"

	"dbal/internal/sqladapter"
)

// Manager wraps a *sql.DB opened against go-sql-driver/mysql. Unlike
// SQLite, MySQL's own connection pool already serializes per-connection
// statement lifetimes, so no additional mutex is layered on top; last
// insert id and affected rows are read from sql.Result directly.
type Manager struct {
	db *sql.DB
}

// Open opens dsn against MySQL.
func Open(dsn string) (*Manager, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	return &Manager{db: db}, nil
}

// DB returns the underlying pooled handle.
func (m *Manager) DB() *sql.DB { return m.db }

// Dialect reports this manager's dialect, satisfying sqladapter.Opener.
func (m *Manager) Dialect() sqladapter.Dialect { return sqladapter.DialectMySQL }

// Close closes the underlying handle.
func (m *Manager) Close() error { return m.db.Close() }

func init() {
	sqladapter.RegisterOpener(sqladapter.DialectMySQL, func(dsn string) (sqladapter.Opener, error) {
		return Open(dsn)
	})
}
